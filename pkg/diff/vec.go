package diff

import "github.com/df07/go-mesh-interaction/pkg/core"

// Vec3 is a 3-vector of Reals
type Vec3 struct {
	X, Y, Z Real
}

// ConstVec3 lifts a plain vector into a detached Vec3
func ConstVec3(v core.Vec3) Vec3 {
	return Vec3{X: Const(v.X), Y: Const(v.Y), Z: Const(v.Z)}
}

// Value strips the derivative parts
func (a Vec3) Value() core.Vec3 {
	return core.NewVec3(a.X.V, a.Y.V, a.Z.V)
}

// Attached reports whether any component depends on a lane
func (a Vec3) Attached() bool {
	return a.X.Attached() || a.Y.Attached() || a.Z.Attached()
}

// Add returns a+b
func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{X: a.X.Add(b.X), Y: a.Y.Add(b.Y), Z: a.Z.Add(b.Z)}
}

// Sub returns a-b
func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{X: a.X.Sub(b.X), Y: a.Y.Sub(b.Y), Z: a.Z.Sub(b.Z)}
}

// Neg returns -a
func (a Vec3) Neg() Vec3 {
	return Vec3{X: a.X.Neg(), Y: a.Y.Neg(), Z: a.Z.Neg()}
}

// Mul scales a by the scalar s
func (a Vec3) Mul(s Real) Vec3 {
	return Vec3{X: a.X.Mul(s), Y: a.Y.Mul(s), Z: a.Z.Mul(s)}
}

// Scale scales a by the constant s
func (a Vec3) Scale(s float64) Vec3 {
	return Vec3{X: a.X.Scale(s), Y: a.Y.Scale(s), Z: a.Z.Scale(s)}
}

// Dot returns the dot product of a and b
func (a Vec3) Dot(b Vec3) Real {
	return a.X.Mul(b.X).Add(a.Y.Mul(b.Y)).Add(a.Z.Mul(b.Z))
}

// Cross returns the cross product of a and b
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		X: a.Y.Mul(b.Z).Sub(a.Z.Mul(b.Y)),
		Y: a.Z.Mul(b.X).Sub(a.X.Mul(b.Z)),
		Z: a.X.Mul(b.Y).Sub(a.Y.Mul(b.X)),
	}
}

// LengthSquared returns |a|²
func (a Vec3) LengthSquared() Real {
	return a.Dot(a)
}

// Length returns |a|
func (a Vec3) Length() Real {
	return a.LengthSquared().Sqrt()
}

// Normalize returns a/|a|; the zero vector is returned unchanged
func (a Vec3) Normalize() Vec3 {
	length := a.Length()
	if length.V == 0 {
		return a
	}
	return a.Mul(length.Recip())
}

// Barycentric returns a*w0 + b*w1 + c*w2
func Barycentric(a, b, c Vec3, w0, w1, w2 Real) Vec3 {
	return a.Mul(w0).Add(b.Mul(w1)).Add(c.Mul(w2))
}

// Vec2 is a 2-vector of Reals
type Vec2 struct {
	X, Y Real
}

// ConstVec2 lifts a plain vector into a detached Vec2
func ConstVec2(v core.Vec2) Vec2 {
	return Vec2{X: Const(v.X), Y: Const(v.Y)}
}

// Value strips the derivative parts
func (a Vec2) Value() core.Vec2 {
	return core.NewVec2(a.X.V, a.Y.V)
}

// Attached reports whether any component depends on a lane
func (a Vec2) Attached() bool {
	return a.X.Attached() || a.Y.Attached()
}

// Add returns a+b
func (a Vec2) Add(b Vec2) Vec2 {
	return Vec2{X: a.X.Add(b.X), Y: a.Y.Add(b.Y)}
}

// Sub returns a-b
func (a Vec2) Sub(b Vec2) Vec2 {
	return Vec2{X: a.X.Sub(b.X), Y: a.Y.Sub(b.Y)}
}

// Mul scales a by the scalar s
func (a Vec2) Mul(s Real) Vec2 {
	return Vec2{X: a.X.Mul(s), Y: a.Y.Mul(s)}
}

// Barycentric2 returns a*w0 + b*w1 + c*w2
func Barycentric2(a, b, c Vec2, w0, w1, w2 Real) Vec2 {
	return a.Mul(w0).Add(b.Mul(w1)).Add(c.Mul(w2))
}
