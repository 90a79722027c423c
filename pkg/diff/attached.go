package diff

import "github.com/df07/go-mesh-interaction/pkg/core"

// Vector is a 3-vector input with an optional gradient channel. A Vector is
// attached while its gradient channel is enabled.
type Vector struct {
	Value core.Vec3
	grad  *core.Vec3
}

// NewVector wraps a detached vector
func NewVector(v core.Vec3) Vector {
	return Vector{Value: v}
}

// EnableGrad attaches the vector with a zeroed gradient
func (v *Vector) EnableGrad() {
	if v.grad == nil {
		v.grad = &core.Vec3{}
	}
}

// DisableGrad detaches the vector and drops its gradient
func (v *Vector) DisableGrad() {
	v.grad = nil
}

func (v Vector) GradEnabled() bool {
	return v.grad != nil
}

// Grad returns the accumulated gradient (zero when detached)
func (v Vector) Grad() core.Vec3 {
	if v.grad == nil {
		return core.Vec3{}
	}
	return *v.grad
}

// SetGrad overwrites the gradient; it is a no-op when detached
func (v Vector) SetGrad(g core.Vec3) {
	if v.grad != nil {
		*v.grad = g
	}
}

func (v Vector) accumulate(i int, g float64) {
	if v.grad == nil {
		return
	}
	switch i {
	case 0:
		v.grad.X += g
	case 1:
		v.grad.Y += g
	default:
		v.grad.Z += g
	}
}

// Buffer is a flat float32 mesh buffer with an optional float64 gradient
// channel of the same length.
type Buffer struct {
	Data []float32
	grad []float64
}

// NewBuffer wraps data without copying it
func NewBuffer(data []float32) *Buffer {
	return &Buffer{Data: data}
}

// Len returns the number of scalars in the buffer
func (b *Buffer) Len() int {
	return len(b.Data)
}

// At returns the i-th scalar widened to float64
func (b *Buffer) At(i int) float64 {
	return float64(b.Data[i])
}

// EnableGrad attaches the buffer with a zeroed gradient
func (b *Buffer) EnableGrad() {
	if b.grad == nil {
		b.grad = make([]float64, len(b.Data))
	}
}

// DisableGrad detaches the buffer and drops its gradient
func (b *Buffer) DisableGrad() {
	b.grad = nil
}

func (b *Buffer) GradEnabled() bool {
	return b != nil && b.grad != nil
}

// Grad returns the gradient slice; nil when detached
func (b *Buffer) Grad() []float64 {
	return b.grad
}

// ZeroGrad clears the accumulated gradient
func (b *Buffer) ZeroGrad() {
	for i := range b.grad {
		b.grad[i] = 0
	}
}

func (b *Buffer) accumulate(i int, g float64) {
	if b == nil || b.grad == nil {
		return
	}
	b.grad[i] += g
}

// Ray is a ray whose origin and direction may carry gradients
type Ray struct {
	Origin      Vector
	Direction   Vector
	MinT        float64
	MaxT        float64
	Wavelengths []float64
}

// NewRay wraps a plain ray with both endpoints detached
func NewRay(r core.Ray) Ray {
	return Ray{
		Origin:      NewVector(r.Origin),
		Direction:   NewVector(r.Direction),
		MinT:        r.MinT,
		MaxT:        r.MaxT,
		Wavelengths: r.Wavelengths,
	}
}

// Detach returns the plain ray
func (r Ray) Detach() core.Ray {
	return core.Ray{
		Origin:      r.Origin.Value,
		Direction:   r.Direction.Value,
		MinT:        r.MinT,
		MaxT:        r.MaxT,
		Wavelengths: r.Wavelengths,
	}
}

// GradEnabled reports whether origin or direction is attached
func (r Ray) GradEnabled() bool {
	return r.Origin.GradEnabled() || r.Direction.GradEnabled()
}
