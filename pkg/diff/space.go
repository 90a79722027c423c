package diff

// Input names the attached input a lane differentiates with respect to
type Input int

const (
	InputRayOrigin Input = iota
	InputRayDirection
	InputPositions
	InputNormals
	InputTexcoords
)

func (in Input) String() string {
	switch in {
	case InputRayOrigin:
		return "ray.o"
	case InputRayDirection:
		return "ray.d"
	case InputPositions:
		return "positions"
	case InputNormals:
		return "normals"
	case InputTexcoords:
		return "texcoords"
	default:
		return "unknown"
	}
}

// Lane identifies one scalar input: Index is the component for ray inputs
// and the flat buffer offset for mesh buffers.
type Lane struct {
	Input Input
	Index int
}

// Space collects the lanes of a single local evaluation. All lanes must be
// declared before the first Var call.
type Space struct {
	lanes  []Lane
	frozen bool
}

// Declare adds n consecutive lanes for input starting at index and returns
// the position of the first one.
func (s *Space) Declare(in Input, index, n int) int {
	if s.frozen {
		panic("diff: lane declared after variables were created")
	}
	base := len(s.lanes)
	for i := 0; i < n; i++ {
		s.lanes = append(s.lanes, Lane{Input: in, Index: index + i})
	}
	return base
}

// Len returns the number of declared lanes
func (s *Space) Len() int {
	return len(s.lanes)
}

// Lanes returns the declared lanes in order
func (s *Space) Lanes() []Lane {
	return s.lanes
}

// Var returns v seeded on lane. A negative lane yields a detached constant.
func (s *Space) Var(lane int, v float64) Real {
	s.frozen = true
	if lane < 0 {
		return Const(v)
	}
	d := make([]float64, len(s.lanes))
	d[lane] = 1
	return Real{V: v, D: d}
}

// Var3 seeds three consecutive lanes starting at base
func (s *Space) Var3(base int, x, y, z float64) Vec3 {
	if base < 0 {
		return Vec3{X: Const(x), Y: Const(y), Z: Const(z)}
	}
	return Vec3{X: s.Var(base, x), Y: s.Var(base+1, y), Z: s.Var(base+2, z)}
}

// Var2 seeds two consecutive lanes starting at base
func (s *Space) Var2(base int, x, y float64) Vec2 {
	if base < 0 {
		return Vec2{X: Const(x), Y: Const(y)}
	}
	return Vec2{X: s.Var(base, x), Y: s.Var(base+1, y)}
}
