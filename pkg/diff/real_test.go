package diff

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/df07/go-mesh-interaction/pkg/core"
)

const tolerance = 1e-9

func TestReal_Arithmetic(t *testing.T) {
	var s Space
	s.Declare(InputRayOrigin, 0, 2)
	x := s.Var(0, 3)
	y := s.Var(1, 4)

	tests := []struct {
		name   string
		got    Real
		value  float64
		dx, dy float64
	}{
		{"add", x.Add(y), 7, 1, 1},
		{"sub", x.Sub(y), -1, 1, -1},
		{"mul", x.Mul(y), 12, 4, 3},
		{"div", x.Div(y), 0.75, 0.25, -3.0 / 16},
		{"neg", x.Neg(), -3, -1, 0},
		{"scale", y.Scale(2), 8, 0, 2},
		{"recip", y.Recip(), 0.25, 0, -1.0 / 16},
		{"hypot", x.Mul(x).Add(y.Mul(y)).Sqrt(), 5, 0.6, 0.8},
		{"abs", x.Neg().Abs(), 3, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if math.Abs(tt.got.V-tt.value) > tolerance {
				t.Errorf("Expected value %v, got %v", tt.value, tt.got.V)
			}
			if math.Abs(tt.got.Partial(0)-tt.dx) > tolerance {
				t.Errorf("Expected d/dx %v, got %v", tt.dx, tt.got.Partial(0))
			}
			if math.Abs(tt.got.Partial(1)-tt.dy) > tolerance {
				t.Errorf("Expected d/dy %v, got %v", tt.dy, tt.got.Partial(1))
			}
		})
	}
}

func TestReal_ConstantsStayDetached(t *testing.T) {
	a := Const(2).Mul(Const(3)).Add(Const(1)).Sqrt()
	if a.Attached() {
		t.Error("Expected constant arithmetic to stay detached")
	}
	if math.Abs(a.V-math.Sqrt(7)) > tolerance {
		t.Errorf("Expected %v, got %v", math.Sqrt(7), a.V)
	}
}

func TestSpace_DeclareAfterVarPanics(t *testing.T) {
	var s Space
	s.Declare(InputPositions, 0, 3)
	s.Var(0, 1)

	defer func() {
		if recover() == nil {
			t.Error("Expected panic when declaring after Var")
		}
	}()
	s.Declare(InputNormals, 0, 3)
}

func TestVec3_NormalizeDerivative(t *testing.T) {
	var s Space
	base := s.Declare(InputPositions, 0, 3)
	v := s.Var3(base, 3, 0, 4)
	n := v.Normalize()

	want := core.NewVec3(0.6, 0, 0.8)
	if got := n.Value(); math.Abs(got.X-want.X) > tolerance || math.Abs(got.Z-want.Z) > tolerance {
		t.Errorf("Expected %v, got %v", want, got)
	}
	// d(x/|v|)/dx = (|v|² - x²)/|v|³ = 16/125
	if got := n.X.Partial(0); math.Abs(got-16.0/125) > tolerance {
		t.Errorf("Expected dnx/dx %v, got %v", 16.0/125, got)
	}
	// d(z/|v|)/dx = -x z/|v|³ = -12/125
	if got := n.Z.Partial(0); math.Abs(got+12.0/125) > tolerance {
		t.Errorf("Expected dnz/dx %v, got %v", -12.0/125, got)
	}
}

func TestJacobian_ForwardBackwardAdjoint(t *testing.T) {
	var s Space
	o := s.Declare(InputRayOrigin, 0, 3)
	p := s.Declare(InputPositions, 3, 3)
	a := s.Var3(o, 0.3, -1.2, 2)
	b := s.Var3(p, 1.5, 0.25, -0.5)

	c := a.Cross(b)
	outputs := []Real{a.Dot(b), c.X, c.Y, c.Z, a.Sub(b).Length(), Const(4)}
	j := NewJacobian(s.Lanes(), outputs)

	v := []float64{0.1, -0.7, 0.3, 1.1, 0.05, -0.4}
	w := []float64{0.9, -0.2, 0.6, 0.35, -1.3, 2}

	jv, err := j.Forward(v)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	jtw, err := j.Backward(w)
	if err != nil {
		t.Fatalf("Backward failed: %v", err)
	}

	lhs := floats.Dot(w, jv)
	rhs := floats.Dot(jtw, v)
	if math.Abs(lhs-rhs) > tolerance {
		t.Errorf("Expected <w, Jv> == <Jᵀw, v>, got %v vs %v", lhs, rhs)
	}
	if j.Attached(5) {
		t.Error("Expected constant row to be detached")
	}
	if !j.Attached(0) {
		t.Error("Expected dot row to be attached")
	}
}

func TestJacobian_Empty(t *testing.T) {
	j := NewJacobian(nil, []Real{Const(1), Const(2)})
	out, err := j.Forward(nil)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if !floats.Equal(out, []float64{0, 0}) {
		t.Errorf("Expected zero tangents, got %v", out)
	}
	if _, err := j.Forward([]float64{1}); err == nil {
		t.Error("Expected error for mismatched tangent length")
	}
	if _, err := j.Backward([]float64{1}); err == nil {
		t.Error("Expected error for mismatched adjoint length")
	}
}

func TestDeferred_BuildsOnce(t *testing.T) {
	calls := 0
	d := Record(func() *Jacobian {
		calls++
		return NewJacobian(nil, nil)
	})
	if calls != 0 {
		t.Fatalf("Expected no build before Get, got %d", calls)
	}
	first := d.Get()
	second := d.Get()
	if calls != 1 || first != second {
		t.Errorf("Expected a single build, got %d calls", calls)
	}
}

func TestBinding_Scatter(t *testing.T) {
	origin := NewVector(core.NewVec3(0, 0, 0))
	origin.EnableGrad()
	detached := NewVector(core.NewVec3(0, 0, 1))
	positions := NewBuffer(make([]float32, 6))
	positions.EnableGrad()
	normals := NewBuffer(make([]float32, 6))

	lanes := []Lane{
		{InputRayOrigin, 2},
		{InputRayDirection, 0},
		{InputPositions, 4},
		{InputNormals, 1},
	}
	b := Binding{Origin: &origin, Direction: &detached, Positions: positions, Normals: normals}
	b.Scatter(lanes, []float64{1.5, 2, -3, 7})
	b.Scatter(lanes, []float64{0.5, 2, -1, 7})

	if got := origin.Grad(); !got.Equals(core.NewVec3(0, 0, 2)) {
		t.Errorf("Expected origin grad (0,0,2), got %v", got)
	}
	if got := detached.Grad(); !got.Equals(core.Vec3{}) {
		t.Errorf("Expected detached direction to stay zero, got %v", got)
	}
	if got := positions.Grad()[4]; got != -4 {
		t.Errorf("Expected positions grad -4, got %v", got)
	}
	if normals.Grad() != nil {
		t.Error("Expected detached normals to have no gradient")
	}
}

func TestSeed_Gather(t *testing.T) {
	seed := Seed{
		RayOrigin: core.NewVec3(1, 2, 3),
		Positions: []float64{0, 0, 0, 9},
	}
	lanes := []Lane{{InputRayOrigin, 1}, {InputPositions, 3}, {InputPositions, 7}, {InputTexcoords, 0}}
	got := seed.Gather(lanes)
	if !floats.Equal(got, []float64{2, 9, 0, 0}) {
		t.Errorf("Expected [2 9 0 0], got %v", got)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"eager", ModeEager, false},
		{"Recorded", ModeRecorded, false},
		{"", ModeEager, false},
		{"lazy", ModeEager, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
