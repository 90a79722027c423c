package geometry

import (
	"fmt"
	"math"

	"github.com/df07/go-mesh-interaction/pkg/core"
	"github.com/df07/go-mesh-interaction/pkg/diff"
)

// Field names one differentiable output of an interaction
type Field int

const (
	FieldT Field = iota
	FieldP
	FieldN
	FieldShN
	FieldUV
	FieldDPDU
	FieldDPDV
	FieldDNDU
	FieldDNDV
	FieldBoundaryTest
	fieldCount
)

var (
	fieldOffset = [fieldCount]int{0, 1, 4, 7, 10, 12, 15, 18, 21, 24}
	fieldWidth  = [fieldCount]int{1, 3, 3, 3, 2, 3, 3, 3, 3, 1}
)

// rowCount is the number of scalar outputs in a local Jacobian
const rowCount = 25

func (f Field) String() string {
	return [...]string{"t", "p", "n", "sh_frame.n", "uv", "dp_du", "dp_dv", "dn_du", "dn_dv", "boundary_test"}[f]
}

// Differential is a tangent (forward mode) or adjoint (reverse mode) of the
// differentiable interaction fields
type Differential struct {
	T            float64
	P            core.Vec3
	N            core.Vec3
	ShN          core.Vec3
	UV           core.Vec2
	DPDU, DPDV   core.Vec3
	DNDU, DNDV   core.Vec3
	BoundaryTest float64
}

func (d Differential) pack() []float64 {
	return []float64{
		d.T,
		d.P.X, d.P.Y, d.P.Z,
		d.N.X, d.N.Y, d.N.Z,
		d.ShN.X, d.ShN.Y, d.ShN.Z,
		d.UV.X, d.UV.Y,
		d.DPDU.X, d.DPDU.Y, d.DPDU.Z,
		d.DPDV.X, d.DPDV.Y, d.DPDV.Z,
		d.DNDU.X, d.DNDU.Y, d.DNDU.Z,
		d.DNDV.X, d.DNDV.Y, d.DNDV.Z,
		d.BoundaryTest,
	}
}

func unpack(r []float64) Differential {
	v3 := func(i int) core.Vec3 { return core.NewVec3(r[i], r[i+1], r[i+2]) }
	return Differential{
		T:            r[0],
		P:            v3(1),
		N:            v3(4),
		ShN:          v3(7),
		UV:           core.NewVec2(r[10], r[11]),
		DPDU:         v3(12),
		DPDV:         v3(15),
		DNDU:         v3(18),
		DNDV:         v3(21),
		BoundaryTest: r[24],
	}
}

// SurfaceInteraction is the expanded form of a hit. Only the fields selected
// by Flags are defined.
type SurfaceInteraction struct {
	T       float64
	P       core.Vec3
	N       core.Vec3  // geometric normal, oriented to agree with ShFrame.N
	ShFrame core.Frame // shading frame; only N is set without FlagShadingFrame
	UV      core.Vec2
	DPDU    core.Vec3
	DPDV    core.Vec3
	DNDU    core.Vec3
	DNDV    core.Vec3
	Wi      core.Vec3 // incident direction in the shading frame

	// BoundaryTest tends to zero near a silhouette and is +Inf for a miss
	BoundaryTest float64

	PrimIndex   int
	Shape       Shape
	Wavelengths []float64
	Flags       RayFlags

	valid   bool
	jac     *diff.Deferred
	binding diff.Binding
}

// IsValid reports whether the interaction lies on a surface within the
// ray's valid range
func (si *SurfaceInteraction) IsValid() bool {
	return si.valid
}

// Jacobian returns the local Jacobian of the differentiable fields
func (si *SurfaceInteraction) Jacobian() *diff.Jacobian {
	return si.jac.Get()
}

// GradEnabled reports whether the field depends on any attached input
func (si *SurfaceInteraction) GradEnabled(f Field) bool {
	j := si.jac.Get()
	for r := fieldOffset[f]; r < fieldOffset[f]+fieldWidth[f]; r++ {
		if j.Attached(r) {
			return true
		}
	}
	return false
}

// Forward propagates input tangents to the interaction fields
func (si *SurfaceInteraction) Forward(seed diff.Seed) (Differential, error) {
	j := si.jac.Get()
	out, err := j.Forward(seed.Gather(j.Lanes()))
	if err != nil {
		return Differential{}, fmt.Errorf("forward propagation: %w", err)
	}
	return unpack(out), nil
}

// Backward accumulates the gradient induced by adj into the gradient
// channels of the attached ray and mesh buffers
func (si *SurfaceInteraction) Backward(adj Differential) error {
	j := si.jac.Get()
	g, err := j.Backward(adj.pack())
	if err != nil {
		return fmt.Errorf("backward propagation: %w", err)
	}
	si.binding.Scatter(j.Lanes(), g)
	return nil
}

// missInteraction is the invalid interaction returned for rays that hit
// nothing
func missInteraction(ray diff.Ray, flags RayFlags) *SurfaceInteraction {
	si := &SurfaceInteraction{
		T:           math.Inf(1),
		PrimIndex:   -1,
		Wavelengths: ray.Wavelengths,
		Flags:       flags,
		jac:         diff.Ready(diff.NewJacobian(nil, make([]diff.Real, rowCount))),
	}
	if flags&FlagBoundaryTest != 0 {
		si.BoundaryTest = math.Inf(1)
	}
	return si
}
