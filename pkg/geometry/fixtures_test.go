package geometry

import (
	"math"
	"testing"

	"github.com/df07/go-mesh-interaction/pkg/core"
	"github.com/df07/go-mesh-interaction/pkg/diff"
	"github.com/df07/go-mesh-interaction/pkg/mesh"
)

const tolerance = 1e-5

// newRectangle is the square [-1, 1]² in the z=0 plane, split along the
// diagonal from (1, -1) to (-1, 1), with uv = (p + 1) / 2
func newRectangle(t *testing.T, withTexcoords bool) *MeshShape {
	t.Helper()
	positions := []float32{
		1, -1, 0,
		-1, 1, 0,
		-1, -1, 0,
		1, 1, 0,
	}
	faces := []uint32{0, 1, 2, 0, 3, 1}
	var texcoords []float32
	if withTexcoords {
		texcoords = []float32{1, 0, 0, 1, 0, 0, 1, 1}
	}

	m, err := mesh.NewFromBuffers("rectangle", positions, faces, nil, texcoords,
		mesh.Options{HasVertexTexcoords: withTexcoords})
	if err != nil {
		t.Fatalf("failed to create rectangle: %v", err)
	}
	return NewMeshShape(m)
}

// newHalfCylinder is the unit-radius half cylinder around the y axis that
// faces -z, with analytic vertex normals
func newHalfCylinder(t *testing.T, segments int) *MeshShape {
	t.Helper()
	var positions, normals []float32
	var faces []uint32
	for i := 0; i <= segments; i++ {
		theta := math.Pi * float64(i) / float64(segments)
		x, z := float32(math.Cos(theta)), float32(-math.Sin(theta))
		positions = append(positions, x, -1, z, x, 1, z)
		normals = append(normals, x, 0, z, x, 0, z)
	}
	for i := 0; i < segments; i++ {
		a := uint32(2 * i)
		faces = append(faces, a, a+2, a+1, a+1, a+2, a+3)
	}

	m, err := mesh.NewFromBuffers("half_cylinder", positions, faces, normals, nil,
		mesh.Options{HasVertexNormals: true})
	if err != nil {
		t.Fatalf("failed to create cylinder: %v", err)
	}
	return NewMeshShape(m)
}

// rayDown is a ray starting at z=-10 travelling along +z
func rayDown(x, y float64) core.Ray {
	return core.NewRay(core.NewVec3(x, y, -10), core.NewVec3(0, 0, 1))
}

// interact traces ray against s and expands the hit
func interact(t *testing.T, s Shape, ray diff.Ray, flags RayFlags, cfg diff.Config) *SurfaceInteraction {
	t.Helper()
	pi := s.IntersectPreliminary(ray.Detach(), nil)
	return pi.ComputeSurfaceInteraction(ray, flags, cfg)
}

func eager() diff.Config {
	return diff.Config{Mode: diff.ModeEager}
}

func vecClose(a, b core.Vec3) bool {
	return math.Abs(a.X-b.X) < tolerance && math.Abs(a.Y-b.Y) < tolerance && math.Abs(a.Z-b.Z) < tolerance
}

func vec2Close(a, b core.Vec2) bool {
	return math.Abs(a.X-b.X) < tolerance && math.Abs(a.Y-b.Y) < tolerance
}

// translation returns a positions tangent that moves every vertex by dir
func translation(m *mesh.Mesh, dir core.Vec3) []float64 {
	out := make([]float64, 3*m.VertexCount())
	for i := 0; i < m.VertexCount(); i++ {
		out[3*i], out[3*i+1], out[3*i+2] = dir.X, dir.Y, dir.Z
	}
	return out
}
