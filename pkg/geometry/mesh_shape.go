package geometry

import (
	"github.com/df07/go-mesh-interaction/pkg/core"
	"github.com/df07/go-mesh-interaction/pkg/diff"
	"github.com/df07/go-mesh-interaction/pkg/mesh"
)

// MeshShape adapts a mesh to the Shape interface
type MeshShape struct {
	*mesh.Mesh
}

// NewMeshShape wraps m
func NewMeshShape(m *mesh.Mesh) *MeshShape {
	return &MeshShape{Mesh: m}
}

// PrimitiveCount returns the number of triangles
func (s *MeshShape) PrimitiveCount() int {
	return s.FaceCount()
}

// IntersectPreliminary returns the nearest triangle hit among prims, or
// among all faces when prims is nil
func (s *MeshShape) IntersectPreliminary(ray core.Ray, prims []int) PreliminaryIntersection {
	best := Miss()
	visit := func(f int) {
		v0, v1, v2 := s.FaceVertices(f)
		t, u, v, ok := IntersectTriangle(ray, v0, v1, v2)
		if ok && t < best.T {
			best = PreliminaryIntersection{T: t, PrimIndex: f, PrimUV: core.NewVec2(u, v), Shape: s}
		}
	}

	if prims == nil {
		for f := 0; f < s.FaceCount(); f++ {
			visit(f)
		}
	} else {
		for _, f := range prims {
			visit(f)
		}
	}
	return best
}

// ComputeSurfaceInteraction expands a preliminary hit on this mesh
func (s *MeshShape) ComputeSurfaceInteraction(pi PreliminaryIntersection, ray diff.Ray, flags RayFlags, cfg diff.Config) *SurfaceInteraction {
	if !pi.IsValid() || pi.PrimIndex < 0 || pi.PrimIndex >= s.FaceCount() {
		return missInteraction(ray, flags)
	}

	e := s.newExpansion(pi, ray, flags)
	if flags&FlagBoundaryTest != 0 && !s.shadingNormals() {
		v0, v1, v2 := s.FaceVertices(pi.PrimIndex)
		hit := v0.Multiply(1 - pi.PrimUV.X - pi.PrimUV.Y).
			Add(v1.Multiply(pi.PrimUV.X)).
			Add(v2.Multiply(pi.PrimUV.Y))
		e.edge = s.nearestSilhouette(hit, ray.Direction.Value.Normalize())
	}

	si := e.interaction(cfg)
	si.valid = ray.Detach().Contains(si.T)
	return si
}

// shadingNormals reports whether shading interpolates vertex normals
func (s *MeshShape) shadingNormals() bool {
	return s.HasVertexNormals() && !s.FaceNormals()
}

func (s *MeshShape) newExpansion(pi PreliminaryIntersection, ray diff.Ray, flags RayFlags) *expansion {
	att := attachment{
		origin:    ray.Origin.GradEnabled(),
		direction: ray.Direction.GradEnabled(),
	}
	if flags&FlagDetachShape == 0 {
		att.positions = s.Positions().GradEnabled()
		if s.shadingNormals() {
			normals, _ := s.Normals()
			att.normals = normals.GradEnabled()
		}
		if texcoords, err := s.Texcoords(); err == nil {
			att.texcoords = texcoords.GradEnabled()
		}
	}
	return &expansion{
		shape: s,
		ray:   ray,
		pi:    pi,
		flags: flags,
		att:   att,
		edge:  -1,
	}
}

// binding routes reverse-mode gradients to the buffers that own the lanes
func (e *expansion) binding() diff.Binding {
	b := diff.Binding{
		Origin:    &e.ray.Origin,
		Direction: &e.ray.Direction,
		Positions: e.shape.Positions(),
	}
	if normals, err := e.shape.Normals(); err == nil {
		b.Normals = normals
	}
	if texcoords, err := e.shape.Texcoords(); err == nil {
		b.Texcoords = texcoords
	}
	return b
}

// shadingFrame orthogonalizes dpdu against n; degenerate tangents fall back
// to an arbitrary frame around n
func shadingFrame(n, dpdu core.Vec3) core.Frame {
	s := dpdu.Subtract(n.Multiply(n.Dot(dpdu))).Normalize()
	if s.LengthSquared() == 0 || !s.IsFinite() {
		return core.NewFrame(n)
	}
	return core.Frame{S: s, T: n.Cross(s), N: n}
}
