package geometry

import (
	"math"

	"github.com/df07/go-mesh-interaction/pkg/core"
	"github.com/df07/go-mesh-interaction/pkg/diff"
	"github.com/df07/go-mesh-interaction/pkg/mesh"
)

// The boundary test is a continuous proxy for the distance to the nearest
// visibility discontinuity:
//
//   - curved meshes (interpolated vertex normals) use |cos| of the angle
//     between the shading normal and the ray, which vanishes at the limb;
//   - flat meshes use the distance, measured in the plane orthogonal to the
//     ray, from the hit point to the closest silhouette edge;
//   - a miss reports +Inf.

// nearestSilhouette returns the index into Edges() of the silhouette edge
// closest to p as seen along dir, or -1 when the mesh has none
func (s *MeshShape) nearestSilhouette(p, dir core.Vec3) int {
	best, bestDist := -1, math.Inf(1)
	for i, e := range s.Edges() {
		if !s.isSilhouette(e, dir) {
			continue
		}
		dist := segmentDistance(p, s.Vertex(int(e.V0)), s.Vertex(int(e.V1)), dir)
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// isSilhouette reports whether e separates visible from hidden surface when
// viewed along dir: boundary and non-manifold edges always do, interior
// edges do when their two faces face opposite ways
func (s *MeshShape) isSilhouette(e mesh.Edge, dir core.Vec3) bool {
	if len(e.Faces) != 2 {
		return true
	}
	return s.facesAlong(e.Faces[0], dir) != s.facesAlong(e.Faces[1], dir)
}

func (s *MeshShape) facesAlong(f int, dir core.Vec3) bool {
	v0, v1, v2 := s.FaceVertices(f)
	return v1.Subtract(v0).Cross(v2.Subtract(v0)).Dot(dir) > 0
}

// segmentDistance is the distance from p to the segment [a, b] after
// projecting both onto the plane orthogonal to the unit vector dir
func segmentDistance(p, a, b, dir core.Vec3) float64 {
	project := func(x core.Vec3) core.Vec3 {
		return x.Subtract(dir.Multiply(dir.Dot(x)))
	}
	ap := project(p.Subtract(a))
	ab := project(b.Subtract(a))
	s := 0.0
	if l2 := ab.LengthSquared(); l2 > 0 {
		s = math.Max(0, math.Min(1, ap.Dot(ab)/l2))
	}
	return ap.Subtract(ab.Multiply(s)).Length()
}

// projectedSegmentDistance is segmentDistance over dual values
func projectedSegmentDistance(p, a, b, dir diff.Vec3) diff.Real {
	project := func(x diff.Vec3) diff.Vec3 {
		return x.Sub(dir.Mul(dir.Dot(x)))
	}
	ap := project(p.Sub(a))
	ab := project(b.Sub(a))
	s := diff.Const(0)
	if l2 := ab.LengthSquared(); l2.V > 0 {
		s = ap.Dot(ab).Div(l2).Clamp(0, 1)
	}
	return ap.Sub(ab.Mul(s)).Length()
}
