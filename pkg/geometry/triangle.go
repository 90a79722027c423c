package geometry

import (
	"github.com/df07/go-mesh-interaction/pkg/core"
)

// IntersectTriangle tests a ray against the triangle (v0, v1, v2) using the
// Möller-Trumbore algorithm. It returns the hit distance and the barycentric
// coordinates (u, v) of v1 and v2. Degenerate or non-finite triangles never
// report a hit.
func IntersectTriangle(ray core.Ray, v0, v1, v2 core.Vec3) (t, u, v float64, ok bool) {
	const epsilon = 1e-12

	// Calculate two edge vectors
	edge1 := v1.Subtract(v0)
	edge2 := v2.Subtract(v0)

	// Calculate determinant
	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)

	// If determinant is near zero, ray lies in plane of triangle. NaN fails
	// the comparison as well.
	if !(a < -epsilon || a > epsilon) {
		return 0, 0, 0, false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(v0)
	u = f * s.Dot(h)

	// Negated comparisons reject NaN
	if !(u >= 0.0 && u <= 1.0) {
		return 0, 0, 0, false
	}

	q := s.Cross(edge1)
	v = f * ray.Direction.Dot(q)

	if !(v >= 0.0 && u+v <= 1.0) {
		return 0, 0, 0, false
	}

	t = f * edge2.Dot(q)
	if !ray.Contains(t) {
		return 0, 0, 0, false
	}
	return t, u, v, true
}
