// Package geometry intersects rays with triangle meshes and expands hits
// into differentiable surface interactions.
//
// A query runs in two stages. IntersectPreliminary finds the nearest hit
// (distance, triangle, barycentrics). ComputeSurfaceInteraction expands a
// preliminary hit into positions, normals, texture coordinates, partials and
// the boundary test, together with the local Jacobian of those fields with
// respect to every attached input (ray origin and direction, mesh positions,
// normals and texcoords).
package geometry

import (
	"math"

	"github.com/df07/go-mesh-interaction/pkg/core"
	"github.com/df07/go-mesh-interaction/pkg/diff"
)

// Shape is the capability set the engine needs from a surface
type Shape interface {
	// IntersectPreliminary returns the nearest hit among prims (all
	// primitives when prims is nil)
	IntersectPreliminary(ray core.Ray, prims []int) PreliminaryIntersection
	ComputeSurfaceInteraction(pi PreliminaryIntersection, ray diff.Ray, flags RayFlags, cfg diff.Config) *SurfaceInteraction
	EvalParameterization(uv core.Vec2, flags RayFlags, cfg diff.Config) *SurfaceInteraction
	BoundingBox() core.AABB
	SurfaceArea() float64
	PrimitiveCount() int
}

// PreliminaryIntersection is the lightweight result of a ray query. T is
// +Inf and Shape nil when nothing was hit.
type PreliminaryIntersection struct {
	T         float64
	PrimIndex int
	PrimUV    core.Vec2
	Shape     Shape
}

// Miss returns the empty preliminary intersection
func Miss() PreliminaryIntersection {
	return PreliminaryIntersection{T: math.Inf(1), PrimIndex: -1}
}

// IsValid reports whether the query hit something
func (pi PreliminaryIntersection) IsValid() bool {
	return pi.Shape != nil && !math.IsInf(pi.T, 1)
}

// ComputeSurfaceInteraction expands the hit. A miss yields an invalid
// interaction whose boundary test holds the miss sentinel.
func (pi PreliminaryIntersection) ComputeSurfaceInteraction(ray diff.Ray, flags RayFlags, cfg diff.Config) *SurfaceInteraction {
	if !pi.IsValid() {
		return missInteraction(ray, flags)
	}
	return pi.Shape.ComputeSurfaceInteraction(pi, ray, flags, cfg)
}
