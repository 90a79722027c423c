package core

import "math"

// Ray represents a ray with an origin, a direction and a valid distance
// interval [MinT, MaxT]. Wavelengths is an optional spectral channel that is
// carried through untouched.
type Ray struct {
	Origin      Vec3
	Direction   Vec3
	MinT        float64
	MaxT        float64
	Wavelengths []float64
}

// NewRay creates a new ray valid over [0, +Inf)
func NewRay(origin, direction Vec3) Ray {
	return Ray{Origin: origin, Direction: direction, MinT: 0, MaxT: math.Inf(1)}
}

// NewRayInterval creates a ray valid over [minT, maxT]
func NewRayInterval(origin, direction Vec3, minT, maxT float64) Ray {
	return Ray{Origin: origin, Direction: direction, MinT: minT, MaxT: maxT}
}

// At returns the point at parameter t along the ray
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Multiply(t))
}

// Contains reports whether t is finite and inside the ray's valid interval
func (r Ray) Contains(t float64) bool {
	return !math.IsInf(t, 0) && !math.IsNaN(t) && t >= r.MinT && t <= r.MaxT
}
