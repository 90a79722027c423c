package core

import "math"

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min Vec3 // Minimum corner
	Max Vec3 // Maximum corner
}

// NewAABB creates a new AABB from min and max points
func NewAABB(min, max Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// EmptyAABB returns the identity box for ExpandPoint: min=+Inf, max=-Inf
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: NewVec3(inf, inf, inf),
		Max: NewVec3(-inf, -inf, -inf),
	}
}

// NewAABBFromPoints creates an AABB that bounds all given points
func NewAABBFromPoints(points ...Vec3) AABB {
	if len(points) == 0 {
		return EmptyAABB()
	}

	box := AABB{Min: points[0], Max: points[0]}
	for _, point := range points[1:] {
		box = box.ExpandPoint(point)
	}
	return box
}

// ExpandPoint returns the smallest AABB containing this box and p
func (aabb AABB) ExpandPoint(p Vec3) AABB {
	return AABB{
		Min: Vec3{
			X: math.Min(aabb.Min.X, p.X),
			Y: math.Min(aabb.Min.Y, p.Y),
			Z: math.Min(aabb.Min.Z, p.Z),
		},
		Max: Vec3{
			X: math.Max(aabb.Max.X, p.X),
			Y: math.Max(aabb.Max.Y, p.Y),
			Z: math.Max(aabb.Max.Z, p.Z),
		},
	}
}

// Hit tests if a ray intersects with this AABB using the slab method
func (aabb AABB) Hit(ray Ray, tMin, tMax float64) bool {
	for axis := 0; axis < 3; axis++ {
		min := aabb.Min.Component(axis)
		max := aabb.Max.Component(axis)
		origin := ray.Origin.Component(axis)
		direction := ray.Direction.Component(axis)

		// Handle parallel rays (direction near zero)
		if math.Abs(direction) < 1e-8 {
			if origin < min || origin > max {
				return false
			}
			continue
		}

		invDirection := 1.0 / direction
		t1 := (min - origin) * invDirection
		t2 := (max - origin) * invDirection
		if t1 > t2 {
			t1, t2 = t2, t1
		}

		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return false
		}
	}

	return true
}

// Union returns an AABB that bounds both this AABB and another
func (aabb AABB) Union(other AABB) AABB {
	min := Vec3{
		X: math.Min(aabb.Min.X, other.Min.X),
		Y: math.Min(aabb.Min.Y, other.Min.Y),
		Z: math.Min(aabb.Min.Z, other.Min.Z),
	}
	max := Vec3{
		X: math.Max(aabb.Max.X, other.Max.X),
		Y: math.Max(aabb.Max.Y, other.Max.Y),
		Z: math.Max(aabb.Max.Z, other.Max.Z),
	}
	return AABB{Min: min, Max: max}
}

// Center returns the center point of the AABB
func (aabb AABB) Center() Vec3 {
	return aabb.Min.Add(aabb.Max).Multiply(0.5)
}

// Size returns the size (extent) of the AABB along each axis
func (aabb AABB) Size() Vec3 {
	return aabb.Max.Subtract(aabb.Min)
}

// LongestAxis returns the axis (0=X, 1=Y, 2=Z) with the longest extent
func (aabb AABB) LongestAxis() int {
	size := aabb.Size()
	if size.X > size.Y && size.X > size.Z {
		return 0
	}
	if size.Y > size.Z {
		return 1
	}
	return 2
}

// IsValid returns true if this is a valid AABB (min <= max for all axes)
func (aabb AABB) IsValid() bool {
	return aabb.Min.X <= aabb.Max.X &&
		aabb.Min.Y <= aabb.Max.Y &&
		aabb.Min.Z <= aabb.Max.Z
}

// Rect is an axis-aligned rectangle in a 2D parameter domain
type Rect struct {
	Min, Max Vec2
}

// EmptyRect returns the identity rectangle for ExpandPoint
func EmptyRect() Rect {
	inf := math.Inf(1)
	return Rect{Min: NewVec2(inf, inf), Max: NewVec2(-inf, -inf)}
}

// ExpandPoint returns the smallest rectangle containing r and p
func (r Rect) ExpandPoint(p Vec2) Rect {
	return Rect{
		Min: NewVec2(math.Min(r.Min.X, p.X), math.Min(r.Min.Y, p.Y)),
		Max: NewVec2(math.Max(r.Max.X, p.X), math.Max(r.Max.Y, p.Y)),
	}
}

// Contains reports whether p lies inside r grown by eps on every side
func (r Rect) Contains(p Vec2, eps float64) bool {
	return p.X >= r.Min.X-eps && p.X <= r.Max.X+eps &&
		p.Y >= r.Min.Y-eps && p.Y <= r.Max.Y+eps
}
