package core

import (
	"math"
	"testing"
)

func TestAABB_FromPoints(t *testing.T) {
	box := NewAABBFromPoints(
		NewVec3(0, 0, 0),
		NewVec3(1, 0.2, 0),
		NewVec3(0.2, 1, 0),
	)

	if !box.Min.Equals(NewVec3(0, 0, 0)) {
		t.Errorf("Expected min (0,0,0), got %v", box.Min)
	}
	if !box.Max.Equals(NewVec3(1, 1, 0)) {
		t.Errorf("Expected max (1,1,0), got %v", box.Max)
	}
	if !box.IsValid() {
		t.Error("Expected valid box")
	}
}

func TestAABB_Empty(t *testing.T) {
	box := EmptyAABB()
	if box.IsValid() {
		t.Error("Expected empty box to be invalid")
	}
	if !math.IsInf(box.Min.X, 1) || !math.IsInf(box.Max.X, -1) {
		t.Errorf("Expected +Inf/-Inf corners, got %v", box)
	}

	box = box.ExpandPoint(NewVec3(1, 2, 3))
	if !box.Min.Equals(box.Max) || !box.Min.Equals(NewVec3(1, 2, 3)) {
		t.Errorf("Expected degenerate box at (1,2,3), got %v", box)
	}
}

func TestAABB_Hit(t *testing.T) {
	box := NewAABB(NewVec3(-1, -1, -1), NewVec3(1, 1, 1))

	tests := []struct {
		name     string
		ray      Ray
		expected bool
	}{
		{"Through center", NewRay(NewVec3(0, 0, -5), NewVec3(0, 0, 1)), true},
		{"Parallel inside slab", NewRay(NewVec3(0.5, 0.5, -5), NewVec3(0, 0, 1)), true},
		{"Parallel outside slab", NewRay(NewVec3(2, 0, -5), NewVec3(0, 0, 1)), false},
		{"Pointing away", NewRay(NewVec3(0, 0, -5), NewVec3(0, 0, -1)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := box.Hit(tt.ray, 0, math.Inf(1)); got != tt.expected {
				t.Errorf("Expected hit=%v, got %v", tt.expected, got)
			}
		})
	}
}

func TestRect_Contains(t *testing.T) {
	r := EmptyRect().ExpandPoint(NewVec2(0, 0)).ExpandPoint(NewVec2(1, 0.5))

	if !r.Contains(NewVec2(0.5, 0.25), 0) {
		t.Error("Expected interior point to be contained")
	}
	if r.Contains(NewVec2(-0.01, 0.25), 0) {
		t.Error("Expected point left of the rectangle to be rejected")
	}
	if !r.Contains(NewVec2(-0.01, 0.25), 0.1) {
		t.Error("Expected point within eps to be contained")
	}
}

func TestAABB_LongestAxis(t *testing.T) {
	tests := []struct {
		name     string
		max      Vec3
		expected int
	}{
		{"x", NewVec3(3, 1, 1), 0},
		{"y", NewVec3(1, 3, 1), 1},
		{"z", NewVec3(1, 1, 3), 2},
		{"x and y tie", NewVec3(2, 2, 1), 1},
		{"cube", NewVec3(1, 1, 1), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box := NewAABB(NewVec3(0, 0, 0), tt.max)
			if got := box.LongestAxis(); got != tt.expected {
				t.Errorf("Expected axis %d, got %d", tt.expected, got)
			}
		})
	}
}
