package geometry

import (
	"context"
	"math"
	"testing"

	"github.com/df07/go-mesh-interaction/pkg/core"
	"github.com/df07/go-mesh-interaction/pkg/diff"
)

func TestBVH_MatchesShapeList(t *testing.T) {
	s := newHalfCylinder(t, 32)
	rays := gridRays(20)
	cfg := diff.Config{Workers: 2, ChunkSize: 32}

	bruteForce, err := NewEngine(ShapeList{s}, cfg).IntersectPreliminary(context.Background(), plainRays(rays))
	if err != nil {
		t.Fatalf("IntersectPreliminary failed: %v", err)
	}
	accelerated, err := NewEngine(NewBVH(s), cfg).IntersectPreliminary(context.Background(), plainRays(rays))
	if err != nil {
		t.Fatalf("IntersectPreliminary failed: %v", err)
	}

	hits := 0
	for i := range rays {
		want, got := bruteForce[i], accelerated[i]
		if want.IsValid() != got.IsValid() {
			t.Fatalf("Ray %d: expected valid=%v, got %v", i, want.IsValid(), got.IsValid())
		}
		if !want.IsValid() {
			continue
		}
		hits++
		if math.Abs(want.T-got.T) > tolerance {
			t.Errorf("Ray %d: expected t=%v, got %v", i, want.T, got.T)
		}
	}
	if hits == 0 {
		t.Error("Expected some rays to hit the cylinder")
	}
}

func TestBVH_Stats(t *testing.T) {
	s := newHalfCylinder(t, 32)
	bvh := NewBVH(s)
	stats := bvh.Stats()

	if stats.TotalPrims != s.FaceCount() {
		t.Errorf("Expected %d triangles, got %d", s.FaceCount(), stats.TotalPrims)
	}
	if stats.LeafNodes < 2 {
		t.Errorf("Expected the tree to split, got %d leaves", stats.LeafNodes)
	}
	if stats.TotalNodes != 2*stats.LeafNodes-1 {
		t.Errorf("Expected a full binary tree, got %d nodes for %d leaves", stats.TotalNodes, stats.LeafNodes)
	}

	var walk func(n *BVHNode)
	walk = func(n *BVHNode) {
		if n.isLeaf() {
			if len(n.prims) > leafThreshold {
				t.Errorf("Leaf holds %d triangles", len(n.prims))
			}
			return
		}
		walk(n.Left)
		walk(n.Right)
	}
	walk(bvh.Root)

	if !bvhBoxClose(bvh.BoundingBox(), s.BoundingBox()) {
		t.Errorf("Expected root box %v, got %v", s.BoundingBox(), bvh.BoundingBox())
	}
}

func TestBVH_Candidates(t *testing.T) {
	a := newHalfCylinder(t, 16)
	b := newHalfCylinder(t, 16)
	for i := 0; i < b.VertexCount(); i++ {
		b.SetVertex(i, b.Vertex(i).Add(core.NewVec3(10, 0, 0)))
	}
	if err := b.ParametersChanged(); err != nil {
		t.Fatalf("ParametersChanged failed: %v", err)
	}
	bvh := NewBVH(a, b)

	tests := []struct {
		name      string
		ray       core.Ray
		wantShape Shape
	}{
		{"first shape", rayDown(0.2, 0.3), a},
		{"second shape", rayDown(10.2, 0.3), b},
		{"between", rayDown(5, 0), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cands := bvh.Candidates(tt.ray)
			if tt.wantShape == nil {
				if len(cands) != 0 {
					t.Errorf("Expected no candidates, got %d", len(cands))
				}
				return
			}
			if len(cands) != 1 || cands[0].Shape != tt.wantShape {
				t.Fatalf("Expected one candidate on the hit shape, got %+v", cands)
			}
			if len(cands[0].Prims) == 0 {
				t.Error("Expected candidate triangles")
			}
		})
	}

	t.Run("empty", func(t *testing.T) {
		if cands := NewBVH().Candidates(rayDown(0, 0)); cands != nil {
			t.Errorf("Expected nil candidates, got %v", cands)
		}
	})
}

func TestBVH_Refit(t *testing.T) {
	s := newHalfCylinder(t, 16)
	bvh := NewBVH(s)
	engine := NewEngine(bvh, diff.Config{Workers: 1})
	shifted := []core.Ray{rayDown(5.1, 0.2)}

	for i := 0; i < s.VertexCount(); i++ {
		s.SetVertex(i, s.Vertex(i).Add(core.NewVec3(5, 0, 0)))
	}
	if err := s.ParametersChanged(); err != nil {
		t.Fatalf("ParametersChanged failed: %v", err)
	}

	// The stale tree still bounds the old positions
	pis, err := engine.IntersectPreliminary(context.Background(), shifted)
	if err != nil {
		t.Fatalf("IntersectPreliminary failed: %v", err)
	}
	if pis[0].IsValid() {
		t.Errorf("Expected a miss before refitting, got t=%v", pis[0].T)
	}

	bvh.Refit()
	pis, err = engine.IntersectPreliminary(context.Background(), shifted)
	if err != nil {
		t.Fatalf("IntersectPreliminary failed: %v", err)
	}
	if !pis[0].IsValid() {
		t.Fatal("Expected a hit after refitting")
	}
	// x = 0.1 on the unit half cylinder facing -z
	want := 10 - math.Sqrt(1-0.1*0.1)
	if math.Abs(pis[0].T-want) > 0.02 {
		t.Errorf("Expected t near %v, got %v", want, pis[0].T)
	}
	if !bvhBoxClose(bvh.BoundingBox(), s.BoundingBox()) {
		t.Errorf("Expected refitted box %v, got %v", s.BoundingBox(), bvh.BoundingBox())
	}
}

func plainRays(rays []diff.Ray) []core.Ray {
	out := make([]core.Ray, len(rays))
	for i, r := range rays {
		out[i] = r.Detach()
	}
	return out
}

func bvhBoxClose(a, b core.AABB) bool {
	return vecClose(a.Min, b.Min) && vecClose(a.Max, b.Max)
}
