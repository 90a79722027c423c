package mesh

import (
	"errors"
	"math"
	"testing"

	"github.com/df07/go-mesh-interaction/pkg/core"
)

func TestUpdate_RecomputesOnlyDependents(t *testing.T) {
	tests := []struct {
		name  string
		dirty []string
		want  Cache
	}{
		{"nothing", nil, 0},
		{"positions", []string{ParamPositions}, CacheBounds | CacheArea | CacheNormals},
		{"faces", []string{ParamFaces}, CacheArea | CacheNormals | CacheEdges | CacheUVBounds},
		{"texcoords", []string{ParamTexcoords}, CacheUVBounds},
		{"normals", []string{ParamNormals}, 0},
		{"positions and normals", []string{ParamPositions, ParamNormals}, CacheBounds | CacheArea},
		{"attribute", []string{"vertex_weight"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New("quad", 4, 2, Options{HasVertexNormals: true, HasVertexTexcoords: true})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			copy(m.Positions().Data, []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0})
			copy(m.Faces(), []uint32{0, 1, 2, 0, 2, 3})
			if err := m.AddAttribute("vertex_weight", 1, make([]float32, 4)); err != nil {
				t.Fatalf("AddAttribute failed: %v", err)
			}
			if err := m.ParametersChanged(); err != nil {
				t.Fatalf("ParametersChanged failed: %v", err)
			}

			for _, name := range tt.dirty {
				if err := m.SetDirty(name); err != nil {
					t.Fatalf("SetDirty(%s) failed: %v", name, err)
				}
			}
			got, err := m.Update()
			if err != nil {
				t.Fatalf("Update failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected caches %v, got %v", tt.want, got)
			}

			// dirty flags are consumed
			again, _ := m.Update()
			if again != 0 {
				t.Errorf("Expected second update to be a no-op, got %v", again)
			}
		})
	}
}

func TestUpdate_TranslatedPositions(t *testing.T) {
	m := newTriangleFan(t)
	before := m.SurfaceArea()

	pos := m.Positions().Data
	for i := 0; i < len(pos); i += 3 {
		pos[i+2] += 10
	}
	if err := m.SetDirty(ParamPositions); err != nil {
		t.Fatalf("SetDirty failed: %v", err)
	}
	if _, err := m.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	box := m.BoundingBox()
	if box.Min.Z != 10 || box.Max.Z != 10 {
		t.Errorf("Expected z bounds [10, 10], got [%v, %v]", box.Min.Z, box.Max.Z)
	}
	if got := m.SurfaceArea(); math.Abs(got-before) > tolerance {
		t.Errorf("Expected translation to preserve area %v, got %v", before, got)
	}
}

func TestUpdate_SuppliedNormalsKept(t *testing.T) {
	positions := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	normals := []float32{0, 1, 0, 0, 1, 0, 0, 1, 0}
	m, err := NewFromBuffers("tri", positions, []uint32{0, 1, 2}, normals, nil, Options{})
	if err != nil {
		t.Fatalf("NewFromBuffers failed: %v", err)
	}
	m.SetVertex(2, core.NewVec3(0, 2, 0))
	done, err := m.Update()
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if done&CacheNormals != 0 {
		t.Errorf("Expected supplied normals to be kept, got %v", done)
	}
	if got := m.VertexNormal(0); !got.Equals(core.NewVec3(0, 1, 0)) {
		t.Errorf("Expected normal (0,1,0), got %v", got)
	}
}

func TestUpdate_InvalidFace(t *testing.T) {
	m := newTriangleFan(t)
	m.Faces()[0] = 7
	if err := m.SetDirty(ParamFaces); err != nil {
		t.Fatalf("SetDirty failed: %v", err)
	}
	if _, err := m.Update(); !errors.Is(err, ErrFaceIndex) {
		t.Errorf("Expected ErrFaceIndex, got %v", err)
	}
}

func TestSetDirty_Unknown(t *testing.T) {
	m := newTriangleFan(t)
	tests := []string{"bsdf.reflectance.value", ParamNormals, ParamTexcoords}
	for _, name := range tests {
		if err := m.SetDirty(name); !errors.Is(err, ErrUnknownParameter) {
			t.Errorf("SetDirty(%q): expected ErrUnknownParameter, got %v", name, err)
		}
	}
}

func TestMarkDirty(t *testing.T) {
	m := newTriangleFan(t)
	m.SurfaceArea()
	m.MarkDirty()
	if _, ok := m.areaComputed(); ok {
		t.Error("Expected MarkDirty to invalidate the area")
	}
	done, err := m.Update()
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if done&CacheBounds == 0 || done&CacheEdges == 0 {
		t.Errorf("Expected bounds and edges after MarkDirty, got %v", done)
	}
}

func TestParameters(t *testing.T) {
	m, _ := New("m", 3, 1, Options{HasVertexTexcoords: true})
	if err := m.AddAttribute("face_id", 1, []float32{4}); err != nil {
		t.Fatalf("AddAttribute failed: %v", err)
	}
	got := m.Parameters()
	want := []string{ParamPositions, ParamTexcoords, ParamFaces, "face_id"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
		}
	}
}
