package mesh

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/df07/go-mesh-interaction/pkg/core"
)

const tolerance = 1e-6

// newTriangleFan is the two-face mesh used by the debug string checks
func newTriangleFan(t *testing.T) *Mesh {
	t.Helper()
	m, err := New("MyMesh", 3, 2, Options{})
	if err != nil {
		t.Fatalf("failed to create mesh: %v", err)
	}
	copy(m.Positions().Data, []float32{0, 0, 0, 1, 0.2, 0, 0.2, 1, 0})
	copy(m.Faces(), []uint32{0, 1, 2, 1, 2, 0})
	if err := m.ParametersChanged(); err != nil {
		t.Fatalf("ParametersChanged failed: %v", err)
	}
	return m
}

func TestNew_Buffers(t *testing.T) {
	tests := []struct {
		name          string
		opts          Options
		wantNormals   bool
		wantTexcoords bool
	}{
		{"plain", Options{}, false, false},
		{"normals", Options{HasVertexNormals: true}, true, false},
		{"texcoords", Options{HasVertexTexcoords: true}, false, true},
		{"face normals win", Options{HasVertexNormals: true, FaceNormals: true}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New("m", 4, 2, tt.opts)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if m.Positions().Len() != 12 || len(m.Faces()) != 6 {
				t.Errorf("Expected 12 positions and 6 indices, got %d and %d", m.Positions().Len(), len(m.Faces()))
			}
			if m.HasVertexNormals() != tt.wantNormals {
				t.Errorf("Expected normals=%v", tt.wantNormals)
			}
			_, err = m.Normals()
			if tt.wantNormals != (err == nil) {
				t.Errorf("Normals() error = %v, expected present=%v", err, tt.wantNormals)
			}
			if !tt.wantNormals && !errors.Is(err, ErrBufferMissing) {
				t.Errorf("Expected ErrBufferMissing, got %v", err)
			}
			_, err = m.Texcoords()
			if tt.wantTexcoords != (err == nil) {
				t.Errorf("Texcoords() error = %v, expected present=%v", err, tt.wantTexcoords)
			}
			if m.Kind() != KindMesh {
				t.Errorf("Expected kind %q, got %q", KindMesh, m.Kind())
			}
		})
	}
}

func TestNew_NegativeCount(t *testing.T) {
	if _, err := New("bad", -1, 0, Options{}); !errors.Is(err, ErrBufferSize) {
		t.Errorf("Expected ErrBufferSize, got %v", err)
	}
}

func TestNewFromBuffers_Validation(t *testing.T) {
	positions := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}

	tests := []struct {
		name      string
		positions []float32
		faces     []uint32
		normals   []float32
		texcoords []float32
		wantErr   error
	}{
		{"ok", positions, []uint32{0, 1, 2}, nil, nil, nil},
		{"ragged positions", positions[:8], []uint32{0, 1, 2}, nil, nil, ErrBufferSize},
		{"ragged faces", positions, []uint32{0, 1}, nil, nil, ErrBufferSize},
		{"bad index", positions, []uint32{0, 1, 3}, nil, nil, ErrFaceIndex},
		{"short normals", positions, []uint32{0, 1, 2}, make([]float32, 6), nil, ErrBufferSize},
		{"short texcoords", positions, []uint32{0, 1, 2}, nil, make([]float32, 4), ErrBufferSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFromBuffers("tri", tt.positions, tt.faces, tt.normals, tt.texcoords, Options{})
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Expected success, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewFromBuffers_ComputesMissingNormals(t *testing.T) {
	positions := []float32{0, 0, 0, 0, 0, 1, 0, 1, 0}
	m, err := NewFromBuffers("triangle.ply", positions, []uint32{0, 1, 2}, nil, nil,
		Options{HasVertexNormals: true, Kind: KindPLYMesh})
	if err != nil {
		t.Fatalf("NewFromBuffers failed: %v", err)
	}
	normals, err := m.Normals()
	if err != nil {
		t.Fatalf("Normals failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		got := []float64{normals.At(3 * i), normals.At(3*i + 1), normals.At(3*i + 2)}
		if !floats.EqualApprox(got, []float64{-1, 0, 0}, tolerance) {
			t.Errorf("Vertex %d: expected normal (-1,0,0), got %v", i, got)
		}
	}
	want := core.NewAABB(core.NewVec3(0, 0, 0), core.NewVec3(0, 1, 1))
	if got := m.BoundingBox(); !got.Min.Equals(want.Min) || !got.Max.Equals(want.Max) {
		t.Errorf("Expected bbox %v, got %v", want, got)
	}
}

func TestRecomputeVertexNormals_AngleWeighted(t *testing.T) {
	m, err := New("MyMesh", 5, 2, Options{HasVertexNormals: true})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	a, b := float32(1.0), float32(0.5)
	copy(m.Positions().Data, []float32{0, 0, 0, -a, 1, 0, a, 1, 0, -b, 0, 1, b, 0, 1})
	copy(m.Faces(), []uint32{0, 1, 2, 0, 3, 4})

	if err := m.RecomputeVertexNormals(); err != nil {
		t.Fatalf("RecomputeVertexNormals failed: %v", err)
	}

	n0 := core.NewVec3(0, 0, -1)
	n1 := core.NewVec3(0, 1, 0)
	shared := n0.Multiply(math.Pi / 2).Add(n1.Multiply(math.Acos(3.0 / 5.0))).Normalize()
	expected := []core.Vec3{shared, n0, n0, n1, n1}

	for i, want := range expected {
		got := m.VertexNormal(i)
		if !floats.EqualApprox([]float64{got.X, got.Y, got.Z}, []float64{want.X, want.Y, want.Z}, 5e-4) {
			t.Errorf("Vertex %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestRecomputeVertexNormals_Missing(t *testing.T) {
	m, _ := New("flat", 3, 1, Options{})
	if err := m.RecomputeVertexNormals(); !errors.Is(err, ErrBufferMissing) {
		t.Errorf("Expected ErrBufferMissing, got %v", err)
	}
}

func TestRecomputeVertexNormals_DegenerateFace(t *testing.T) {
	m, _ := New("degenerate", 4, 2, Options{HasVertexNormals: true})
	// face 1 is collinear and must not disturb the normals of face 0
	copy(m.Positions().Data, []float32{0, 0, 0, 1, 0, 0, 0, 1, 0, 2, 0, 0})
	copy(m.Faces(), []uint32{0, 1, 2, 0, 1, 3})
	if err := m.RecomputeVertexNormals(); err != nil {
		t.Fatalf("RecomputeVertexNormals failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		got := m.VertexNormal(i)
		if math.Abs(got.Z-1) > tolerance {
			t.Errorf("Vertex %d: expected +z normal, got %v", i, got)
		}
	}
	if got := m.VertexNormal(3); got.Length() != 0 {
		t.Errorf("Expected zero normal for a vertex with only degenerate faces, got %v", got)
	}
}

func TestSurfaceAreaAndBounds(t *testing.T) {
	m := newTriangleFan(t)
	if got := m.SurfaceArea(); math.Abs(got-0.96) > tolerance {
		t.Errorf("Expected area 0.96, got %v", got)
	}

	m.SetVertex(1, core.NewVec3(2, 0.2, 0))
	if got := m.BoundingBox().Max.X; got != 1 {
		t.Errorf("Expected stale bbox until update, got max.x %v", got)
	}
	m.RecomputeBoundsAndArea()
	if got := m.BoundingBox().Max.X; got != 2 {
		t.Errorf("Expected max.x 2, got %v", got)
	}
	// 2 * |(2,0.2)x(0.2,1)| / 2
	if got := m.SurfaceArea(); math.Abs(got-1.96) > tolerance {
		t.Errorf("Expected area 1.96, got %v", got)
	}
}

func TestSetFace(t *testing.T) {
	m := newTriangleFan(t)
	if err := m.SetFace(1, [3]uint32{0, 2, 5}); !errors.Is(err, ErrFaceIndex) {
		t.Errorf("Expected ErrFaceIndex, got %v", err)
	}
	if err := m.SetFace(1, [3]uint32{2, 1, 0}); err != nil {
		t.Fatalf("SetFace failed: %v", err)
	}
	if got := m.Face(1); got != [3]uint32{2, 1, 0} {
		t.Errorf("Expected face [2 1 0], got %v", got)
	}
}

func TestParametersChanged_BadFace(t *testing.T) {
	m := newTriangleFan(t)
	m.Faces()[4] = 9
	if err := m.ParametersChanged(); !errors.Is(err, ErrFaceIndex) {
		t.Errorf("Expected ErrFaceIndex, got %v", err)
	}
}

func TestEdges(t *testing.T) {
	// unit square split along its diagonal
	positions := []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}
	m, err := NewFromBuffers("quad", positions, []uint32{0, 1, 2, 0, 2, 3}, nil, nil, Options{})
	if err != nil {
		t.Fatalf("NewFromBuffers failed: %v", err)
	}
	edges := m.Edges()
	if len(edges) != 5 {
		t.Fatalf("Expected 5 edges, got %d", len(edges))
	}
	interior := 0
	for _, e := range edges {
		if e.V0 >= e.V1 {
			t.Errorf("Expected ordered edge, got %d-%d", e.V0, e.V1)
		}
		if len(e.Faces) == 2 {
			interior++
			if e.V0 != 0 || e.V1 != 2 {
				t.Errorf("Expected the diagonal 0-2 to be shared, got %d-%d", e.V0, e.V1)
			}
		}
	}
	if interior != 1 {
		t.Errorf("Expected one shared edge, got %d", interior)
	}
}

func TestFaceUVBounds(t *testing.T) {
	positions := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	texcoords := []float32{0.1, 0.2, 0.9, 0.2, 0.1, 0.7}
	m, err := NewFromBuffers("tri", positions, []uint32{0, 1, 2}, nil, texcoords, Options{})
	if err != nil {
		t.Fatalf("NewFromBuffers failed: %v", err)
	}
	r := m.FaceUVBounds()[0]
	got := []float64{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y}
	if !floats.EqualApprox(got, []float64{0.1, 0.2, 0.9, 0.7}, tolerance) {
		t.Errorf("Expected bounds [0.1 0.2 0.9 0.7], got %v", got)
	}

	plain, _ := New("plain", 3, 1, Options{})
	if plain.FaceUVBounds() != nil {
		t.Error("Expected nil UV bounds without texcoords")
	}
}

func TestParametersGradEnabled(t *testing.T) {
	m, _ := New("m", 3, 1, Options{HasVertexTexcoords: true})
	if m.ParametersGradEnabled() {
		t.Error("Expected detached mesh")
	}
	tex, _ := m.Texcoords()
	tex.EnableGrad()
	if !m.ParametersGradEnabled() {
		t.Error("Expected attached mesh after enabling texcoord gradients")
	}
	tex.DisableGrad()
	m.Positions().EnableGrad()
	if !m.ParametersGradEnabled() {
		t.Error("Expected attached mesh after enabling position gradients")
	}
}
