// Package mesh stores triangle meshes: vertex and face buffers, named
// attributes, and the derived caches (bounding box, surface area, vertex
// normals, edge adjacency, UV bounds) that intersection queries read.
//
// Buffers are mutated directly by the caller. Derived caches are refreshed
// only through the explicit update protocol (ParametersChanged, or SetDirty
// followed by Update), so concurrent readers never observe a half-updated
// mesh as long as writes happen between queries.
package mesh

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/df07/go-mesh-interaction/pkg/core"
	"github.com/df07/go-mesh-interaction/pkg/diff"
	"github.com/df07/go-mesh-interaction/pkg/logger"
)

// Kind tags printed as the header of the debug string
const (
	KindMesh    = "Mesh"
	KindPLYMesh = "PLYMesh"
)

// Options selects the optional buffers of a mesh
type Options struct {
	HasVertexNormals   bool
	HasVertexTexcoords bool
	// FaceNormals shades with the flat face normal. It implies that no
	// vertex normal buffer is allocated.
	FaceNormals bool
	// Kind is the representation tag; empty means KindMesh.
	Kind string
}

// Mesh is a triangle mesh with optional per-vertex normals and texture
// coordinates. Positions and normals are flat float32 xyz triples, texcoords
// flat uv pairs, faces flat vertex index triples.
type Mesh struct {
	name        string
	kind        string
	vertexCount int
	faceCount   int
	faceNormals bool

	positions *diff.Buffer
	normals   *diff.Buffer // nil when absent
	texcoords *diff.Buffer // nil when absent
	faces     []uint32

	// normalsProvided is set when the caller supplied the normals, which
	// are then never overwritten by derived ones
	normalsProvided bool

	attributes []*Attribute
	attrIndex  map[string]int

	bbox  core.AABB
	dirty map[string]bool

	mu        sync.Mutex // guards the lazy caches below
	area      float64
	areaValid bool
	edges     []Edge
	uvBounds  []core.Rect
}

// New allocates a zero-filled mesh with the given counts
func New(name string, vertexCount, faceCount int, opts Options) (*Mesh, error) {
	if vertexCount < 0 || faceCount < 0 {
		return nil, fmt.Errorf("mesh %q: negative counts (%d vertices, %d faces): %w",
			name, vertexCount, faceCount, ErrBufferSize)
	}

	m := newMesh(name, vertexCount, faceCount, opts)
	m.positions = diff.NewBuffer(make([]float32, 3*vertexCount))
	if opts.HasVertexNormals && !opts.FaceNormals {
		m.normals = diff.NewBuffer(make([]float32, 3*vertexCount))
	}
	if opts.HasVertexTexcoords {
		m.texcoords = diff.NewBuffer(make([]float32, 2*vertexCount))
	}
	m.faces = make([]uint32, 3*faceCount)

	logger.Debug("mesh created",
		zap.String("name", name),
		zap.String("kind", m.kind),
		zap.Int("vertices", vertexCount),
		zap.Int("faces", faceCount))
	return m, nil
}

// NewFromBuffers builds a mesh around existing buffers without copying them.
// normals and texcoords may be nil. Faces are validated and the bounding box
// is computed; vertex normals are computed when opts asks for them but none
// were supplied.
func NewFromBuffers(name string, positions []float32, faces []uint32, normals, texcoords []float32, opts Options) (*Mesh, error) {
	if len(positions)%3 != 0 {
		return nil, fmt.Errorf("mesh %q: %d position scalars is not a multiple of 3: %w", name, len(positions), ErrBufferSize)
	}
	if len(faces)%3 != 0 {
		return nil, fmt.Errorf("mesh %q: %d face indices is not a multiple of 3: %w", name, len(faces), ErrBufferSize)
	}
	vc, fc := len(positions)/3, len(faces)/3

	if normals != nil && len(normals) != 3*vc {
		return nil, fmt.Errorf("mesh %q: normals have %d scalars, expected %d: %w", name, len(normals), 3*vc, ErrBufferSize)
	}
	if texcoords != nil && len(texcoords) != 2*vc {
		return nil, fmt.Errorf("mesh %q: texcoords have %d scalars, expected %d: %w", name, len(texcoords), 2*vc, ErrBufferSize)
	}

	m := newMesh(name, vc, fc, opts)
	m.positions = diff.NewBuffer(positions)
	m.faces = faces
	if texcoords != nil {
		m.texcoords = diff.NewBuffer(texcoords)
	}

	computeNormals := false
	if !m.faceNormals {
		switch {
		case normals != nil:
			m.normals = diff.NewBuffer(normals)
			m.normalsProvided = true
		case opts.HasVertexNormals:
			m.normals = diff.NewBuffer(make([]float32, 3*vc))
			computeNormals = true
		}
	}

	if err := m.validateFaces(); err != nil {
		return nil, err
	}
	m.bbox = m.computeBounds()
	if computeNormals {
		m.computeVertexNormals()
	}

	logger.Debug("mesh created from buffers",
		zap.String("name", name),
		zap.String("kind", m.kind),
		zap.Int("vertices", vc),
		zap.Int("faces", fc),
		zap.Bool("normals", m.normals != nil),
		zap.Bool("computed_normals", computeNormals),
		zap.Bool("texcoords", m.texcoords != nil))
	return m, nil
}

func newMesh(name string, vc, fc int, opts Options) *Mesh {
	kind := opts.Kind
	if kind == "" {
		kind = KindMesh
	}
	return &Mesh{
		name:        name,
		kind:        kind,
		vertexCount: vc,
		faceCount:   fc,
		faceNormals: opts.FaceNormals,
		attrIndex:   make(map[string]int),
		bbox:        core.EmptyAABB(),
		dirty:       make(map[string]bool),
	}
}

func (m *Mesh) Name() string {
	return m.name
}

// Kind returns the representation tag (KindMesh, KindPLYMesh, ...)
func (m *Mesh) Kind() string {
	return m.kind
}

func (m *Mesh) VertexCount() int {
	return m.vertexCount
}

func (m *Mesh) FaceCount() int {
	return m.faceCount
}

// FaceNormals reports whether shading uses flat face normals
func (m *Mesh) FaceNormals() bool {
	return m.faceNormals
}

func (m *Mesh) HasVertexNormals() bool {
	return m.normals != nil
}

func (m *Mesh) HasVertexTexcoords() bool {
	return m.texcoords != nil
}

// Positions returns the flat xyz position buffer
func (m *Mesh) Positions() *diff.Buffer {
	return m.positions
}

// Normals returns the flat xyz vertex normal buffer
func (m *Mesh) Normals() (*diff.Buffer, error) {
	if m.normals == nil {
		return nil, fmt.Errorf("mesh %q: vertex normals: %w", m.name, ErrBufferMissing)
	}
	return m.normals, nil
}

// Texcoords returns the flat uv texture coordinate buffer
func (m *Mesh) Texcoords() (*diff.Buffer, error) {
	if m.texcoords == nil {
		return nil, fmt.Errorf("mesh %q: vertex texcoords: %w", m.name, ErrBufferMissing)
	}
	return m.texcoords, nil
}

// Faces returns the flat vertex index buffer
func (m *Mesh) Faces() []uint32 {
	return m.faces
}

// Vertex returns the position of vertex i
func (m *Mesh) Vertex(i int) core.Vec3 {
	p := m.positions.Data
	return core.NewVec3(float64(p[3*i]), float64(p[3*i+1]), float64(p[3*i+2]))
}

// SetVertex overwrites the position of vertex i and marks positions dirty
func (m *Mesh) SetVertex(i int, v core.Vec3) {
	p := m.positions.Data
	p[3*i], p[3*i+1], p[3*i+2] = float32(v.X), float32(v.Y), float32(v.Z)
	m.dirty[ParamPositions] = true
}

// VertexNormal returns the stored normal of vertex i. The mesh must have
// vertex normals.
func (m *Mesh) VertexNormal(i int) core.Vec3 {
	n := m.normals.Data
	return core.NewVec3(float64(n[3*i]), float64(n[3*i+1]), float64(n[3*i+2]))
}

// VertexTexcoord returns the texture coordinate of vertex i. The mesh must
// have texcoords.
func (m *Mesh) VertexTexcoord(i int) core.Vec2 {
	uv := m.texcoords.Data
	return core.NewVec2(float64(uv[2*i]), float64(uv[2*i+1]))
}

// Face returns the vertex indices of face f
func (m *Mesh) Face(f int) [3]uint32 {
	return [3]uint32{m.faces[3*f], m.faces[3*f+1], m.faces[3*f+2]}
}

// SetFace overwrites face f after checking its indices
func (m *Mesh) SetFace(f int, idx [3]uint32) error {
	for _, i := range idx {
		if int(i) >= m.vertexCount {
			return fmt.Errorf("mesh %q: face %d references vertex %d of %d: %w",
				m.name, f, i, m.vertexCount, ErrFaceIndex)
		}
	}
	copy(m.faces[3*f:3*f+3], idx[:])
	m.dirty[ParamFaces] = true
	return nil
}

// FaceVertices returns the three corner positions of face f
func (m *Mesh) FaceVertices(f int) (core.Vec3, core.Vec3, core.Vec3) {
	idx := m.Face(f)
	return m.Vertex(int(idx[0])), m.Vertex(int(idx[1])), m.Vertex(int(idx[2]))
}

func (m *Mesh) validateFaces() error {
	for f, i := range m.faces {
		if int(i) >= m.vertexCount {
			return fmt.Errorf("mesh %q: face %d references vertex %d of %d: %w",
				m.name, f/3, i, m.vertexCount, ErrFaceIndex)
		}
	}
	return nil
}

// ParametersGradEnabled reports whether any differentiable mesh buffer
// currently carries a gradient channel
func (m *Mesh) ParametersGradEnabled() bool {
	return m.positions.GradEnabled() || m.normals.GradEnabled() || m.texcoords.GradEnabled()
}
