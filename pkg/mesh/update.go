package mesh

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/df07/go-mesh-interaction/pkg/logger"
)

// Names of the built-in mesh parameters
const (
	ParamPositions = "vertex_positions"
	ParamNormals   = "vertex_normals"
	ParamTexcoords = "vertex_texcoords"
	ParamFaces     = "faces"
)

func isBuiltinParameter(name string) bool {
	switch name {
	case ParamPositions, ParamNormals, ParamTexcoords, ParamFaces:
		return true
	}
	return false
}

// Cache is a set of derived mesh caches
type Cache uint8

const (
	CacheBounds Cache = 1 << iota
	CacheArea
	CacheNormals
	CacheEdges
	CacheUVBounds
)

func (c Cache) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for _, e := range []struct {
		bit  Cache
		name string
	}{
		{CacheBounds, "bounds"},
		{CacheArea, "area"},
		{CacheNormals, "normals"},
		{CacheEdges, "edges"},
		{CacheUVBounds, "uv_bounds"},
	} {
		if c&e.bit != 0 {
			parts = append(parts, e.name)
		}
	}
	return strings.Join(parts, "|")
}

// Parameters lists the names accepted by SetDirty: the allocated built-in
// buffers followed by the attributes in registration order
func (m *Mesh) Parameters() []string {
	names := []string{ParamPositions}
	if m.normals != nil {
		names = append(names, ParamNormals)
	}
	if m.texcoords != nil {
		names = append(names, ParamTexcoords)
	}
	names = append(names, ParamFaces)
	for _, a := range m.attributes {
		names = append(names, a.Name)
	}
	return names
}

// SetDirty records that the named parameter was modified
func (m *Mesh) SetDirty(name string) error {
	for _, p := range m.Parameters() {
		if p == name {
			m.dirty[name] = true
			return nil
		}
	}
	return fmt.Errorf("mesh %q: %q: %w", m.name, name, ErrUnknownParameter)
}

// Update refreshes exactly the caches that depend on a parameter marked
// dirty since the last update and returns them:
//
//	vertex_positions  bounds, area, normals
//	faces             area, normals, edges, uv_bounds
//	vertex_texcoords  uv_bounds
//
// Vertex normals are only derived when the caller did not supply them and
// vertex_normals itself is not dirty. The surface area is invalidated and
// recomputed on the next SurfaceArea call.
func (m *Mesh) Update() (Cache, error) {
	dirty := m.dirty
	m.dirty = make(map[string]bool)

	positions, faces, texcoords := dirty[ParamPositions], dirty[ParamFaces], dirty[ParamTexcoords]
	if faces {
		if err := m.validateFaces(); err != nil {
			return 0, err
		}
	}

	var done Cache
	if positions {
		m.bbox = m.computeBounds()
		done |= CacheBounds
	}

	m.mu.Lock()
	if positions || faces {
		m.areaValid = false
		done |= CacheArea
	}
	if faces {
		m.edges = nil
		done |= CacheEdges
	}
	if (faces || texcoords) && m.texcoords != nil {
		m.uvBounds = nil
		done |= CacheUVBounds
	}
	m.mu.Unlock()

	if (positions || faces) && m.derivesNormals() && !dirty[ParamNormals] {
		m.computeVertexNormals()
		done |= CacheNormals
	}

	logger.Debug("mesh updated",
		zap.String("mesh", m.name),
		zap.Int("dirty_parameters", len(dirty)),
		zap.Stringer("caches", done))
	return done, nil
}

// ParametersChanged is the full-mesh update: faces are validated, the
// bounding box and derived vertex normals are recomputed, and every lazy
// cache is invalidated
func (m *Mesh) ParametersChanged() error {
	if err := m.validateFaces(); err != nil {
		return err
	}
	m.dirty = make(map[string]bool)

	m.bbox = m.computeBounds()
	m.mu.Lock()
	m.areaValid = false
	m.edges = nil
	m.uvBounds = nil
	m.mu.Unlock()

	if m.derivesNormals() {
		m.computeVertexNormals()
	}

	logger.Debug("mesh parameters changed",
		zap.String("mesh", m.name),
		zap.Float64s("bbox_min", []float64{m.bbox.Min.X, m.bbox.Min.Y, m.bbox.Min.Z}),
		zap.Float64s("bbox_max", []float64{m.bbox.Max.X, m.bbox.Max.Y, m.bbox.Max.Z}),
		zap.Bool("normals", m.derivesNormals()))
	return nil
}

func (m *Mesh) derivesNormals() bool {
	return m.normals != nil && !m.normalsProvided
}
