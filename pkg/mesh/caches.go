package mesh

import (
	"math"

	"github.com/df07/go-mesh-interaction/pkg/core"
)

// BoundingBox returns the cached bounding box. It reflects the positions as
// of the last ParametersChanged, Update or RecomputeBoundsAndArea call.
func (m *Mesh) BoundingBox() core.AABB {
	return m.bbox
}

// SurfaceArea returns the total triangle area, computing it if the cached
// value was invalidated
func (m *Mesh) SurfaceArea() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.areaValid {
		m.area = m.computeArea()
		m.areaValid = true
	}
	return m.area
}

// areaComputed reports whether a surface area is currently cached
func (m *Mesh) areaComputed() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.area, m.areaValid
}

// MarkDirty invalidates every derived cache without recomputing anything.
// The bounding box and vertex normals are refreshed by the next Update.
func (m *Mesh) MarkDirty() {
	m.mu.Lock()
	m.areaValid = false
	m.edges = nil
	m.uvBounds = nil
	m.mu.Unlock()

	for _, name := range []string{ParamPositions, ParamFaces} {
		m.dirty[name] = true
	}
	if m.texcoords != nil {
		m.dirty[ParamTexcoords] = true
	}
}

// RecomputeBoundsAndArea refreshes the bounding box and surface area from the
// current positions
func (m *Mesh) RecomputeBoundsAndArea() {
	m.bbox = m.computeBounds()
	m.mu.Lock()
	m.area = m.computeArea()
	m.areaValid = true
	m.mu.Unlock()
}

// RecomputeVertexNormals rebuilds the vertex normal buffer with
// angle-weighted averaging of the adjacent face normals
func (m *Mesh) RecomputeVertexNormals() error {
	if _, err := m.Normals(); err != nil {
		return err
	}
	m.computeVertexNormals()
	return nil
}

// computeBounds skips non-finite vertices so that a single corrupt vertex
// does not hide the rest of the mesh from bounding-box culling
func (m *Mesh) computeBounds() core.AABB {
	box := core.EmptyAABB()
	for i := 0; i < m.vertexCount; i++ {
		if v := m.Vertex(i); v.IsFinite() {
			box = box.ExpandPoint(v)
		}
	}
	return box
}

func (m *Mesh) computeArea() float64 {
	area := 0.0
	for f := 0; f < m.faceCount; f++ {
		v0, v1, v2 := m.FaceVertices(f)
		area += 0.5 * v1.Subtract(v0).Cross(v2.Subtract(v0)).Length()
	}
	return area
}

// computeVertexNormals weights each unit face normal by the interior angle
// of the triangle at the vertex. Degenerate faces contribute nothing.
func (m *Mesh) computeVertexNormals() {
	acc := make([]core.Vec3, m.vertexCount)
	for f := 0; f < m.faceCount; f++ {
		idx := m.Face(f)
		v := [3]core.Vec3{
			m.Vertex(int(idx[0])),
			m.Vertex(int(idx[1])),
			m.Vertex(int(idx[2])),
		}
		n := v[1].Subtract(v[0]).Cross(v[2].Subtract(v[0])).Normalize()
		if !n.IsFinite() {
			continue
		}

		for i := 0; i < 3; i++ {
			d0 := v[(i+1)%3].Subtract(v[i]).Normalize()
			d1 := v[(i+2)%3].Subtract(v[i]).Normalize()
			angle := math.Acos(math.Max(-1, math.Min(1, d0.Dot(d1))))
			if math.IsNaN(angle) {
				continue
			}
			acc[idx[i]] = acc[idx[i]].Add(n.Multiply(angle))
		}
	}

	out := m.normals.Data
	for i, n := range acc {
		n = n.Normalize()
		out[3*i], out[3*i+1], out[3*i+2] = float32(n.X), float32(n.Y), float32(n.Z)
	}
}

// Edge is an undirected mesh edge (V0 < V1) with the faces that share it
type Edge struct {
	V0, V1 uint32
	Faces  []int
}

// Edges returns the edge adjacency of the mesh, building it on first use
// after a face change
func (m *Mesh) Edges() []Edge {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.edges == nil {
		m.edges = m.buildEdges()
	}
	return m.edges
}

func (m *Mesh) buildEdges() []Edge {
	type key struct{ a, b uint32 }
	index := make(map[key]int, 3*m.faceCount/2)
	edges := make([]Edge, 0, 3*m.faceCount/2)

	for f := 0; f < m.faceCount; f++ {
		idx := m.Face(f)
		for i := 0; i < 3; i++ {
			a, b := idx[i], idx[(i+1)%3]
			if a == b {
				continue
			}
			if a > b {
				a, b = b, a
			}
			k := key{a, b}
			e, ok := index[k]
			if !ok {
				e = len(edges)
				index[k] = e
				edges = append(edges, Edge{V0: a, V1: b})
			}
			edges[e].Faces = append(edges[e].Faces, f)
		}
	}
	return edges
}

// FaceUVBounds returns the texture-space bounds of every face, or nil when
// the mesh has no texcoords
func (m *Mesh) FaceUVBounds() []core.Rect {
	if m.texcoords == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uvBounds == nil {
		m.uvBounds = make([]core.Rect, m.faceCount)
		for f := 0; f < m.faceCount; f++ {
			r := core.EmptyRect()
			for _, i := range m.Face(f) {
				r = r.ExpandPoint(m.VertexTexcoord(int(i)))
			}
			m.uvBounds[f] = r
		}
	}
	return m.uvBounds
}
