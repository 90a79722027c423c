package loaders

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/df07/go-mesh-interaction/pkg/mesh"
)

// sink is the destination of one scalar property: element i lands at
// dst[i*stride+offset]. A zero sink discards the value.
type sink struct {
	dst    []float32
	stride int
	offset int
	scale  float64
}

func (s sink) put(i int, v float64) {
	if s.dst != nil {
		s.dst[i*s.stride+s.offset] = float32(v * s.scale)
	}
}

type plyAttribute struct {
	name  string
	arity int
	data  []float32
}

// plyData accumulates decoded buffers before the mesh is built
type plyData struct {
	positions  []float32
	normals    []float32 // nil when the file has none
	texcoords  []float32 // nil when the file has none
	faces      []uint32
	attributes []*plyAttribute

	vertexSinks []sink // parallel to PLYHeader.VertexProps
	faceSinks   []sink // parallel to PLYHeader.FaceProps
	indexProp   int    // face property holding the vertex indices
}

// newPLYData maps every header property onto a buffer. Attributes declared
// in comments claim their columns first; builtin names come next and any
// remaining scalar property becomes a single-component attribute.
func newPLYData(h *PLYHeader) (*plyData, error) {
	vc, fc := h.VertexCount, h.FaceCount
	d := &plyData{
		positions:   make([]float32, 3*vc),
		faces:       make([]uint32, 0, 3*fc),
		vertexSinks: make([]sink, len(h.VertexProps)),
		faceSinks:   make([]sink, len(h.FaceProps)),
		indexProp:   -1,
	}

	for _, spec := range h.Attributes {
		props, sinks, count := h.VertexProps, d.vertexSinks, vc
		if mesh.IsFaceAttribute(spec.Name) {
			props, sinks, count = h.FaceProps, d.faceSinks, fc
		}
		attr := d.addAttribute(spec.Name, spec.Arity, count)
		for k, col := range attributeColumns(spec.Name, spec.Arity) {
			i := findProperty(props, col)
			if i < 0 || props[i].IsList || sinks[i].dst != nil {
				return nil, fmt.Errorf("attribute %q: property %q missing: %w", spec.Name, col, ErrPLYFormat)
			}
			sinks[i] = sink{dst: attr.data, stride: spec.Arity, offset: k, scale: 1}
		}
	}

	// Vertex builtins
	xyz := columns(h.VertexProps, d.vertexSinks, "x", "y", "z")
	if xyz == nil {
		return nil, fmt.Errorf("vertex positions missing: %w", ErrPLYFormat)
	}
	d.bind(d.vertexSinks, xyz, d.positions, 1)

	if idx := columns(h.VertexProps, d.vertexSinks, "nx", "ny", "nz"); idx != nil {
		d.normals = make([]float32, 3*vc)
		d.bind(d.vertexSinks, idx, d.normals, 1)
	}

	for _, names := range [][]string{{"u", "v"}, {"s", "t"}, {"texture_u", "texture_v"}} {
		if idx := columns(h.VertexProps, d.vertexSinks, names...); idx != nil {
			d.texcoords = make([]float32, 2*vc)
			d.bind(d.vertexSinks, idx, d.texcoords, 1)
			break
		}
	}

	if !d.hasAttribute("vertex_color") {
		for _, names := range [][]string{{"red", "green", "blue"}, {"r", "g", "b"}} {
			idx := columns(h.VertexProps, d.vertexSinks, names...)
			if idx == nil {
				continue
			}
			scale := 1.0
			if t := h.VertexProps[idx[0]].Type; t == "uchar" || t == "uint8" {
				scale = 1.0 / 255.0
			}
			attr := d.addAttribute("vertex_color", 3, vc)
			d.bind(d.vertexSinks, idx, attr.data, scale)
			break
		}
	}

	for i, p := range h.VertexProps {
		if p.IsList {
			return nil, fmt.Errorf("vertex list property %q: %w", p.Name, ErrPLYFormat)
		}
		if d.vertexSinks[i].dst == nil {
			attr := d.addAttribute("vertex_"+p.Name, 1, vc)
			d.vertexSinks[i] = sink{dst: attr.data, stride: 1, scale: 1}
		}
	}

	// Face builtins
	for i, p := range h.FaceProps {
		if p.IsList && (p.Name == "vertex_indices" || p.Name == "vertex_index") && d.indexProp < 0 {
			d.indexProp = i
			continue
		}
		if !p.IsList && d.faceSinks[i].dst == nil {
			attr := d.addAttribute("face_"+p.Name, 1, fc)
			d.faceSinks[i] = sink{dst: attr.data, stride: 1, scale: 1}
		}
	}
	if fc > 0 && d.indexProp < 0 {
		return nil, fmt.Errorf("face vertex indices missing: %w", ErrPLYFormat)
	}
	return d, nil
}

func (d *plyData) addAttribute(name string, arity, count int) *plyAttribute {
	a := &plyAttribute{name: name, arity: arity, data: make([]float32, arity*count)}
	d.attributes = append(d.attributes, a)
	return a
}

func (d *plyData) hasAttribute(name string) bool {
	for _, a := range d.attributes {
		if a.name == name {
			return true
		}
	}
	return false
}

// bind routes the properties at idx to consecutive components of dst
func (d *plyData) bind(sinks []sink, idx []int, dst []float32, scale float64) {
	for k, i := range idx {
		sinks[i] = sink{dst: dst, stride: len(idx), offset: k, scale: scale}
	}
}

func findProperty(props []PLYProperty, name string) int {
	for i, p := range props {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// columns returns the indices of names among the unclaimed scalar
// properties, or nil unless every one is present
func columns(props []PLYProperty, sinks []sink, names ...string) []int {
	idx := make([]int, len(names))
	for k, name := range names {
		i := findProperty(props, name)
		if i < 0 || props[i].IsList || sinks[i].dst != nil {
			return nil
		}
		idx[k] = i
	}
	return idx
}

// readVertices reads the fixed-size vertex records
func (d *plyData) readVertices(br *bufio.Reader, h *PLYHeader, order binary.ByteOrder) error {
	vertexSize := 0
	for _, p := range h.VertexProps {
		vertexSize += getTypeSize(p.Type)
	}

	row := make([]byte, vertexSize)
	for i := 0; i < h.VertexCount; i++ {
		if _, err := io.ReadFull(br, row); err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
		offset := 0
		for j, p := range h.VertexProps {
			size := getTypeSize(p.Type)
			d.vertexSinks[j].put(i, decodeScalar(row[offset:offset+size], p.Type, order))
			offset += size
		}
	}
	return nil
}

// readFaces reads the variable-size face records. Lists other than the
// vertex indices are skipped.
func (d *plyData) readFaces(br *bufio.Reader, h *PLYHeader, order binary.ByteOrder) error {
	var scratch [8]byte
	var list []byte

	for i := 0; i < h.FaceCount; i++ {
		for j, p := range h.FaceProps {
			if !p.IsList {
				size := getTypeSize(p.Type)
				if _, err := io.ReadFull(br, scratch[:size]); err != nil {
					return fmt.Errorf("face %d property %q: %w", i, p.Name, err)
				}
				d.faceSinks[j].put(i, decodeScalar(scratch[:size], p.Type, order))
				continue
			}

			countSize := getTypeSize(p.ListType)
			if _, err := io.ReadFull(br, scratch[:countSize]); err != nil {
				return fmt.Errorf("face %d list %q: %w", i, p.Name, err)
			}
			n := int(decodeScalar(scratch[:countSize], p.ListType, order))
			if n < 0 {
				return fmt.Errorf("face %d list %q has %d entries: %w", i, p.Name, n, ErrPLYFormat)
			}

			elemSize := getTypeSize(p.DataType)
			if cap(list) < n*elemSize {
				list = make([]byte, n*elemSize)
			}
			list = list[:n*elemSize]
			if _, err := io.ReadFull(br, list); err != nil {
				return fmt.Errorf("face %d list %q: %w", i, p.Name, err)
			}
			if j != d.indexProp {
				continue
			}

			if n != 3 {
				return fmt.Errorf("face %d has %d vertices, only triangles are supported: %w", i, n, ErrPLYFormat)
			}
			for k := 0; k < 3; k++ {
				v := decodeScalar(list[k*elemSize:(k+1)*elemSize], p.DataType, order)
				if v < 0 || v >= float64(h.VertexCount) {
					return fmt.Errorf("face %d references vertex %v of %d: %w", i, v, h.VertexCount, mesh.ErrFaceIndex)
				}
				d.faces = append(d.faces, uint32(v))
			}
		}
	}
	return nil
}

// build creates the mesh and registers the attributes
func (d *plyData) build(name string, opts LoadOptions) (*mesh.Mesh, error) {
	normals := d.normals
	if opts.FaceNormals {
		normals = nil
	}

	m, err := mesh.NewFromBuffers(name, d.positions, d.faces, normals, d.texcoords, mesh.Options{
		HasVertexNormals:   true,
		HasVertexTexcoords: d.texcoords != nil,
		FaceNormals:        opts.FaceNormals,
		Kind:               mesh.KindPLYMesh,
	})
	if err != nil {
		return nil, err
	}

	for _, a := range d.attributes {
		if err := m.AddAttribute(a.name, a.arity, a.data); err != nil {
			return nil, err
		}
	}
	return m, nil
}
