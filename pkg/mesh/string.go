package mesh

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/df07/go-mesh-interaction/pkg/core"
)

// String renders the debug block. The layout is stable and used for
// compatibility checks, so keep it byte-exact.
func (m *Mesh) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s[\n", m.kind)
	fmt.Fprintf(&b, "  name = \"%s\",\n", m.name)
	b.WriteString("  bbox = BoundingBox3f[\n")
	fmt.Fprintf(&b, "    min = %s,\n", formatVec3(m.bbox.Min))
	fmt.Fprintf(&b, "    max = %s\n", formatVec3(m.bbox.Max))
	b.WriteString("  ],\n")
	fmt.Fprintf(&b, "  vertex_count = %d,\n", m.vertexCount)
	fmt.Fprintf(&b, "  vertices = [%s of vertex data],\n", formatBytes(m.VertexDataSize()))
	fmt.Fprintf(&b, "  face_count = %d,\n", m.faceCount)
	fmt.Fprintf(&b, "  faces = [%s of face data],\n", formatBytes(m.FaceDataSize()))
	if area, ok := m.areaComputed(); ok {
		fmt.Fprintf(&b, "  surface_area = %s,\n", formatFloat(area))
	}
	fmt.Fprintf(&b, "  face_normals = %d", boolInt(m.faceNormals))

	if len(m.attributes) > 0 {
		b.WriteString(",\n  mesh attributes = [\n")
		for i, a := range m.attributes {
			if i > 0 {
				b.WriteString(",\n")
			}
			fmt.Fprintf(&b, "    %s: %d floats", a.Name, a.Arity)
		}
		b.WriteString("\n  ]")
	}
	b.WriteString("\n]")
	return b.String()
}

// VertexDataSize is the size in bytes of all per-vertex data: positions,
// normals, texcoords and vertex attributes, four bytes per scalar
func (m *Mesh) VertexDataSize() int {
	perVertex := 3 + m.attributeArity(PerVertex)
	if m.normals != nil {
		perVertex += 3
	}
	if m.texcoords != nil {
		perVertex += 2
	}
	return m.vertexCount * perVertex * 4
}

// FaceDataSize is the size in bytes of the index buffer plus face attributes
func (m *Mesh) FaceDataSize() int {
	return m.faceCount * (3 + m.attributeArity(PerFace)) * 4
}

func formatBytes(n int) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
	)
	switch {
	case n < kib:
		return fmt.Sprintf("%d B", n)
	case n < mib:
		return fmt.Sprintf("%.1f KiB", float64(n)/kib)
	case n < gib:
		return fmt.Sprintf("%.1f MiB", float64(n)/mib)
	default:
		return fmt.Sprintf("%.1f GiB", float64(n)/gib)
	}
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func formatVec3(v core.Vec3) string {
	return "[" + formatFloat(v.X) + ", " + formatFloat(v.Y) + ", " + formatFloat(v.Z) + "]"
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
