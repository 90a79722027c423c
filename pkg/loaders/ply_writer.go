package loaders

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/df07/go-mesh-interaction/pkg/logger"
	"github.com/df07/go-mesh-interaction/pkg/mesh"
)

// WritePLYFile writes m to filename as binary little-endian PLY
func WritePLYFile(filename string, m *mesh.Mesh) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create PLY file: %w", err)
	}
	if err := WritePLY(file, m); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close PLY file: %w", err)
	}
	return nil
}

// WritePLY encodes m as binary little-endian PLY. Positions, normals and
// texcoords use the conventional property names; every attribute is
// declared with a "comment attribute" line and stored as float columns.
func WritePLY(w io.Writer, m *mesh.Mesh) error {
	startTime := time.Now()
	bw := bufio.NewWriterSize(w, 1024*1024)

	normals, err := m.Normals()
	if err != nil {
		normals = nil
	}
	texcoords, err := m.Texcoords()
	if err != nil {
		texcoords = nil
	}

	var vertexAttrs, faceAttrs []*mesh.Attribute
	for _, a := range m.Attributes() {
		if a.Association == mesh.PerFace {
			faceAttrs = append(faceAttrs, a)
		} else {
			vertexAttrs = append(vertexAttrs, a)
		}
	}

	// Header
	fmt.Fprintf(bw, "ply\nformat binary_little_endian 1.0\n")
	for _, a := range m.Attributes() {
		fmt.Fprintf(bw, "comment attribute %s %d\n", a.Name, a.Arity)
	}
	fmt.Fprintf(bw, "element vertex %d\n", m.VertexCount())
	writeFloatProps(bw, "x", "y", "z")
	if normals != nil {
		writeFloatProps(bw, "nx", "ny", "nz")
	}
	if texcoords != nil {
		writeFloatProps(bw, "u", "v")
	}
	for _, a := range vertexAttrs {
		writeFloatProps(bw, attributeColumns(a.Name, a.Arity)...)
	}
	fmt.Fprintf(bw, "element face %d\n", m.FaceCount())
	fmt.Fprintf(bw, "property list uchar int vertex_indices\n")
	for _, a := range faceAttrs {
		writeFloatProps(bw, attributeColumns(a.Name, a.Arity)...)
	}
	fmt.Fprintf(bw, "end_header\n")

	// Vertices
	positions := m.Positions().Data
	var row []float32
	for i := 0; i < m.VertexCount(); i++ {
		row = append(row[:0], positions[3*i:3*i+3]...)
		if normals != nil {
			row = append(row, normals.Data[3*i:3*i+3]...)
		}
		if texcoords != nil {
			row = append(row, texcoords.Data[2*i:2*i+2]...)
		}
		for _, a := range vertexAttrs {
			row = append(row, a.Data[a.Arity*i:a.Arity*(i+1)]...)
		}
		if err := binary.Write(bw, binary.LittleEndian, row); err != nil {
			return fmt.Errorf("failed to write PLY vertex %d: %w", i, err)
		}
	}

	// Faces
	faces := m.Faces()
	for f := 0; f < m.FaceCount(); f++ {
		record := struct {
			Count   uint8
			Indices [3]int32
		}{3, [3]int32{int32(faces[3*f]), int32(faces[3*f+1]), int32(faces[3*f+2])}}
		if err := binary.Write(bw, binary.LittleEndian, record); err != nil {
			return fmt.Errorf("failed to write PLY face %d: %w", f, err)
		}
		if len(faceAttrs) == 0 {
			continue
		}
		row = row[:0]
		for _, a := range faceAttrs {
			row = append(row, a.Data[a.Arity*f:a.Arity*(f+1)]...)
		}
		if err := binary.Write(bw, binary.LittleEndian, row); err != nil {
			return fmt.Errorf("failed to write PLY face %d: %w", f, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write PLY data: %w", err)
	}

	logger.Debug("PLY mesh written",
		zap.String("name", m.Name()),
		zap.Int("vertices", m.VertexCount()),
		zap.Int("faces", m.FaceCount()),
		zap.Int("attributes", len(m.Attributes())),
		zap.Duration("elapsed", time.Since(startTime)))
	return nil
}

func writeFloatProps(w io.Writer, names ...string) {
	for _, name := range names {
		fmt.Fprintf(w, "property float %s\n", name)
	}
}
