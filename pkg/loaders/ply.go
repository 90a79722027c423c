// Package loaders reads and writes triangle meshes in the binary PLY format.
package loaders

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/df07/go-mesh-interaction/pkg/logger"
	"github.com/df07/go-mesh-interaction/pkg/mesh"
)

// ErrPLYFormat marks PLY input that is malformed or uses an unsupported
// layout
var ErrPLYFormat = errors.New("unsupported PLY data")

// PLYHeader represents the parsed header information from a PLY file
type PLYHeader struct {
	Format      string // "binary_little_endian" or "binary_big_endian"
	Version     string // Usually "1.0"
	VertexCount int
	FaceCount   int
	VertexProps []PLYProperty
	FaceProps   []PLYProperty

	// Attributes declared by "comment attribute <name> <arity>" lines
	Attributes []AttributeSpec
}

// PLYProperty represents a property definition in the PLY header
type PLYProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // For list properties, the type of the count
	DataType string // For list properties, the type of the data
}

// AttributeSpec names a mesh attribute stored over Arity PLY properties
type AttributeSpec struct {
	Name  string
	Arity int
}

// LoadOptions controls how a PLY file becomes a mesh
type LoadOptions struct {
	// FaceNormals shades the mesh with flat face normals; stored vertex
	// normals are dropped
	FaceNormals bool
}

// LoadPLYMesh loads a PLY file into a mesh named after the file. Vertex
// normals are computed when the file has none.
func LoadPLYMesh(filename string, opts LoadOptions) (*mesh.Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PLY file: %w", err)
	}
	defer file.Close()

	return ReadPLY(file, filepath.Base(filename), opts)
}

// ReadPLY decodes a binary PLY stream into a mesh called name
func ReadPLY(r io.Reader, name string, opts LoadOptions) (*mesh.Mesh, error) {
	startTime := time.Now()
	br := bufio.NewReaderSize(r, 1024*1024)

	header, err := parsePLYHeader(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read PLY header: %w", err)
	}

	var order binary.ByteOrder
	switch header.Format {
	case "binary_little_endian":
		order = binary.LittleEndian
	case "binary_big_endian":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("PLY format %q: %w", header.Format, ErrPLYFormat)
	}

	data, err := newPLYData(header)
	if err != nil {
		return nil, fmt.Errorf("failed to map PLY properties: %w", err)
	}
	if err := data.readVertices(br, header, order); err != nil {
		return nil, fmt.Errorf("failed to read PLY vertices: %w", err)
	}
	if err := data.readFaces(br, header, order); err != nil {
		return nil, fmt.Errorf("failed to read PLY faces: %w", err)
	}

	m, err := data.build(name, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build PLY mesh: %w", err)
	}

	logger.Debug("PLY mesh loaded",
		zap.String("name", name),
		zap.String("format", header.Format),
		zap.Int("vertices", header.VertexCount),
		zap.Int("faces", header.FaceCount),
		zap.Int("attributes", len(data.attributes)),
		zap.Duration("elapsed", time.Since(startTime)))
	return m, nil
}

// parsePLYHeader reads the header up to and including "end_header"
func parsePLYHeader(br *bufio.Reader) (*PLYHeader, error) {
	header := &PLYHeader{}
	var elements []string

	for lineNo := 0; ; lineNo++ {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("header not terminated: %w", err)
		}
		line = strings.TrimSpace(line)

		if lineNo == 0 {
			if line != "ply" {
				return nil, fmt.Errorf("missing \"ply\" magic: %w", ErrPLYFormat)
			}
			continue
		}
		if line == "end_header" {
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "format":
			if len(parts) >= 3 {
				header.Format = parts[1]
				header.Version = parts[2]
			}
		case "comment":
			if len(parts) == 4 && parts[1] == "attribute" {
				arity, err := strconv.Atoi(parts[3])
				if err != nil || arity <= 0 {
					return nil, fmt.Errorf("invalid attribute arity %q: %w", parts[3], ErrPLYFormat)
				}
				header.Attributes = append(header.Attributes, AttributeSpec{Name: parts[2], Arity: arity})
			}
		case "obj_info":
			// Ignore
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid element line %q: %w", line, ErrPLYFormat)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("invalid element count %q: %w", parts[2], ErrPLYFormat)
			}
			switch parts[1] {
			case "vertex":
				header.VertexCount = count
			case "face":
				header.FaceCount = count
			default:
				return nil, fmt.Errorf("element %q: %w", parts[1], ErrPLYFormat)
			}
			elements = append(elements, parts[1])
		case "property":
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("failed to parse property: %w", err)
			}
			if len(elements) == 0 {
				return nil, fmt.Errorf("property %q outside an element: %w", prop.Name, ErrPLYFormat)
			}
			switch elements[len(elements)-1] {
			case "vertex":
				header.VertexProps = append(header.VertexProps, prop)
			case "face":
				header.FaceProps = append(header.FaceProps, prop)
			}
		default:
			return nil, fmt.Errorf("unexpected header line %q: %w", line, ErrPLYFormat)
		}
	}

	if len(elements) == 0 || elements[0] != "vertex" || len(elements) > 2 ||
		(len(elements) == 2 && elements[1] != "face") {
		return nil, fmt.Errorf("elements %v, expected vertex then face: %w", elements, ErrPLYFormat)
	}
	return header, nil
}

// parsePLYProperty parses a property line from the PLY header
func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) < 2 {
		return PLYProperty{}, fmt.Errorf("invalid property definition: %w", ErrPLYFormat)
	}

	prop := PLYProperty{}
	if parts[0] == "list" {
		if len(parts) < 4 {
			return PLYProperty{}, fmt.Errorf("invalid list property definition: %w", ErrPLYFormat)
		}
		prop.IsList = true
		prop.ListType = parts[1]
		prop.DataType = parts[2]
		prop.Name = parts[3]
		if getTypeSize(prop.ListType) == 0 || getTypeSize(prop.DataType) == 0 {
			return PLYProperty{}, fmt.Errorf("list %q of %s/%s: %w", prop.Name, prop.ListType, prop.DataType, ErrPLYFormat)
		}
	} else {
		prop.Type = parts[0]
		prop.Name = parts[1]
		if getTypeSize(prop.Type) == 0 {
			return PLYProperty{}, fmt.Errorf("property %q of type %s: %w", prop.Name, prop.Type, ErrPLYFormat)
		}
	}
	return prop, nil
}

// getTypeSize returns the size in bytes of a PLY data type, 0 if unknown
func getTypeSize(dataType string) int {
	switch dataType {
	case "float", "float32", "int", "int32", "uint", "uint32":
		return 4
	case "double", "float64":
		return 8
	case "short", "int16", "ushort", "uint16":
		return 2
	case "char", "int8", "uchar", "uint8":
		return 1
	default:
		return 0
	}
}

// decodeScalar decodes one value of a PLY data type from b
func decodeScalar(b []byte, dataType string, order binary.ByteOrder) float64 {
	switch dataType {
	case "char", "int8":
		return float64(int8(b[0]))
	case "uchar", "uint8":
		return float64(b[0])
	case "short", "int16":
		return float64(int16(order.Uint16(b)))
	case "ushort", "uint16":
		return float64(order.Uint16(b))
	case "int", "int32":
		return float64(int32(order.Uint32(b)))
	case "uint", "uint32":
		return float64(order.Uint32(b))
	case "float", "float32":
		return float64(math.Float32frombits(order.Uint32(b)))
	case "double", "float64":
		return math.Float64frombits(order.Uint64(b))
	default:
		return 0
	}
}

// attributeColumns names the properties holding an attribute: the name
// without its association prefix, suffixed with the component index when
// the arity is above one
func attributeColumns(name string, arity int) []string {
	base := strings.TrimPrefix(strings.TrimPrefix(name, "vertex_"), "face_")
	if arity == 1 {
		return []string{base}
	}
	cols := make([]string, arity)
	for k := range cols {
		cols[k] = base + "_" + strconv.Itoa(k)
	}
	return cols
}
