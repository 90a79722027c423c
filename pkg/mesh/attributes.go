package mesh

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/df07/go-mesh-interaction/pkg/logger"
)

// Association says whether an attribute is stored per vertex or per face
type Association int

const (
	PerVertex Association = iota
	PerFace
)

func (a Association) String() string {
	if a == PerFace {
		return "face"
	}
	return "vertex"
}

// Attribute is a named float buffer attached to a mesh
type Attribute struct {
	Name        string
	Association Association
	Arity       int
	Data        []float32
}

// associationOf derives the association from the name prefix
func associationOf(name string) (Association, bool) {
	switch {
	case strings.HasPrefix(name, "vertex_"):
		return PerVertex, true
	case strings.HasPrefix(name, "face_"):
		return PerFace, true
	default:
		return 0, false
	}
}

// IsFaceAttribute reports whether name follows the per-face naming rule
func IsFaceAttribute(name string) bool {
	assoc, ok := associationOf(name)
	return ok && assoc == PerFace
}

// AddAttribute registers a named buffer of arity floats per vertex or per
// face. The association follows the "vertex_" / "face_" name prefix.
func (m *Mesh) AddAttribute(name string, arity int, data []float32) error {
	assoc, ok := associationOf(name)
	if !ok {
		return fmt.Errorf("mesh %q: attribute %q: %w", m.name, name, ErrAttributeName)
	}
	if _, exists := m.attrIndex[name]; exists || isBuiltinParameter(name) {
		return fmt.Errorf("mesh %q: attribute %q: %w", m.name, name, ErrDuplicateAttribute)
	}
	if arity <= 0 {
		return fmt.Errorf("mesh %q: attribute %q has arity %d: %w", m.name, name, arity, ErrAttributeSize)
	}

	count := m.vertexCount
	if assoc == PerFace {
		count = m.faceCount
	}
	if len(data) != arity*count {
		return fmt.Errorf("mesh %q: attribute %q has %d values, expected %d x %d: %w",
			m.name, name, len(data), arity, count, ErrAttributeSize)
	}

	m.attrIndex[name] = len(m.attributes)
	m.attributes = append(m.attributes, &Attribute{
		Name:        name,
		Association: assoc,
		Arity:       arity,
		Data:        data,
	})

	logger.Debug("mesh attribute added",
		zap.String("mesh", m.name),
		zap.String("attribute", name),
		zap.Stringer("association", assoc),
		zap.Int("arity", arity))
	return nil
}

// Attribute looks up a registered attribute by name
func (m *Mesh) Attribute(name string) (*Attribute, error) {
	i, ok := m.attrIndex[name]
	if !ok {
		return nil, fmt.Errorf("mesh %q: attribute %q: %w", m.name, name, ErrUnknownParameter)
	}
	return m.attributes[i], nil
}

// HasAttribute reports whether name is registered
func (m *Mesh) HasAttribute(name string) bool {
	_, ok := m.attrIndex[name]
	return ok
}

// Attributes returns the attributes in registration order
func (m *Mesh) Attributes() []*Attribute {
	return m.attributes
}

// attributeArity sums the arity of every attribute with the association
func (m *Mesh) attributeArity(assoc Association) int {
	total := 0
	for _, a := range m.attributes {
		if a.Association == assoc {
			total += a.Arity
		}
	}
	return total
}
