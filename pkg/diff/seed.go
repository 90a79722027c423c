package diff

import "github.com/df07/go-mesh-interaction/pkg/core"

// Seed holds input tangents for a forward-mode query. Buffer tangents are
// indexed like the flat mesh buffers; a nil slice means zero tangent.
type Seed struct {
	RayOrigin    core.Vec3
	RayDirection core.Vec3
	Positions    []float64
	Normals      []float64
	Texcoords    []float64
}

// Gather reads the tangent of each lane
func (s Seed) Gather(lanes []Lane) []float64 {
	v := make([]float64, len(lanes))
	for i, l := range lanes {
		switch l.Input {
		case InputRayOrigin:
			v[i] = s.RayOrigin.Component(l.Index)
		case InputRayDirection:
			v[i] = s.RayDirection.Component(l.Index)
		case InputPositions:
			v[i] = at(s.Positions, l.Index)
		case InputNormals:
			v[i] = at(s.Normals, l.Index)
		case InputTexcoords:
			v[i] = at(s.Texcoords, l.Index)
		}
	}
	return v
}

func at(s []float64, i int) float64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

// Binding routes per-lane gradients back into the gradient channels of the
// inputs they were declared for. Missing or detached inputs drop their share.
type Binding struct {
	Origin    *Vector
	Direction *Vector
	Positions *Buffer
	Normals   *Buffer
	Texcoords *Buffer
}

// Scatter accumulates g[i] into the input behind lanes[i]
func (b Binding) Scatter(lanes []Lane, g []float64) {
	for i, l := range lanes {
		switch l.Input {
		case InputRayOrigin:
			if b.Origin != nil {
				b.Origin.accumulate(l.Index, g[i])
			}
		case InputRayDirection:
			if b.Direction != nil {
				b.Direction.accumulate(l.Index, g[i])
			}
		case InputPositions:
			b.Positions.accumulate(l.Index, g[i])
		case InputNormals:
			b.Normals.accumulate(l.Index, g[i])
		case InputTexcoords:
			b.Texcoords.accumulate(l.Index, g[i])
		}
	}
}
