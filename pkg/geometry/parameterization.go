package geometry

import (
	"math"

	"go.uber.org/zap"

	"github.com/df07/go-mesh-interaction/pkg/core"
	"github.com/df07/go-mesh-interaction/pkg/diff"
	"github.com/df07/go-mesh-interaction/pkg/logger"
)

// uvEpsilon widens triangles in UV space so that samples on shared edges
// and on the domain border are found
const uvEpsilon = 1e-9

// EvalParameterization finds the triangle containing uv in texture space and
// evaluates the surface there with t = 0. The position moves rigidly with
// the mesh. An invalid interaction is returned when no triangle contains uv
// or the mesh has no texture coordinates.
func (s *MeshShape) EvalParameterization(uv core.Vec2, flags RayFlags, cfg diff.Config) *SurfaceInteraction {
	flags &^= FlagBoundaryTest | FlagFollowShape

	bounds := s.FaceUVBounds()
	if bounds == nil {
		logger.Debug("parameterization query on mesh without texcoords", zap.String("mesh", s.Name()))
		return missInteraction(diff.Ray{}, flags)
	}

	for f, r := range bounds {
		if !r.Contains(uv, uvEpsilon) {
			continue
		}
		b1, b2, ok := s.uvBarycentric(f, uv)
		if !ok {
			continue
		}

		pi := PreliminaryIntersection{T: 0, PrimIndex: f, PrimUV: core.NewVec2(b1, b2), Shape: s}
		e := s.newExpansion(pi, diff.Ray{}, flags)
		e.param = true
		si := e.interaction(cfg)
		si.valid = true
		return si
	}
	return missInteraction(diff.Ray{}, flags)
}

// uvBarycentric expresses uv in the barycentric coordinates of face f's
// texture triangle
func (s *MeshShape) uvBarycentric(f int, uv core.Vec2) (float64, float64, bool) {
	idx := s.Face(f)
	t0 := s.VertexTexcoord(int(idx[0]))
	duv1 := s.VertexTexcoord(int(idx[1])).Subtract(t0)
	duv2 := s.VertexTexcoord(int(idx[2])).Subtract(t0)
	rel := uv.Subtract(t0)

	det := duv1.X*duv2.Y - duv1.Y*duv2.X
	if !(math.Abs(det) > degenerateUV) {
		return 0, 0, false
	}
	b1 := (rel.X*duv2.Y - rel.Y*duv2.X) / det
	b2 := (duv1.X*rel.Y - duv1.Y*rel.X) / det
	if b1 >= -uvEpsilon && b2 >= -uvEpsilon && b1+b2 <= 1+uvEpsilon {
		return b1, b2, true
	}
	return 0, 0, false
}
