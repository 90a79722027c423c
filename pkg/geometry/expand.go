package geometry

import (
	"math"

	"github.com/df07/go-mesh-interaction/pkg/core"
	"github.com/df07/go-mesh-interaction/pkg/diff"
)

// degenerateUV is the smallest |det| of the UV Jacobian that is inverted
const degenerateUV = 1e-12

// attachment records which inputs carry gradient channels for one expansion
type attachment struct {
	origin, direction             bool
	positions, normals, texcoords bool
}

func (a attachment) any() bool {
	return a.origin || a.direction || a.positions || a.normals || a.texcoords
}

// geometry reports whether the ray/triangle constraint itself is attached
func (a attachment) geometry() bool {
	return a.origin || a.direction || a.positions
}

// expansion holds everything needed to evaluate one interaction, so that the
// local Jacobian can be rebuilt later in recorded mode
type expansion struct {
	shape *MeshShape
	ray   diff.Ray
	pi    PreliminaryIntersection
	flags RayFlags
	att   attachment
	param bool // barycentrics come from a UV lookup, there is no ray
	edge  int  // silhouette edge picked for the boundary test, -1 if none
}

// interaction evaluates the fields and schedules the Jacobian per cfg.Mode
func (e *expansion) interaction(cfg diff.Config) *SurfaceInteraction {
	var (
		out []diff.Real
		jac *diff.Deferred
	)
	switch {
	case !e.att.any():
		_, out = e.evaluate(false)
		jac = diff.Ready(diff.NewJacobian(nil, out))
	case cfg.Mode == diff.ModeRecorded:
		_, out = e.evaluate(false)
		jac = diff.Record(func() *diff.Jacobian {
			space, rows := e.evaluate(true)
			return diff.NewJacobian(space.Lanes(), rows)
		})
	default:
		space, rows := e.evaluate(true)
		out = rows
		jac = diff.Ready(diff.NewJacobian(space.Lanes(), rows))
	}

	si := e.fill(out)
	si.jac = jac
	si.binding = e.binding()
	return si
}

// evaluate computes every requested field. With lanes, each attached input
// gets its own derivative lanes; without, all inputs are constants. The
// values are identical either way.
func (e *expansion) evaluate(lanes bool) (*diff.Space, []diff.Real) {
	m := e.shape.Mesh
	space := &diff.Space{}
	face := m.Face(e.pi.PrimIndex)
	shading := e.shape.shadingNormals()
	hasUV := m.HasVertexTexcoords()

	needUV := e.flags.needsUV()
	needDP := e.flags.needsDPDUV()
	needDN := e.flags&FlagDNSDUV != 0
	needB := e.flags&FlagBoundaryTest != 0 && !e.param

	baseO, baseD := -1, -1
	baseP := [3]int{-1, -1, -1}
	baseN := [3]int{-1, -1, -1}
	baseT := [3]int{-1, -1, -1}
	baseE := [2]int{-1, -1}
	if lanes {
		if e.att.origin {
			baseO = space.Declare(diff.InputRayOrigin, 0, 3)
		}
		if e.att.direction {
			baseD = space.Declare(diff.InputRayDirection, 0, 3)
		}
		for k, vi := range face {
			if e.att.positions {
				baseP[k] = space.Declare(diff.InputPositions, 3*int(vi), 3)
			}
			if e.att.normals {
				baseN[k] = space.Declare(diff.InputNormals, 3*int(vi), 3)
			}
			if e.att.texcoords {
				baseT[k] = space.Declare(diff.InputTexcoords, 2*int(vi), 2)
			}
		}
		if needB && e.edge >= 0 && e.att.positions {
			edge := m.Edges()[e.edge]
			baseE[0] = space.Declare(diff.InputPositions, 3*int(edge.V0), 3)
			baseE[1] = space.Declare(diff.InputPositions, 3*int(edge.V1), 3)
		}
	}

	vec3 := func(base int, v core.Vec3) diff.Vec3 {
		return space.Var3(base, v.X, v.Y, v.Z)
	}

	o := vec3(baseO, e.ray.Origin.Value)
	d := vec3(baseD, e.ray.Direction.Value)
	p0 := vec3(baseP[0], m.Vertex(int(face[0])))
	p1 := vec3(baseP[1], m.Vertex(int(face[1])))
	p2 := vec3(baseP[2], m.Vertex(int(face[2])))
	e1, e2 := p1.Sub(p0), p2.Sub(p0)

	// Barycentrics and distance
	var t, u, v diff.Real
	sticky := e.param || e.flags&FlagFollowShape != 0
	switch {
	case sticky:
		u, v = diff.Const(e.pi.PrimUV.X), diff.Const(e.pi.PrimUV.Y)
	case e.att.geometry():
		t, u, v = mollerTrumbore(o, d, p0, e1, e2)
	default:
		t, u, v = diff.Const(e.pi.T), diff.Const(e.pi.PrimUV.X), diff.Const(e.pi.PrimUV.Y)
	}
	w := diff.Const(1).Sub(u).Sub(v)

	p := p0.Add(e1.Mul(u)).Add(e2.Mul(v))
	switch {
	case e.param:
		t = diff.Const(0)
	case sticky:
		t = p.Sub(o).Length().Div(d.Length())
	}

	// Normals
	n := e1.Cross(e2).Normalize()
	shN := n
	zero := diff.ConstVec3(core.Vec3{})
	dnu, dnv := zero, zero
	if shading {
		n0 := vec3(baseN[0], m.VertexNormal(int(face[0])))
		n1 := vec3(baseN[1], m.VertexNormal(int(face[1])))
		n2 := vec3(baseN[2], m.VertexNormal(int(face[2])))
		raw := diff.Barycentric(n0, n1, n2, w, u, v)
		if length := raw.Length(); length.V > 0 {
			inv := length.Recip()
			shN = raw.Mul(inv)
			if needDN {
				dnu = tangential(shN, n1.Sub(n0)).Mul(inv)
				dnv = tangential(shN, n2.Sub(n0)).Mul(inv)
			}
		}
	}
	if n.Dot(shN).V < 0 {
		n = n.Neg()
	}

	// Texture coordinates
	uv := diff.Vec2{X: u, Y: v}
	var duv1, duv2 diff.Vec2
	if hasUV && needUV {
		t0 := space.Var2(baseT[0], m.VertexTexcoord(int(face[0])).X, m.VertexTexcoord(int(face[0])).Y)
		t1 := space.Var2(baseT[1], m.VertexTexcoord(int(face[1])).X, m.VertexTexcoord(int(face[1])).Y)
		t2 := space.Var2(baseT[2], m.VertexTexcoord(int(face[2])).X, m.VertexTexcoord(int(face[2])).Y)
		uv = diff.Barycentric2(t0, t1, t2, w, u, v)
		duv1, duv2 = t1.Sub(t0), t2.Sub(t0)
	}

	// Partials with respect to uv: invert the UV Jacobian of the triangle
	dpdu, dpdv := e1, e2
	dndu, dndv := dnu, dnv
	if hasUV && (needDP || needDN) {
		det := duv1.X.Mul(duv2.Y).Sub(duv1.Y.Mul(duv2.X))
		if math.Abs(det.V) < degenerateUV {
			dpdu, dpdv = coordinateSystem(n)
			dndu, dndv = zero, zero
		} else {
			inv := det.Recip()
			dpdu = e1.Mul(duv2.Y).Sub(e2.Mul(duv1.Y)).Mul(inv)
			dpdv = e2.Mul(duv1.X).Sub(e1.Mul(duv2.X)).Mul(inv)
			dndu = dnu.Mul(duv2.Y).Sub(dnv.Mul(duv1.Y)).Mul(inv)
			dndv = dnv.Mul(duv1.X).Sub(dnu.Mul(duv2.X)).Mul(inv)
		}
	}

	// Boundary test
	var b diff.Real
	if needB {
		dir := d.Normalize()
		switch {
		case shading:
			b = shN.Dot(dir).Abs()
		case e.edge >= 0:
			edge := m.Edges()[e.edge]
			a := vec3(baseE[0], m.Vertex(int(edge.V0)))
			c := vec3(baseE[1], m.Vertex(int(edge.V1)))
			b = projectedSegmentDistance(p, a, c, dir)
		default:
			b = diff.Const(math.Inf(1))
		}
	}

	out := make([]diff.Real, rowCount)
	put3 := func(f Field, v diff.Vec3) {
		i := fieldOffset[f]
		out[i], out[i+1], out[i+2] = v.X, v.Y, v.Z
	}
	out[fieldOffset[FieldT]] = t
	put3(FieldP, p)
	put3(FieldN, n)
	put3(FieldShN, shN)
	if needUV {
		i := fieldOffset[FieldUV]
		out[i], out[i+1] = uv.X, uv.Y
	}
	if needDP {
		put3(FieldDPDU, dpdu)
		put3(FieldDPDV, dpdv)
	}
	if needDN {
		put3(FieldDNDU, dndu)
		put3(FieldDNDV, dndv)
	}
	if needB {
		out[fieldOffset[FieldBoundaryTest]] = b
	}
	return space, out
}

// fill copies the output values into a SurfaceInteraction
func (e *expansion) fill(out []diff.Real) *SurfaceInteraction {
	val3 := func(f Field) core.Vec3 {
		i := fieldOffset[f]
		return core.NewVec3(out[i].V, out[i+1].V, out[i+2].V)
	}

	si := &SurfaceInteraction{
		T:           out[fieldOffset[FieldT]].V,
		P:           val3(FieldP),
		N:           val3(FieldN),
		ShFrame:     core.Frame{N: val3(FieldShN)},
		PrimIndex:   e.pi.PrimIndex,
		Shape:       e.shape,
		Wavelengths: e.ray.Wavelengths,
		Flags:       e.flags,
	}
	if e.flags.needsUV() {
		i := fieldOffset[FieldUV]
		si.UV = core.NewVec2(out[i].V, out[i+1].V)
	}
	if e.flags.needsDPDUV() {
		si.DPDU, si.DPDV = val3(FieldDPDU), val3(FieldDPDV)
	}
	if e.flags&FlagDNSDUV != 0 {
		si.DNDU, si.DNDV = val3(FieldDNDU), val3(FieldDNDV)
	}
	if e.flags&FlagBoundaryTest != 0 && !e.param {
		si.BoundaryTest = out[fieldOffset[FieldBoundaryTest]].V
	}
	if e.flags&FlagShadingFrame != 0 {
		si.ShFrame = shadingFrame(si.ShFrame.N, si.DPDU)
		if !e.param {
			si.Wi = si.ShFrame.ToLocal(e.ray.Direction.Value.Normalize().Negate())
		}
	}
	return si
}

// mollerTrumbore is IntersectTriangle over dual values: differentiating it
// yields the implicit derivatives of t, u and v under the ray/plane
// constraint.
func mollerTrumbore(o, d, p0, e1, e2 diff.Vec3) (t, u, v diff.Real) {
	h := d.Cross(e2)
	f := e1.Dot(h).Recip()
	s := o.Sub(p0)
	q := s.Cross(e1)
	u = s.Dot(h).Mul(f)
	v = d.Dot(q).Mul(f)
	t = e2.Dot(q).Mul(f)
	return t, u, v
}

// tangential removes the component of x along the unit vector n
func tangential(n, x diff.Vec3) diff.Vec3 {
	return x.Sub(n.Mul(n.Dot(x)))
}

// coordinateSystem mirrors core.CoordinateSystem over dual values
func coordinateSystem(n diff.Vec3) (diff.Vec3, diff.Vec3) {
	nt := core.NewVec3(1, 0, 0)
	if math.Abs(n.X.V) > 0.1 {
		nt = core.NewVec3(0, 1, 0)
	}
	s := diff.ConstVec3(nt).Cross(n).Normalize()
	return s, n.Cross(s)
}
