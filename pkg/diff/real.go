// Package diff supplies the local derivative machinery used by surface
// interaction expansion: forward-mode dual values over a small set of
// derivative lanes, attached-value wrappers for rays and mesh buffers, and
// a dense local Jacobian that answers both Jacobian-vector (forward) and
// vector-Jacobian (reverse) products.
//
// The package does not implement a differentiation tape. An expansion
// declares one lane per attached scalar input, evaluates its outputs with
// Real arithmetic and freezes the result into a Jacobian.
package diff

import "math"

// Real is a scalar together with its partial derivatives with respect to the
// lanes of a Space. A nil D marks a detached value. D is never mutated after
// construction, so Reals can share it freely.
type Real struct {
	V float64
	D []float64
}

// Const returns a detached scalar
func Const(v float64) Real {
	return Real{V: v}
}

// Attached reports whether the value depends on any lane
func (a Real) Attached() bool {
	return a.D != nil
}

// Detach drops the derivative part
func (a Real) Detach() Real {
	return Real{V: a.V}
}

// axpy returns ca*da + cb*db; nil stands for a zero vector
func axpy(ca float64, da []float64, cb float64, db []float64) []float64 {
	if da == nil && db == nil {
		return nil
	}
	n := len(da)
	if n == 0 {
		n = len(db)
	}
	out := make([]float64, n)
	if da != nil && ca != 0 {
		for i, d := range da {
			out[i] = ca * d
		}
	}
	if db != nil && cb != 0 {
		for i, d := range db {
			out[i] += cb * d
		}
	}
	return out
}

// Add returns a+b
func (a Real) Add(b Real) Real {
	return Real{V: a.V + b.V, D: axpy(1, a.D, 1, b.D)}
}

// Sub returns a-b
func (a Real) Sub(b Real) Real {
	return Real{V: a.V - b.V, D: axpy(1, a.D, -1, b.D)}
}

// Mul returns a*b
func (a Real) Mul(b Real) Real {
	return Real{V: a.V * b.V, D: axpy(b.V, a.D, a.V, b.D)}
}

// Div returns a/b
func (a Real) Div(b Real) Real {
	inv := 1.0 / b.V
	v := a.V * inv
	return Real{V: v, D: axpy(inv, a.D, -v*inv, b.D)}
}

// Neg returns -a
func (a Real) Neg() Real {
	return Real{V: -a.V, D: axpy(-1, a.D, 0, nil)}
}

// Scale returns a*s for a constant s
func (a Real) Scale(s float64) Real {
	return Real{V: a.V * s, D: axpy(s, a.D, 0, nil)}
}

// AddConst returns a+c for a constant c
func (a Real) AddConst(c float64) Real {
	return Real{V: a.V + c, D: a.D}
}

// Recip returns 1/a
func (a Real) Recip() Real {
	inv := 1.0 / a.V
	return Real{V: inv, D: axpy(-inv*inv, a.D, 0, nil)}
}

// Sqrt returns the square root of a. The derivative at zero is taken as zero.
func (a Real) Sqrt() Real {
	v := math.Sqrt(a.V)
	if v == 0 {
		return Real{V: 0, D: axpy(0, a.D, 0, nil)}
	}
	return Real{V: v, D: axpy(0.5/v, a.D, 0, nil)}
}

// Abs returns |a|
func (a Real) Abs() Real {
	if a.V < 0 {
		return a.Neg()
	}
	return a
}

// Clamp limits a to [lo, hi]; a clamped result is detached
func (a Real) Clamp(lo, hi float64) Real {
	switch {
	case a.V < lo:
		return Const(lo)
	case a.V > hi:
		return Const(hi)
	default:
		return a
	}
}

// Min returns whichever of a and b has the smaller value
func Min(a, b Real) Real {
	if b.V < a.V {
		return b
	}
	return a
}

// Partial returns the derivative with respect to lane i (zero if detached)
func (a Real) Partial(i int) float64 {
	if a.D == nil {
		return 0
	}
	return a.D[i]
}
