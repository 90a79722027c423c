package diff

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Jacobian is the frozen local derivative of a list of scalar outputs with
// respect to the lanes of a Space. Forward and Backward are exact transposes
// of one another.
type Jacobian struct {
	lanes    []Lane
	attached []bool
	rows     int
	m        *mat.Dense // nil when there are no lanes or no rows
}

// NewJacobian freezes outputs into a Jacobian over lanes
func NewJacobian(lanes []Lane, outputs []Real) *Jacobian {
	j := &Jacobian{
		lanes:    lanes,
		attached: make([]bool, len(outputs)),
		rows:     len(outputs),
	}
	if len(lanes) == 0 || len(outputs) == 0 {
		return j
	}
	j.m = mat.NewDense(len(outputs), len(lanes), nil)
	for r, out := range outputs {
		if out.D == nil {
			continue
		}
		j.attached[r] = true
		j.m.SetRow(r, out.D)
	}
	return j
}

// Rows returns the number of outputs
func (j *Jacobian) Rows() int {
	return j.rows
}

// Lanes returns the inputs the columns correspond to
func (j *Jacobian) Lanes() []Lane {
	return j.lanes
}

// Attached reports whether output row r depends on any lane
func (j *Jacobian) Attached(r int) bool {
	return j.attached[r]
}

// At returns ∂output[r]/∂lane[c]
func (j *Jacobian) At(r, c int) float64 {
	if j.m == nil {
		return 0
	}
	return j.m.At(r, c)
}

// Forward returns J·v, v indexed by lane
func (j *Jacobian) Forward(v []float64) ([]float64, error) {
	if len(v) != len(j.lanes) {
		return nil, fmt.Errorf("tangent has %d entries, expected %d", len(v), len(j.lanes))
	}
	if j.m == nil {
		return make([]float64, j.rows), nil
	}
	var out mat.VecDense
	out.MulVec(j.m, mat.NewVecDense(len(v), v))
	return out.RawVector().Data, nil
}

// Backward returns Jᵀ·w, w indexed by output row
func (j *Jacobian) Backward(w []float64) ([]float64, error) {
	if len(w) != j.rows {
		return nil, fmt.Errorf("adjoint has %d entries, expected %d", len(w), j.rows)
	}
	if j.m == nil {
		return make([]float64, len(j.lanes)), nil
	}
	var out mat.VecDense
	out.MulVec(j.m.T(), mat.NewVecDense(len(w), w))
	return out.RawVector().Data, nil
}

// Deferred yields a Jacobian that is built at most once
type Deferred struct {
	once  sync.Once
	build func() *Jacobian
	jac   *Jacobian
}

// Ready wraps an already built Jacobian
func Ready(j *Jacobian) *Deferred {
	d := &Deferred{jac: j}
	d.once.Do(func() {})
	return d
}

// Record postpones building until the first Get
func Record(build func() *Jacobian) *Deferred {
	return &Deferred{build: build}
}

// Get returns the Jacobian, building it on first use
func (d *Deferred) Get() *Jacobian {
	d.once.Do(func() {
		d.jac = d.build()
		d.build = nil
	})
	return d.jac
}
