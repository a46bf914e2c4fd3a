package lookahead

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// SolveStatus is the outcome of one LP solve.
type SolveStatus int

const (
	StatusNotSolved SolveStatus = iota
	StatusOptimal
	StatusInfeasible
	StatusIterLimit
	StatusTimeLimit
	StatusError
)

func (s SolveStatus) String() string {
	switch s {
	case StatusNotSolved:
		return "not solved"
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusIterLimit:
		return "iteration limit"
	case StatusTimeLimit:
		return "time limit"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// ErrLPNotSolved is returned when solution values are requested from a
// relaxation that has no optimal solution loaded.
var ErrLPNotSolved = errors.New("relaxation has no optimal solution")

// LPSolver is the capability set the branching engine needs from the LP
// relaxation. The default implementation is *relaxation; tests may substitute
// their own.
type LPSolver interface {
	// SolveProbing solves the relaxation under the current working bounds and
	// node constraints. The error is only non-nil for StatusError.
	SolveProbing() (SolveStatus, int64, error)

	// Objective returns the objective value of the last optimal solve.
	Objective() float64

	// Value returns the solution value of variable i.
	Value(i int) float64

	// Solution returns a copy of the full solution vector.
	Solution() []float64

	// CaptureBasis and InstallBasis move opaque solver state out of and back
	// into the solver. CaptureNorms and InstallNorms do the same for pricing
	// norms.
	CaptureBasis() *BasisState
	InstallBasis(*BasisState)
	CaptureNorms() *Norms
	InstallNorms(*Norms)

	// CutoffBound is the objective value at or above which a subproblem is
	// proven useless.
	CutoffBound() float64
	SetCutoffBound(float64)

	// IsGE reports a ≥ b under the feasibility tolerance.
	IsGE(a, b float64) bool
}

// relaxation owns the mutable LP state of one solve: working variable bounds
// (modified by the probing trail and restored on backtrack), node-local
// logic-or rows, the global cutoff bound, and the last solution.
type relaxation struct {
	prob *milpProblem
	eps  float64

	// working bounds; the probing stack edits these through setBound
	lower []float64
	upper []float64

	// logic-or constraints of the current node, materialized as rows
	conss []*LogicOrConstraint

	cutoff float64

	x      []float64
	z      float64
	status SolveStatus

	// consumed warm-start state, if any
	warmBasis *BasisState
	warmNorms *Norms

	// accounting
	nsolves     int64
	niterations int64

	// limits; zero values disable them
	solveLimit int64
	deadline   time.Time
}

func newRelaxation(prob *milpProblem, eps float64) *relaxation {
	r := &relaxation{
		prob:   prob,
		eps:    eps,
		lower:  make([]float64, prob.nvars()),
		upper:  make([]float64, prob.nvars()),
		cutoff: math.Inf(1),
	}
	copy(r.lower, prob.lower)
	copy(r.upper, prob.upper)
	return r
}

// setNodeState loads a real node's bounds and constraints before solving it.
func (r *relaxation) setNodeState(lower, upper []float64, conss []*LogicOrConstraint) {
	copy(r.lower, lower)
	copy(r.upper, upper)
	r.conss = conss
	r.status = StatusNotSolved
}

// setBound writes one working bound. Used by the probing trail only.
func (r *relaxation) setBound(i int, upperBound bool, v float64) {
	if upperBound {
		r.upper[i] = v
	} else {
		r.lower[i] = v
	}
	r.status = StatusNotSolved
}

func (r *relaxation) bound(i int, upperBound bool) float64 {
	if upperBound {
		return r.upper[i]
	}
	return r.lower[i]
}

func (r *relaxation) SolveProbing() (SolveStatus, int64, error) {
	// contradictory working bounds need no LP
	for i := range r.lower {
		if r.lower[i] > r.upper[i]+r.eps {
			r.status = StatusInfeasible
			return StatusInfeasible, 0, nil
		}
	}

	// a captured state for the exact same bounds makes the solve a no-op
	if r.warmBasis != nil && r.warmBasis.matches(r.lower, r.upper, r.eps) {
		r.x = append(r.x[:0], r.warmBasis.x...)
		r.z = r.warmBasis.z
		r.status = StatusOptimal
		r.warmBasis = nil
		r.warmNorms = nil
		return StatusOptimal, 0, nil
	}
	r.warmBasis = nil
	r.warmNorms = nil

	// no equality, inequality, logic-or, or bound rows: the relaxation
	// decomposes per variable and needs no simplex
	if !r.hasRows() {
		return r.solveUnconstrained()
	}

	if r.solveLimit > 0 && r.nsolves >= r.solveLimit {
		r.status = StatusIterLimit
		return StatusIterLimit, 0, nil
	}
	if !r.deadline.IsZero() && time.Now().After(r.deadline) {
		r.status = StatusTimeLimit
		return StatusTimeLimit, 0, nil
	}

	c, A, b := r.standardForm()
	r.nsolves++

	z, x, err := lp.Simplex(c, A, b, 0, nil)

	// gonum's simplex does not report pivot counts; charge one unit per row
	// so that relative LP-age comparisons stay meaningful.
	rows, _ := A.Dims()
	iters := int64(rows)
	if iters < 1 {
		iters = 1
	}
	r.niterations += iters

	switch {
	case err == nil:
		if len(x) > r.prob.nvars() {
			x = x[:r.prob.nvars()]
		}
		r.x = append(r.x[:0], x...)
		r.z = z
		r.status = StatusOptimal
		return StatusOptimal, iters, nil
	case errors.Is(err, lp.ErrInfeasible):
		r.status = StatusInfeasible
		return StatusInfeasible, iters, nil
	case errors.Is(err, lp.ErrUnbounded):
		r.status = StatusError
		return StatusError, iters, errors.Wrap(err, "relaxation is unbounded")
	default:
		r.status = StatusError
		return StatusError, iters, errors.Wrap(err, "simplex failed")
	}
}

// hasRows reports whether the current relaxation contributes at least one row
// to the standard form. Working bounds count: a finite upper or positive
// lower bound becomes a row.
func (r *relaxation) hasRows() bool {
	if r.prob.A != nil || r.prob.G != nil || len(r.conss) > 0 {
		return true
	}
	for i := range r.lower {
		if !math.IsInf(r.upper[i], 1) || r.lower[i] > 0 {
			return true
		}
	}
	return false
}

// solveUnconstrained handles the rowless relaxation. Every variable then sits
// on its default [0, +inf) domain, so the minimum is at zero unless some cost
// is negative, in which case the relaxation is unbounded.
func (r *relaxation) solveUnconstrained() (SolveStatus, int64, error) {
	for i, ci := range r.prob.c {
		if ci < 0 {
			r.status = StatusError
			return StatusError, 0, errors.Errorf("relaxation is unbounded in variable %d", i)
		}
	}
	r.x = make([]float64, r.prob.nvars())
	r.z = 0
	r.status = StatusOptimal
	return StatusOptimal, 0, nil
}

// standardForm assembles the equality-only system for the current working
// bounds: base rows, logic-or rows of the node, and one inequality row per
// finite bound that is not implied by nonnegativity.
func (r *relaxation) standardForm() ([]float64, *mat.Dense, []float64) {
	n := r.prob.nvars()

	var gRows [][]float64
	var h []float64
	addRow := func(row []float64, rhs float64) {
		gRows = append(gRows, row)
		h = append(h, rhs)
	}

	if r.prob.G != nil {
		rows, _ := r.prob.G.Dims()
		for i := 0; i < rows; i++ {
			row := make([]float64, n)
			copy(row, r.prob.G.RawRowView(i))
			addRow(row, r.prob.h[i])
		}
	}
	for _, cons := range r.conss {
		row, rhs := cons.row(n)
		addRow(row, rhs)
	}
	for i := 0; i < n; i++ {
		if !math.IsInf(r.upper[i], 1) {
			row := make([]float64, n)
			row[i] = 1
			addRow(row, r.upper[i])
		}
		if r.lower[i] > 0 {
			row := make([]float64, n)
			row[i] = -1
			addRow(row, -r.lower[i])
		}
	}

	if len(gRows) == 0 {
		if r.prob.A == nil {
			panic("problem has no constraints")
		}
		// equality-only problem
		return r.prob.c, mat.DenseCopyOf(r.prob.A), r.prob.b
	}

	data := make([]float64, 0, len(gRows)*n)
	for _, row := range gRows {
		data = append(data, row...)
	}
	G := mat.NewDense(len(gRows), n, data)

	return convertToEqualities(r.prob.c, r.prob.A, r.prob.b, G, h)
}

func (r *relaxation) Objective() float64 {
	if r.status != StatusOptimal {
		panic(ErrLPNotSolved)
	}
	return r.z
}

func (r *relaxation) Value(i int) float64 {
	if r.status != StatusOptimal {
		panic(ErrLPNotSolved)
	}
	return r.x[i]
}

func (r *relaxation) Solution() []float64 {
	if r.status != StatusOptimal {
		panic(ErrLPNotSolved)
	}
	out := make([]float64, len(r.x))
	copy(out, r.x)
	return out
}

func (r *relaxation) CutoffBound() float64     { return r.cutoff }
func (r *relaxation) SetCutoffBound(v float64) { r.cutoff = v }

// IsGE reports a ≥ b within the feasibility tolerance.
func (r *relaxation) IsGE(a, b float64) bool {
	return a >= b-r.eps
}
