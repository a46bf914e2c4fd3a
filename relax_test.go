package lookahead

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solvedRelaxation builds the matrix form of p and solves its root LP.
func solvedRelaxation(t *testing.T, p *Problem, eps float64) *relaxation {
	t.Helper()
	m, err := p.milp()
	require.NoError(t, err)
	rel := newRelaxation(m, eps)
	st, _, err := rel.SolveProbing()
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, st)
	return rel
}

// twoVarProblem has the fractional LP optimum x=1.4, y=1.6 with z=-2.84:
// minimize -x - 0.9y subject to 5x+4y ≤ 13.4 and 4x+5y ≤ 13.6.
func twoVarProblem() *Problem {
	p := NewProblem()
	x := p.AddVariable("x", -1).SetInteger().SetBounds(0, 10)
	y := p.AddVariable("y", -0.9).SetInteger().SetBounds(0, 10)
	p.AddInequality([]Term{Expr(5, x), Expr(4, y)}, 13.4)
	p.AddInequality([]Term{Expr(4, x), Expr(5, y)}, 13.6)
	return p
}

// windowProblem constrains a single binary to lo ≤ x ≤ hi, minimizing x, so
// the LP optimum is x=lo. With hi < 1 and lo > 0 both branches of x are
// infeasible.
func windowProblem(lo, hi float64) *Problem {
	p := NewProblem()
	x := p.AddBinary("x", 1)
	p.AddInequality([]Term{Expr(-1, x)}, -lo)
	if hi < 1 {
		p.AddInequality([]Term{Expr(1, x)}, hi)
	}
	return p
}

func TestRelaxationSolvesFractionalOptimum(t *testing.T) {
	rel := solvedRelaxation(t, twoVarProblem(), 1e-9)

	assert.InDelta(t, 1.4, rel.Value(0), 1e-6)
	assert.InDelta(t, 1.6, rel.Value(1), 1e-6)
	assert.InDelta(t, -2.84, rel.Objective(), 1e-6)
	assert.Len(t, rel.Solution(), 2)
}

func TestRelaxationBoundRowsRestrictTheOptimum(t *testing.T) {
	rel := solvedRelaxation(t, twoVarProblem(), 1e-9)

	rel.setBound(0, true, 1) // x ≤ 1
	st, _, err := rel.SolveProbing()
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, st)
	assert.InDelta(t, 1.0, rel.Value(0), 1e-6)
	assert.InDelta(t, 1.92, rel.Value(1), 1e-6)
}

func TestRelaxationContradictoryBoundsAreInfeasibleWithoutSolving(t *testing.T) {
	rel := solvedRelaxation(t, twoVarProblem(), 1e-9)
	before := rel.nsolves

	rel.setBound(0, false, 3)
	rel.setBound(0, true, 2)
	st, iters, err := rel.SolveProbing()
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, st)
	assert.Zero(t, iters)
	assert.Equal(t, before, rel.nsolves)
}

func TestRelaxationInfeasibleRows(t *testing.T) {
	rel := solvedRelaxation(t, windowProblem(0.2, 0.8), 1e-9)
	assert.InDelta(t, 0.2, rel.Value(0), 1e-6)

	// x ≥ 1 contradicts the x ≤ 0.8 row
	rel.setBound(0, false, 1)
	st, _, err := rel.SolveProbing()
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, st)
}

func TestRelaxationSolveLimit(t *testing.T) {
	m, err := twoVarProblem().milp()
	require.NoError(t, err)
	rel := newRelaxation(m, 1e-9)
	rel.solveLimit = 1

	st, _, err := rel.SolveProbing()
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, st)

	rel.setBound(0, true, 1)
	st, _, err = rel.SolveProbing()
	require.NoError(t, err)
	assert.Equal(t, StatusIterLimit, st)
}

func TestRelaxationCutoffBound(t *testing.T) {
	rel := solvedRelaxation(t, twoVarProblem(), 1e-9)
	assert.True(t, math.IsInf(rel.CutoffBound(), 1))

	rel.SetCutoffBound(-3)
	assert.True(t, rel.IsGE(rel.Objective(), rel.CutoffBound()))
	rel.SetCutoffBound(-2)
	assert.False(t, rel.IsGE(rel.Objective(), rel.CutoffBound()))
}

func TestRelaxationWarmStartSkipsIdenticalResolve(t *testing.T) {
	rel := solvedRelaxation(t, twoVarProblem(), 1e-9)
	basis := rel.CaptureBasis()
	norms := rel.CaptureNorms()
	before := rel.nsolves

	rel.setBound(0, true, 10) // unchanged value, marks the LP stale
	rel.InstallBasis(basis)
	rel.InstallNorms(norms)

	st, iters, err := rel.SolveProbing()
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, st)
	assert.Zero(t, iters)
	assert.Equal(t, before, rel.nsolves)
	assert.InDelta(t, -2.84, rel.Objective(), 1e-6)
}

func TestRelaxationWarmStartIgnoredForChangedBounds(t *testing.T) {
	rel := solvedRelaxation(t, twoVarProblem(), 1e-9)
	basis := rel.CaptureBasis()
	before := rel.nsolves

	rel.setBound(0, true, 1)
	rel.InstallBasis(basis)

	st, _, err := rel.SolveProbing()
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, st)
	assert.Equal(t, before+1, rel.nsolves)
	assert.Nil(t, rel.warmBasis)
}

func TestRelaxationPanicsWithoutSolution(t *testing.T) {
	m, err := twoVarProblem().milp()
	require.NoError(t, err)
	rel := newRelaxation(m, 1e-9)

	assert.Panics(t, func() { rel.Objective() })
	assert.Panics(t, func() { rel.Value(0) })
}

func TestRelaxationSolvesRowlessProblem(t *testing.T) {
	p := NewProblem()
	p.AddVariable("x", 2).SetInteger()
	p.AddVariable("y", 0)
	m, err := p.milp()
	require.NoError(t, err)
	rel := newRelaxation(m, 1e-9)

	// no rows anywhere: the optimum sits at the origin without a simplex call
	st, iters, err := rel.SolveProbing()
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, st)
	assert.Zero(t, iters)
	assert.Zero(t, rel.nsolves)
	assert.Zero(t, rel.Objective())
	assert.Equal(t, []float64{0, 0}, rel.Solution())
}

func TestRelaxationRowlessUnboundedIsAnError(t *testing.T) {
	p := NewProblem()
	p.AddVariable("x", -1)
	m, err := p.milp()
	require.NoError(t, err)
	rel := newRelaxation(m, 1e-9)

	st, _, err := rel.SolveProbing()
	assert.Equal(t, StatusError, st)
	assert.ErrorContains(t, err, "unbounded")
}
