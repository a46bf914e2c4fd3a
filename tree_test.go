package lookahead

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbingStackBacktrackSymmetry(t *testing.T) {
	rel := solvedRelaxation(t, twoVarProblem(), 1e-9)
	origLower := append([]float64(nil), rel.lower...)
	origUpper := append([]float64(nil), rel.upper...)

	probe := newProbingStack(rel)
	require.Equal(t, 0, probe.depth())

	probe.newProbingNode()
	probe.tightenUpper(0, 1)
	probe.newProbingNode()
	probe.tightenLower(1, 2)
	probe.tightenUpper(1, 2)
	require.Equal(t, 2, probe.depth())

	probe.backtrack(1)
	assert.Equal(t, 1, probe.depth())
	assert.Equal(t, origLower[1], rel.lower[1])
	assert.Equal(t, origUpper[1], rel.upper[1])
	assert.Equal(t, 1.0, rel.upper[0], "outer probing node must stay applied")

	probe.backtrackAll()
	assert.Equal(t, 0, probe.depth())
	assert.Equal(t, origLower, rel.lower)
	assert.Equal(t, origUpper, rel.upper)
}

func TestProbingStackRejectsMisuse(t *testing.T) {
	rel := solvedRelaxation(t, twoVarProblem(), 1e-9)
	probe := newProbingStack(rel)

	assert.Panics(t, func() { probe.tightenUpper(0, 1) }, "bound change without a probing node")

	probe.newProbingNode()
	assert.Panics(t, func() { probe.tightenUpper(0, 99) }, "loosening is not a tightening")
	assert.Panics(t, func() { probe.backtrack(5) })
	probe.backtrackAll()
}

func TestCreateChildren(t *testing.T) {
	m, err := twoVarProblem().milp()
	require.NoError(t, err)
	node := newRootNode(m)
	node.updateLowerBound(-3)
	node.addConstraint(&LogicOrConstraint{lits: []literal{{0, false}, {1, true}}})

	var next int64 = 7
	gen := func() int64 { next++; return next - 1 }
	down, up := node.createChildren(0, 1.4, gen)

	assert.Equal(t, int64(7), down.ID())
	assert.Equal(t, int64(8), up.ID())
	assert.Equal(t, 1.0, down.upper[0])
	assert.Equal(t, 2.0, up.lower[0])
	assert.Equal(t, node.lower[1], down.lower[1])

	// children inherit the proven bound and the constraints
	assert.Equal(t, -3.0, down.LowerBound())
	assert.Equal(t, -3.0, up.LowerBound())
	assert.Len(t, down.Constraints(), 1)
	assert.Len(t, node.Children(), 2)
}

func TestUpdateLowerBoundIsMonotone(t *testing.T) {
	m, err := twoVarProblem().milp()
	require.NoError(t, err)
	node := newRootNode(m)

	assert.True(t, math.IsInf(node.LowerBound(), -1))
	node.updateLowerBound(-5)
	node.updateLowerBound(-7)
	assert.Equal(t, -5.0, node.LowerBound())
}
