package lookahead

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinConsTrailFollowsPath(t *testing.T) {
	b := newBinConsData()
	assert.Equal(t, 0, b.depth())

	b.push(0, true) // down branch: ~x0 holds on the path
	b.push(1, false)
	assert.Equal(t, 2, b.depth())

	b.pop()
	assert.Equal(t, 1, b.depth())
	b.pop()
	assert.Panics(t, func() { b.pop() })
}

func TestFinalizeNegatesTheTrail(t *testing.T) {
	b := newBinConsData()
	b.push(0, true)  // x0 = 0 on the path
	b.push(1, false) // x1 = 1 on the path

	baseX := []float64{0.3, 0.7}
	cons := b.finalize(baseX, 1e-9)
	require.NotNil(t, cons)

	// forbidding {x0=0, x1=1} is the clause (x0 v ~x1)
	require.Equal(t, 2, cons.Size())
	assert.Equal(t, literal{index: 0, negated: false}, cons.lits[0])
	assert.Equal(t, literal{index: 1, negated: true}, cons.lits[1])

	// activity 0.3 + 0.3 < 1: the base LP point violates the clause
	assert.InDelta(t, 0.6, cons.Activity(baseX), 1e-9)
	assert.True(t, cons.ViolatedByBase())
	assert.Equal(t, 1, b.nviolated)

	// the forbidden point violates it, its neighbours satisfy it
	assert.True(t, cons.Violated([]float64{0, 1}, 1e-9))
	assert.False(t, cons.Violated([]float64{1, 1}, 1e-9))
	assert.False(t, cons.Violated([]float64{0, 0}, 1e-9))
}

func TestFinalizeSkipsSingleLiteralPaths(t *testing.T) {
	b := newBinConsData()
	b.push(0, true)

	cons := b.finalize([]float64{0.5}, 1e-9)
	assert.Nil(t, cons)
	assert.Equal(t, 1, b.nskippedSingle)
	assert.Empty(t, b.conss)
}

func TestLogicOrRow(t *testing.T) {
	cons := &LogicOrConstraint{lits: []literal{
		{index: 0, negated: false},
		{index: 1, negated: true},
	}}

	coeffs, rhs := cons.row(3)
	// x0 + (1-x1) ≥ 1 becomes -x0 + x1 ≤ 0
	assert.Equal(t, []float64{-1, 1, 0}, coeffs)
	assert.Equal(t, 0.0, rhs)

	assert.Equal(t, "x0 v ~x1", cons.String())
}
