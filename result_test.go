package lookahead

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkCutoffConvention(t *testing.T) {
	var r branchingResult
	r.reset()
	assert.False(t, r.dualBoundValid)

	r.markCutoff()
	assert.True(t, r.cutoff)
	assert.True(t, r.dualBoundValid)
	assert.True(t, math.IsInf(r.dualBound, 1))
	assert.True(t, math.IsInf(r.effectiveDualBound(), 1))
}

func TestFoldProvedIsMonotone(t *testing.T) {
	d := newBranchingDecision()
	assert.True(t, math.IsInf(d.provedDB, -1))

	d.foldProved(-3)
	assert.Equal(t, -3.0, d.provedDB)
	d.foldProved(-5)
	assert.Equal(t, -3.0, d.provedDB, "a weaker proof never lowers the bound")
	d.foldProved(-1)
	assert.Equal(t, -1.0, d.provedDB)
}

func TestSetBestInvalidatesCutoffBounds(t *testing.T) {
	d := newBranchingDecision()
	c := &candidate{index: 2, value: 1.4}

	var down, up branchingResult
	down.reset()
	down.objval = -2
	down.dualBound = -2
	down.dualBoundValid = true
	up.reset()
	up.markCutoff()

	d.setBest(c, 1.5, &down, &up)
	assert.Same(t, c, d.cand)
	assert.True(t, d.downValid)
	assert.Equal(t, -2.0, d.downDB)

	// a cutoff branch has no child to inherit a bound
	assert.False(t, d.upValid)
}

func TestRuleStatusInterrupted(t *testing.T) {
	assert.False(t, (&ruleStatus{}).interrupted())
	assert.True(t, (&ruleStatus{cutoff: true}).interrupted())
	assert.True(t, (&ruleStatus{lpError: true}).interrupted())
	assert.True(t, (&ruleStatus{limitReached: true}).interrupted())
	assert.True(t, (&ruleStatus{maxConsReached: true}).interrupted())
	assert.True(t, (&ruleStatus{boundsChanged: true}).interrupted())
	assert.False(t, (&ruleStatus{domRed: true}).interrupted())
}
