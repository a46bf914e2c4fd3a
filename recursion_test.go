package lookahead

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fourVarProblem is two independent copies of the two-variable block with
// cheaper objective coefficients on the second copy, so the first block's
// variables score strictly higher in a depth-1 pass. All four LP values are
// fractional: x=1.4, y=1.6, w=1.4, v=1.6.
func fourVarProblem() *Problem {
	p := NewProblem()
	x := p.AddVariable("x", -1).SetInteger().SetBounds(0, 10)
	y := p.AddVariable("y", -0.9).SetInteger().SetBounds(0, 10)
	w := p.AddVariable("w", -0.7).SetInteger().SetBounds(0, 10)
	v := p.AddVariable("v", -0.6).SetInteger().SetBounds(0, 10)
	p.AddInequality([]Term{Expr(5, x), Expr(4, y)}, 13.4)
	p.AddInequality([]Term{Expr(4, x), Expr(5, y)}, 13.6)
	p.AddInequality([]Term{Expr(5, w), Expr(4, v)}, 13.4)
	p.AddInequality([]Term{Expr(4, w), Expr(5, v)}, 13.6)
	return p
}

func abbreviatedConfig(reuse bool) Config {
	cfg := DefaultConfig()
	cfg.RecursionDepth = 1
	cfg.Abbreviated = true
	cfg.MaxCandidates = 2
	cfg.ReuseBasis = reuse
	return cfg
}

func TestAbbreviatedSelectionKeepsTheBestScored(t *testing.T) {
	res, node, _ := executeAtRoot(t, abbreviatedConfig(false), fourVarProblem())

	// the scoring pass ranks x and y above w and v; the final decision falls
	// on x by the index tie-break
	assert.Equal(t, Branched, res)
	assert.Equal(t, 0, node.branchedVar)
}

func TestAbbreviatedScoringCostsTwoLPsPerVariable(t *testing.T) {
	res, _, rel := executeAtRoot(t, abbreviatedConfig(false), fourVarProblem())
	require.Equal(t, Branched, res)

	// 1 base solve, 8 scoring probes, then 4 probes for the two survivors
	assert.Equal(t, int64(13), rel.nsolves)
}

func TestBasisReuseSkipsIdenticalSurvivorProbes(t *testing.T) {
	res, _, rel := executeAtRoot(t, abbreviatedConfig(true), fourVarProblem())
	require.Equal(t, Branched, res)

	// the survivors' probes repeat the scoring pass's bounds exactly, so the
	// saved LP state answers them without touching the simplex
	assert.Equal(t, int64(9), rel.nsolves)
}

func TestCachedScoresSurviveWithinOneExecution(t *testing.T) {
	// a second scoring of the same variable at a deeper probing level must
	// not displace the depth-0 entry consulted for candidate selection
	cfg := abbreviatedConfig(false)
	cfg.RecursionDepth = 2

	res, node, _ := executeAtRoot(t, cfg, fourVarProblem())
	assert.Equal(t, Branched, res)
	assert.Equal(t, 0, node.branchedVar)
}

func TestScoringRuleSelection(t *testing.T) {
	e := &evaluator{cfg: &Config{Scoring: ScoreProduct}}
	down := &branchingResult{dualBound: -2.0, dualBoundValid: true}
	up := &branchingResult{dualBound: -1.0, dualBoundValid: true}
	base := -3.0

	assert.InDelta(t, 2.0, e.scoreOf(down, up, base), 1e-9)

	e.cfg.Scoring = ScoreMin
	assert.InDelta(t, 1.0, e.scoreOf(down, up, base), 1e-9)

	e.cfg.Scoring = ScoreWeighted
	e.cfg.MinWeight = 0.8
	e.cfg.MaxWeight = 1.3
	assert.InDelta(t, 1.3*2.0+0.8*1.0, e.scoreOf(down, up, base), 1e-9)
}

func TestScoringTreatsCutoffAsHugeGain(t *testing.T) {
	e := &evaluator{cfg: &Config{Scoring: ScoreProduct}}
	cut := &branchingResult{}
	cut.markCutoff()
	open := &branchingResult{dualBound: -2.5, dualBoundValid: true}

	score := e.scoreOf(cut, open, -3.0)
	assert.InDelta(t, cutoffGain*0.5, score, 1e-3)

	// an invalid bound contributes zero gain, zeroing the product
	invalid := &branchingResult{}
	assert.Zero(t, e.scoreOf(invalid, open, -3.0))
}

func TestStaleCandidateWindowAbortsEvaluation(t *testing.T) {
	cfg := fullConfig(1)
	m, err := twoVarProblem().milp()
	require.NoError(t, err)
	rel := newRelaxation(m, cfg.Epsilon)
	_, _, err = rel.SolveProbing()
	require.NoError(t, err)

	cands, err := fractionalCandidates(rel, cfg.Epsilon)
	require.NoError(t, err)
	require.Len(t, cands, 2)

	// freeze an entry window that excludes x's LP value 1.4, as if a domain
	// reduction had reached the node after candidate enumeration
	baseX := rel.Solution()
	baseLower := []float64{2, 0}
	baseUpper := append([]float64(nil), rel.upper...)

	e := &evaluator{
		cfg:       &cfg,
		eps:       cfg.Epsilon,
		rel:       rel,
		probe:     newProbingStack(rel),
		scores:    newScoreContainer(2),
		persist:   newPersistent(2),
		obs:       NopObserver{},
		log:       discardLogger(),
		node:      newRootNode(m),
		baseObj:   rel.Objective(),
		baseX:     baseX,
		baseLower: baseLower,
		baseUpper: baseUpper,
	}

	before := rel.nsolves
	status := &ruleStatus{}
	decision := newBranchingDecision()
	err = e.selectVarRecursive(cands, newDomainReductions(baseLower, baseUpper, baseX, cfg.Epsilon), newBinConsData(), 1, e.baseObj, decision, status)
	require.NoError(t, err)

	assert.True(t, status.boundsChanged)
	assert.True(t, status.domRed)
	assert.Nil(t, decision.cand, "no branching may be derived from a stale value")
	assert.Equal(t, before, rel.nsolves, "the stale candidate must not be probed")
}
