package lookahead

import (
	"math"
)

// branchingResult is the outcome of one down or up probe.
type branchingResult struct {
	objval float64

	dualBound      float64
	dualBoundValid bool

	cutoff bool

	niterations int64
}

func (r *branchingResult) reset() {
	*r = branchingResult{
		objval:    math.Inf(1),
		dualBound: math.Inf(-1),
	}
}

// markCutoff records that the branch is proven useless. By convention the
// dual bound of a cutoff branch is +inf and counts as valid, so that it
// participates correctly in MIN/MAX folding.
func (r *branchingResult) markCutoff() {
	r.cutoff = true
	r.dualBound = math.Inf(1)
	r.dualBoundValid = true
}

// effectiveDualBound is the bound to fold with: +inf for a cutoff branch.
func (r *branchingResult) effectiveDualBound() float64 {
	if r.cutoff {
		return math.Inf(1)
	}
	return r.dualBound
}

// branchingDecision is the running result of one evaluator invocation: the
// best candidate seen so far, its branch results, and a proved dual bound for
// the whole node that is monotonically raised as candidates are evaluated.
type branchingDecision struct {
	cand  *candidate
	score float64

	downDB    float64
	downValid bool
	upDB      float64
	upValid   bool

	// valid lower bound for the node regardless of which variable is chosen
	provedDB float64
}

func newBranchingDecision() *branchingDecision {
	return &branchingDecision{
		score:    math.Inf(-1),
		provedDB: math.Inf(-1),
	}
}

// foldProved raises the proved bound; it never decreases.
func (d *branchingDecision) foldProved(bound float64) {
	if bound > d.provedDB {
		d.provedDB = bound
	}
}

// setBest records a new incumbent candidate with its branch results.
func (d *branchingDecision) setBest(c *candidate, score float64, down, up *branchingResult) {
	d.cand = c
	d.score = score
	d.downDB = down.dualBound
	d.downValid = down.dualBoundValid && !down.cutoff
	d.upDB = up.dualBound
	d.upValid = up.dualBoundValid && !up.cutoff
}

// ruleStatus carries the non-decision outcomes of an evaluation upward
// through every return path, so backtracking is never skipped.
type ruleStatus struct {
	cutoff         bool
	domRed         bool
	domRedCutoff   bool
	lpError        bool
	limitReached   bool
	maxConsReached bool
	addedBinCons   bool
	depthTooSmall  bool
	boundsChanged  bool
}

// interrupted reports whether candidate evaluation must stop.
func (s *ruleStatus) interrupted() bool {
	return s.cutoff || s.lpError || s.limitReached || s.maxConsReached || s.boundsChanged
}
