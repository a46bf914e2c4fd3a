package lookahead

import (
	"math"
)

// candidate is one fractional integer variable eligible for branching, plus
// the LP state cached for it by the scoring pass. Candidates live for a
// single top-level rule invocation.
type candidate struct {
	index int

	// value of the variable in the base LP relaxation
	value float64

	// fractional part of value
	frac float64

	// LP state saved for the two branches, if any; exclusively owned
	downMem *lpiMemory
	upMem   *lpiMemory
}

// release clears any cached LP state the candidate still owns.
func (c *candidate) release() {
	c.downMem.clear()
	c.upMem.clear()
	c.downMem = nil
	c.upMem = nil
}

func fractional(v, eps float64) (float64, bool) {
	f := v - math.Floor(v)
	return f, f > eps && f < 1-eps
}

// fractionalCandidates scans the solved relaxation for integrality-constrained
// variables with a fractional value, preserving variable order. The
// relaxation must hold an optimal solution.
func fractionalCandidates(rel *relaxation, eps float64) ([]*candidate, error) {
	if rel.status != StatusOptimal {
		return nil, ErrLPNotSolved
	}
	var cands []*candidate
	for i := 0; i < rel.prob.nvars(); i++ {
		if !rel.prob.integer[i] {
			continue
		}
		v := rel.x[i]
		if f, ok := fractional(v, eps); ok {
			cands = append(cands, &candidate{index: i, value: v, frac: f})
		}
	}
	return cands, nil
}

func releaseCandidates(cands []*candidate) {
	for _, c := range cands {
		c.release()
	}
}
