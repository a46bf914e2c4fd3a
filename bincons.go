package lookahead

import (
	"fmt"
	"strings"
)

// literal is a binary variable or its negation.
type literal struct {
	index   int
	negated bool
}

// value of the literal at a point
func (l literal) value(x []float64) float64 {
	if l.negated {
		return 1 - x[l.index]
	}
	return x[l.index]
}

// LogicOrConstraint requires at least one of its literals to be true. The
// engine synthesizes one whenever a fully binary probing path turns out
// infeasible.
type LogicOrConstraint struct {
	lits []literal

	// the base LP solution already violates the constraint, so adding it has
	// immediate effect at the current node
	violatedByBase bool
}

// Size returns the number of literals.
func (c *LogicOrConstraint) Size() int { return len(c.lits) }

// ViolatedByBase reports whether the base LP solution violated the constraint
// when it was created.
func (c *LogicOrConstraint) ViolatedByBase() bool { return c.violatedByBase }

// Activity evaluates the left-hand side sum of literal values at x.
func (c *LogicOrConstraint) Activity(x []float64) float64 {
	var a float64
	for _, l := range c.lits {
		a += l.value(x)
	}
	return a
}

// Violated reports whether x fails to satisfy the constraint.
func (c *LogicOrConstraint) Violated(x []float64, eps float64) bool {
	return c.Activity(x) < 1-eps
}

// row renders the constraint as a ≤-inequality over the original variables:
// sum_direct x + sum_negated (1-x) ≥ 1 becomes
// -sum_direct x + sum_negated x ≤ nNegated - 1.
func (c *LogicOrConstraint) row(nvars int) ([]float64, float64) {
	coeffs := make([]float64, nvars)
	nneg := 0
	for _, l := range c.lits {
		if l.negated {
			coeffs[l.index] = 1
			nneg++
		} else {
			coeffs[l.index] = -1
		}
	}
	return coeffs, float64(nneg) - 1
}

func (c *LogicOrConstraint) String() string {
	parts := make([]string, len(c.lits))
	for i, l := range c.lits {
		if l.negated {
			parts[i] = fmt.Sprintf("~x%d", l.index)
		} else {
			parts[i] = fmt.Sprintf("x%d", l.index)
		}
	}
	return strings.Join(parts, " v ")
}

// binConsData tracks the binary branching trail of the current probing path
// and the constraints synthesized from infeasible paths. The trail stores the
// literal that holds on the path: the negated variable for a down branch, the
// variable itself for an up branch.
type binConsData struct {
	trail []literal
	conss []*LogicOrConstraint

	nviolated int

	// single-literal paths are redundant with a plain domain reduction and
	// are skipped, counted here
	nskippedSingle int
}

func newBinConsData() *binConsData {
	return &binConsData{}
}

func (b *binConsData) push(idx int, down bool) {
	b.trail = append(b.trail, literal{index: idx, negated: down})
}

func (b *binConsData) pop() {
	if len(b.trail) == 0 {
		panic("pop on empty binary trail")
	}
	b.trail = b.trail[:len(b.trail)-1]
}

func (b *binConsData) depth() int { return len(b.trail) }

// finalize turns the current trail into a logic-or constraint forbidding the
// path, by negating every trail literal. Called exactly when a cutoff occurs
// at the trail's own depth.
func (b *binConsData) finalize(baseX []float64, eps float64) *LogicOrConstraint {
	if len(b.trail) <= 1 {
		if len(b.trail) == 1 {
			b.nskippedSingle++
		}
		return nil
	}
	lits := make([]literal, len(b.trail))
	for i, l := range b.trail {
		lits[i] = literal{index: l.index, negated: !l.negated}
	}
	c := &LogicOrConstraint{lits: lits}
	c.violatedByBase = c.Violated(baseX, eps)
	if c.violatedByBase {
		b.nviolated++
	}
	b.conss = append(b.conss, c)
	return c
}
