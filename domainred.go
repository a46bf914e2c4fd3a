package lookahead

// proposedBound is one candidate bound tightening together with the number of
// probing proof nodes that justify it.
type proposedBound struct {
	value   float64
	set     bool
	nproofs int
}

// domainReductions collects, for one probing subtree, the bound tightenings
// implied by cutoffs. One structure is allocated per subtree evaluation;
// sibling structures are folded into the parent with merge, and the surviving
// structure is applied to the real node after probing ends.
type domainReductions struct {
	lower []proposedBound
	upper []proposedBound

	// violated by the base LP solution, meaning the reduction cuts off the
	// current relaxation optimum
	baseViolated []bool

	nchanged  int
	nviolated int

	// bounds and solution of the base node, used to reject proposals that do
	// not actually strengthen anything
	baseLower []float64
	baseUpper []float64
	baseX     []float64
	eps       float64
}

func newDomainReductions(baseLower, baseUpper, baseX []float64, eps float64) *domainReductions {
	n := len(baseLower)
	return &domainReductions{
		lower:        make([]proposedBound, n),
		upper:        make([]proposedBound, n),
		baseViolated: make([]bool, n),
		baseLower:    baseLower,
		baseUpper:    baseUpper,
		baseX:        baseX,
		eps:          eps,
	}
}

// addLowerBound proposes var ≥ bound with the given proof weight. The
// proposal is kept only if it is strictly tighter than both the node's real
// bound and any earlier proposal; an equal proposal only accumulates proofs.
func (d *domainReductions) addLowerBound(idx int, bound float64, nproofs int) {
	if bound <= d.baseLower[idx]+d.eps {
		return
	}
	p := &d.lower[idx]
	switch {
	case !p.set:
		p.value = bound
		p.set = true
		p.nproofs = nproofs
		d.nchanged++
	case bound > p.value+d.eps:
		p.value = bound
		p.nproofs = nproofs
	case bound >= p.value-d.eps:
		p.nproofs += nproofs
	default:
		return
	}
	d.markViolation(idx, d.baseX[idx] < bound-d.eps)
}

// addUpperBound proposes var ≤ bound, symmetric to addLowerBound.
func (d *domainReductions) addUpperBound(idx int, bound float64, nproofs int) {
	if bound >= d.baseUpper[idx]-d.eps {
		return
	}
	p := &d.upper[idx]
	switch {
	case !p.set:
		p.value = bound
		p.set = true
		p.nproofs = nproofs
		d.nchanged++
	case bound < p.value-d.eps:
		p.value = bound
		p.nproofs = nproofs
	case bound <= p.value+d.eps:
		p.nproofs += nproofs
	default:
		return
	}
	d.markViolation(idx, d.baseX[idx] > bound+d.eps)
}

func (d *domainReductions) markViolation(idx int, violated bool) {
	if violated && !d.baseViolated[idx] {
		d.baseViolated[idx] = true
		d.nviolated++
	}
}

// child returns an empty sibling structure sharing the same base state.
func (d *domainReductions) child() *domainReductions {
	return newDomainReductions(d.baseLower, d.baseUpper, d.baseX, d.eps)
}

// mergeDomainReductions folds the reductions of a down and an up subtree into
// the parent. A bound is valid for the parent only if both subtrees bound the
// variable, and then only the weaker guarantee holds: MIN of lower bounds,
// MAX of upper bounds. Proof counts add up.
func mergeDomainReductions(target, down, up *domainReductions) {
	for i := range target.lower {
		if down.lower[i].set && up.lower[i].set {
			bound := down.lower[i].value
			if up.lower[i].value < bound {
				bound = up.lower[i].value
			}
			target.addLowerBound(i, bound, down.lower[i].nproofs+up.lower[i].nproofs)
		}
		if down.upper[i].set && up.upper[i].set {
			bound := down.upper[i].value
			if up.upper[i].value > bound {
				bound = up.upper[i].value
			}
			target.addUpperBound(i, bound, down.upper[i].nproofs+up.upper[i].nproofs)
		}
	}
}

// apply tightens the real node's bounds with every collected reduction.
// cutoff is true if some variable's domain became empty.
func (d *domainReductions) apply(node *Node) (cutoff bool, nchanged int) {
	for i := range d.lower {
		if d.lower[i].set && d.lower[i].value > node.lower[i]+d.eps {
			node.lower[i] = d.lower[i].value
			nchanged++
		}
		if d.upper[i].set && d.upper[i].value < node.upper[i]-d.eps {
			node.upper[i] = d.upper[i].value
			nchanged++
		}
		if node.lower[i] > node.upper[i]+d.eps {
			cutoff = true
		}
	}
	return cutoff, nchanged
}
