package lookahead

// persistent remembers, across repeated rule invocations, the down/up results
// of the last full evaluation of each variable, keyed by the node it was made
// at and by the LP-solve count at that time. A stored result is reused only
// while the node is unchanged and at most reevalAge further LPs have been
// solved since.
type persistent struct {
	nodeIDs     []int64
	solveCounts []int64
	downs       []branchingResult
	ups         []branchingResult

	// round-robin start of the candidate loop, spreading evaluation effort
	// across calls in non-abbreviated mode
	restartIndex int
}

func newPersistent(nvars int) *persistent {
	p := &persistent{
		nodeIDs:     make([]int64, nvars),
		solveCounts: make([]int64, nvars),
		downs:       make([]branchingResult, nvars),
		ups:         make([]branchingResult, nvars),
	}
	for i := range p.nodeIDs {
		p.nodeIDs[i] = -1
	}
	return p
}

func (p *persistent) valid(idx int, nodeID, nsolves, reevalAge int64) bool {
	if p.nodeIDs[idx] != nodeID {
		return false
	}
	return nsolves-p.solveCounts[idx] <= reevalAge
}

func (p *persistent) results(idx int) (down, up branchingResult) {
	return p.downs[idx], p.ups[idx]
}

func (p *persistent) update(idx int, nodeID, nsolves int64, down, up branchingResult) {
	p.nodeIDs[idx] = nodeID
	p.solveCounts[idx] = nsolves
	p.downs[idx] = down
	p.ups[idx] = up
}

// reset drops all stored results; required when the cache owner moves to an
// unrelated part of the tree.
func (p *persistent) reset() {
	for i := range p.nodeIDs {
		p.nodeIDs[i] = -1
	}
	p.restartIndex = 0
}
