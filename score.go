package lookahead

// scoreContainer caches a strong-branching-like score per variable, together
// with the probing depth it was computed at and optionally the LP state of
// the two probes. A score computed at a shallower depth is never overwritten
// by a deeper one: shallow scores are cheaper and more broadly reusable.
type scoreContainer struct {
	scores []float64
	depths []int // -1 while unset

	downMems []*lpiMemory
	upMems   []*lpiMemory
	memDepth []int

	nstored int
}

func newScoreContainer(nvars int) *scoreContainer {
	s := &scoreContainer{
		scores:   make([]float64, nvars),
		depths:   make([]int, nvars),
		downMems: make([]*lpiMemory, nvars),
		upMems:   make([]*lpiMemory, nvars),
		memDepth: make([]int, nvars),
	}
	for i := range s.depths {
		s.depths[i] = -1
		s.memDepth[i] = -1
	}
	return s
}

// updateScore records a score computed at the given probing depth and reports
// whether it was accepted.
func (s *scoreContainer) updateScore(idx int, score float64, probingDepth int) bool {
	if s.depths[idx] >= 0 && s.depths[idx] < probingDepth {
		return false
	}
	if s.depths[idx] < 0 {
		s.nstored++
	}
	s.scores[idx] = score
	s.depths[idx] = probingDepth
	return true
}

func (s *scoreContainer) storedScore(idx int) (float64, bool) {
	if s.depths[idx] < 0 {
		return 0, false
	}
	return s.scores[idx], true
}

// saveMemory takes ownership of the LP state of one probe side made at the
// given probing depth. State held from a different depth is released first.
func (s *scoreContainer) saveMemory(idx int, down bool, mem *lpiMemory, probingDepth int) {
	if s.memDepth[idx] != probingDepth {
		s.downMems[idx].clear()
		s.upMems[idx].clear()
		s.downMems[idx] = nil
		s.upMems[idx] = nil
		s.memDepth[idx] = probingDepth
	}
	if down {
		s.downMems[idx].clear()
		s.downMems[idx] = mem
	} else {
		s.upMems[idx].clear()
		s.upMems[idx] = mem
	}
}

// takeMemory transfers the cached LP state out of the container, but only if
// it was saved at exactly the requested probing depth; state captured deeper
// reflects different bounds and must not be reused shallower.
func (s *scoreContainer) takeMemory(idx, probingDepth int) (down, up *lpiMemory) {
	if s.memDepth[idx] != probingDepth {
		return nil, nil
	}
	down = s.downMems[idx]
	up = s.upMems[idx]
	s.downMems[idx] = nil
	s.upMems[idx] = nil
	s.memDepth[idx] = -1
	return down, up
}

// clear releases every cached LP state still held.
func (s *scoreContainer) clear() {
	for i := range s.downMems {
		s.downMems[i].clear()
		s.upMems[i].clear()
		s.downMems[i] = nil
		s.upMems[i] = nil
		s.memDepth[i] = -1
	}
}
