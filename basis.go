package lookahead

// BasisState is an opaque snapshot of solver state for one set of working
// bounds. The dense simplex backend cannot be handed a factorized basis, so
// the snapshot carries the optimal solution together with the bounds it was
// computed under; installing it lets the next solve for identical bounds
// short-circuit entirely.
type BasisState struct {
	x     []float64
	z     float64
	lower []float64
	upper []float64

	primalFeasible bool
	dualFeasible   bool
}

func (b *BasisState) matches(lower, upper []float64, eps float64) bool {
	if len(lower) != len(b.lower) || len(upper) != len(b.upper) {
		return false
	}
	for i := range lower {
		if abs(lower[i]-b.lower[i]) > eps || abs(upper[i]-b.upper[i]) > eps {
			return false
		}
	}
	return b.primalFeasible && b.dualFeasible
}

// Norms is the opaque pricing-norm companion of a BasisState.
type Norms struct {
	weights []float64
}

func (r *relaxation) CaptureBasis() *BasisState {
	if r.status != StatusOptimal {
		panic(ErrLPNotSolved)
	}
	s := &BasisState{
		x:              append([]float64(nil), r.x...),
		z:              r.z,
		lower:          append([]float64(nil), r.lower...),
		upper:          append([]float64(nil), r.upper...),
		primalFeasible: true,
		dualFeasible:   true,
	}
	return s
}

func (r *relaxation) InstallBasis(b *BasisState) {
	r.warmBasis = b
}

func (r *relaxation) CaptureNorms() *Norms {
	if r.status != StatusOptimal {
		panic(ErrLPNotSolved)
	}
	return &Norms{weights: append([]float64(nil), r.x...)}
}

func (r *relaxation) InstallNorms(n *Norms) {
	r.warmNorms = n
}

// lpiMemory owns a captured basis/norms pair for one probing branch.
// Ownership is exclusive and single-use: restore hands the state back to the
// solver and empties the memory, so a stale snapshot can never be applied
// twice.
type lpiMemory struct {
	basis *BasisState
	norms *Norms
}

// store captures the solver's current state into the memory, replacing
// whatever it held.
func (m *lpiMemory) store(lp LPSolver) {
	m.basis = lp.CaptureBasis()
	m.norms = lp.CaptureNorms()
}

// restore transfers the held state to the solver. The memory is empty
// afterwards, whether or not it held anything.
func (m *lpiMemory) restore(lp LPSolver) {
	if m.basis != nil {
		lp.InstallBasis(m.basis)
	}
	if m.norms != nil {
		lp.InstallNorms(m.norms)
	}
	m.basis = nil
	m.norms = nil
}

func (m *lpiMemory) empty() bool {
	return m == nil || (m.basis == nil && m.norms == nil)
}

// clear releases the captured state without applying it. Memories not
// consumed by the end of their owning scope must be cleared.
func (m *lpiMemory) clear() {
	if m == nil {
		return
	}
	m.basis = nil
	m.norms = nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
