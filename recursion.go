package lookahead

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// gain assigned to a cutoff branch when scoring. Large enough to dominate any
// real dual-bound gain, finite so that products stay well defined.
const cutoffGain = 1e10

// evaluator holds the per-invocation state of one top-level rule execution.
// It is owned by a single goroutine; all recursion happens on its fields.
type evaluator struct {
	cfg *Config
	eps float64

	rel   *relaxation
	probe *probingStack

	scores  *scoreContainer
	persist *persistent

	obs Observer
	log logrus.FieldLogger

	// optional external stop flag (time/node/user limit), polled each loop
	// iteration
	stop func() bool

	node *Node

	// state of the base relaxation, frozen at rule entry
	baseObj   float64
	baseX     []float64
	baseLower []float64
	baseUpper []float64

	// true while the depth-1 scoring pass runs; forces scoring and LP-state
	// capture even for single candidates
	scoring bool
}

func (e *evaluator) stopped() bool {
	return e.stop != nil && e.stop()
}

// gainOf is the dual-bound improvement of one branch over the frame's base
// objective. Cutoff branches get a huge flat gain.
func (e *evaluator) gainOf(r *branchingResult, baseObj float64) float64 {
	if r.cutoff {
		return cutoffGain
	}
	if !r.dualBoundValid {
		return 0
	}
	return math.Max(0, r.dualBound-baseObj)
}

func (e *evaluator) scoreOf(down, up *branchingResult, baseObj float64) float64 {
	dg := e.gainOf(down, baseObj)
	ug := e.gainOf(up, baseObj)
	switch e.cfg.Scoring {
	case ScoreMin:
		return math.Min(dg, ug)
	case ScoreWeighted:
		return e.cfg.MaxWeight*math.Max(dg, ug) + e.cfg.MinWeight*math.Min(dg, ug)
	default:
		return dg * ug
	}
}

// selectVarRecursive evaluates the candidate list at the given remaining
// recursion depth and fills decision with the best branching found. Cutoffs,
// domain reductions, errors and limits are reported through status, never
// through panics, so that the probing stack unwinds cleanly.
func (e *evaluator) selectVarRecursive(cands []*candidate, domreds *domainReductions, bincons *binConsData, depth int, baseObj float64, decision *branchingDecision, status *ruleStatus) error {
	if depth < 1 {
		status.depthTooSmall = true
		return nil
	}
	if len(cands) == 0 {
		return nil
	}

	atTop := !e.scoring && e.probe.depth() == 0

	// a single unscored candidate needs no LP solves to be chosen
	if atTop && len(cands) == 1 && !e.cfg.ForceBranching {
		decision.cand = cands[0]
		return nil
	}

	start := 0
	if atTop && !e.cfg.Abbreviated {
		start = e.persist.restartIndex % len(cands)
	}

	probingDepth := e.probe.depth()
	var down, up branchingResult

	for k := 0; k < len(cands); k++ {
		i := (start + k) % len(cands)
		c := cands[i]
		if atTop && !e.cfg.Abbreviated {
			e.persist.restartIndex = (i + 1) % len(cands)
		}

		if e.stopped() {
			status.limitReached = true
			break
		}

		// a value outside the node's own window means some reduction reached
		// the node after the candidate was enumerated; branching on the stale
		// value would be unsound
		if c.value < e.baseLower[c.index]-e.eps || c.value > e.baseUpper[c.index]+e.eps {
			status.boundsChanged = true
			status.domRed = true
			break
		}

		down.reset()
		up.reset()

		if atTop && e.persist.valid(c.index, e.node.id, e.rel.nsolves, e.cfg.ReevalAge) {
			down, up = e.persist.results(c.index)
			// a stored result is only conclusive against the cutoff bound it
			// was computed under; the bound may have tightened since
			e.recheckCutoff(&down)
			e.recheckCutoff(&up)
			e.log.WithFields(logrus.Fields{"var": c.index, "node": e.node.id}).
				Debug("reusing stored branching results")
		} else {
			downreds := domreds.child()
			upreds := domreds.child()

			firstDown := !e.cfg.UpFirst
			firstRes, firstReds := &down, downreds
			secondRes, secondReds := &up, upreds
			if !firstDown {
				firstRes, firstReds = &up, upreds
				secondRes, secondReds = &down, downreds
			}

			if err := e.branchProbe(c, firstDown, depth, firstReds, bincons, firstRes, status); err != nil {
				return err
			}
			if status.lpError || status.limitReached {
				break
			}
			if err := e.branchProbe(c, !firstDown, depth, secondReds, bincons, secondRes, status); err != nil {
				return err
			}
			if status.lpError || status.limitReached {
				break
			}

			// the second branch may have moved the cutoff bound; a result
			// computed before that is only conclusive against the current
			// bound
			e.recheckCutoff(&down)
			e.recheckCutoff(&up)

			if atTop {
				e.persist.update(c.index, e.node.id, e.rel.nsolves, down, up)
			}
			if e.cfg.UseDomainReduction {
				mergeDomainReductions(domreds, downreds, upreds)
			}
		}

		if down.cutoff && up.cutoff {
			// the node itself is infeasible, the strongest outcome probing
			// can produce; no further candidate matters
			status.cutoff = true
			e.obs.CutoffFound(probingDepth)
			e.log.WithField("var", c.index).Debug("both branches cut off, node is useless")
			break
		}

		if e.cfg.UseDomainReduction {
			if down.cutoff {
				// down infeasible: var ≥ ceil(value) holds at this frame
				domreds.addLowerBound(c.index, math.Ceil(c.value), 1)
				e.obs.DomainReductionFound(c.index)
			} else if up.cutoff {
				domreds.addUpperBound(c.index, math.Floor(c.value), 1)
				e.obs.DomainReductionFound(c.index)
			}
		}

		// neither subtree can end below the weaker of the two bounds
		switch {
		case down.dualBoundValid && up.dualBoundValid:
			decision.foldProved(math.Min(down.effectiveDualBound(), up.effectiveDualBound()))
		case down.dualBoundValid:
			decision.foldProved(down.effectiveDualBound())
		case up.dualBoundValid:
			decision.foldProved(up.effectiveDualBound())
		}

		score := e.scoreOf(&down, &up, baseObj)
		e.scores.updateScore(c.index, score, probingDepth)
		e.obs.CandidateScored(c.index, score)

		better := score > decision.score+e.eps
		if !better && score > decision.score-e.eps && decision.cand != nil && c.index < decision.cand.index {
			// deterministic tie-break: lowest variable index
			better = true
		}
		if better || decision.cand == nil {
			decision.setBest(c, score, &down, &up)
		}

		if e.cfg.MaxViolatedDomainReductions > 0 && domreds.nviolated >= e.cfg.MaxViolatedDomainReductions {
			status.maxConsReached = true
			break
		}
		if e.cfg.MaxViolatedConstraints > 0 && bincons.nviolated >= e.cfg.MaxViolatedConstraints {
			status.maxConsReached = true
			break
		}
	}

	return nil
}

// recheckCutoff upgrades a result to cutoff if its bound meanwhile reaches
// the global cutoff bound.
func (e *evaluator) recheckCutoff(r *branchingResult) {
	if !r.cutoff && r.dualBoundValid && e.rel.IsGE(r.dualBound, e.rel.CutoffBound()) {
		r.markCutoff()
	}
}

// branchProbe executes one down or up probe of a candidate: open a probing
// node, tighten the bound, solve, recurse if depth remains, and backtrack.
// The backtrack runs on every exit path.
func (e *evaluator) branchProbe(c *candidate, down bool, depth int, domreds *domainReductions, bincons *binConsData, res *branchingResult, status *ruleStatus) error {
	frameDepth := e.probe.depth()
	e.probe.newProbingNode()
	defer e.probe.backtrack(frameDepth)

	if down {
		e.probe.tightenUpper(c.index, math.Floor(c.value))
	} else {
		e.probe.tightenLower(c.index, math.Ceil(c.value))
	}

	trackBinary := e.cfg.UseBinaryConstraints && e.rel.prob.binary(c.index)
	if trackBinary {
		bincons.push(c.index, down)
		defer bincons.pop()
	}

	mem := c.downMem
	if !down {
		mem = c.upMem
	}
	if e.cfg.ReuseBasis && !mem.empty() {
		mem.restore(e.rel)
	}

	st, iters, err := e.rel.SolveProbing()
	res.niterations += iters
	e.obs.ProbingLPSolved(st, iters)

	switch st {
	case StatusError:
		status.lpError = true
		return errors.Wrapf(err, "probing LP for variable %d failed", c.index)
	case StatusIterLimit, StatusTimeLimit:
		status.limitReached = true
		return nil
	case StatusInfeasible:
		res.markCutoff()
	case StatusOptimal:
		res.objval = e.rel.Objective()
		res.dualBound = res.objval
		res.dualBoundValid = true
		if e.rel.IsGE(res.objval, e.rel.CutoffBound()) {
			res.markCutoff()
		}
	default:
		panic("unexpected probing LP status")
	}

	if res.cutoff {
		// the cutoff happened right here; if the whole path consists of
		// binary branchings, it condenses into a logic-or constraint
		if e.cfg.UseBinaryConstraints && bincons.depth() > 0 && bincons.depth() == e.probe.depth() {
			if cons := bincons.finalize(e.baseX, e.eps); cons != nil {
				status.addedBinCons = true
				e.obs.ConstraintFound(cons.Size(), cons.ViolatedByBase())
			}
		}
		return nil
	}

	// keep the solved state for a later warm start of the same probe
	if e.scoring && e.cfg.ReuseBasis {
		m := &lpiMemory{}
		m.store(e.rel)
		e.scores.saveMemory(c.index, down, m, frameDepth)
	}

	if depth > 1 {
		deeper, err := fractionalCandidates(e.rel, e.eps)
		if err != nil {
			return err
		}
		if len(deeper) > 0 {
			sub := newBranchingDecision()
			if err := e.selectVarRecursive(deeper, domreds, bincons, depth-1, res.objval, sub, status); err != nil {
				releaseCandidates(deeper)
				return err
			}
			releaseCandidates(deeper)
			if status.cutoff {
				// a double cutoff one level deeper proves this probed node
				// infeasible; translate it into this branch's result
				status.cutoff = false
				res.markCutoff()
			} else if sub.provedDB > res.dualBound {
				// deeper probing proved a tighter bound for this branch
				res.dualBound = sub.provedDB
			}
		}
	}

	return nil
}

// bestCandidates implements the abbreviated candidate selection: score every
// candidate that lacks a cached score with one depth-1 evaluation, then keep
// the MaxCandidates best. In full mode the input list passes through
// untouched. A nil return without error means scoring itself already settled
// the node (cutoff, limit, or stale bounds), reported via status.
func (e *evaluator) bestCandidates(cands []*candidate, domreds *domainReductions, bincons *binConsData, status *ruleStatus) ([]*candidate, error) {
	if !e.cfg.Abbreviated {
		return cands, nil
	}

	var missing []*candidate
	for _, c := range cands {
		if _, ok := e.scores.storedScore(c.index); !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		e.scoring = true
		dec := newBranchingDecision()
		err := e.selectVarRecursive(missing, domreds, bincons, 1, e.baseObj, dec, status)
		e.scoring = false
		if err != nil {
			return nil, err
		}
		if status.interrupted() {
			return nil, nil
		}
	}

	sorted := append([]*candidate(nil), cands...)
	sort.SliceStable(sorted, func(a, b int) bool {
		sa, _ := e.scores.storedScore(sorted[a].index)
		sb, _ := e.scores.storedScore(sorted[b].index)
		if sa != sb {
			return sa > sb
		}
		return sorted[a].index < sorted[b].index
	})
	if len(sorted) > e.cfg.MaxCandidates {
		sorted = sorted[:e.cfg.MaxCandidates]
	}

	// hand the scoring pass's saved LP state to the surviving candidates as
	// warm starts; only state captured at this exact probing depth is sound
	if e.cfg.ReuseBasis {
		for _, c := range sorted {
			c.downMem, c.upMem = e.scores.takeMemory(c.index, e.probe.depth())
		}
	}
	return sorted, nil
}
