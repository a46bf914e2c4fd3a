package lookahead

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// RuleResult is the outcome of one rule execution at a node.
type RuleResult int

const (
	// DidNotRun: precondition missing, e.g. the relaxation is integral.
	DidNotRun RuleResult = iota

	// DidNotFind: the rule ran but produced nothing usable (LP error or
	// limit); the caller should fall back to another branching rule.
	DidNotFind

	// Branched: two children were created on the chosen variable.
	Branched

	// Cutoff: probing proved the node has no useful solution.
	Cutoff

	// ReducedDomain: bounds of the node were tightened; re-solve it.
	ReducedDomain

	// ConstraintsAdded: logic-or constraints were attached; re-solve it.
	ConstraintsAdded
)

func (r RuleResult) String() string {
	switch r {
	case DidNotRun:
		return "did not run"
	case DidNotFind:
		return "did not find"
	case Branched:
		return "branched"
	case Cutoff:
		return "cutoff"
	case ReducedDomain:
		return "reduced domain"
	case ConstraintsAdded:
		return "constraints added"
	}
	return "unknown"
}

// Rule is the lookahead branching rule. One Rule instance serves one
// branch-and-bound run: its persistent cache is keyed by node identity and LP
// age and must not be shared across unrelated searches.
type Rule struct {
	cfg Config
	log logrus.FieldLogger
	obs Observer

	persist *persistent
	nextID  int64
	idgen   func() int64
	stop    func() bool
}

// RuleOption configures a Rule.
type RuleOption func(*Rule)

// WithLogger installs a logger; the default discards everything.
func WithLogger(l logrus.FieldLogger) RuleOption {
	return func(r *Rule) { r.log = l }
}

// WithObserver installs an instrumentation observer.
func WithObserver(o Observer) RuleOption {
	return func(r *Rule) { r.obs = o }
}

// WithNodeIDs installs the id allocator used for created children; required
// when an external driver owns node identity.
func WithNodeIDs(gen func() int64) RuleOption {
	return func(r *Rule) { r.idgen = gen }
}

// WithStopCheck installs a cooperative stop flag polled during evaluation.
func WithStopCheck(stop func() bool) RuleOption {
	return func(r *Rule) { r.stop = stop }
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// NewRule validates the configuration and builds a rule.
func NewRule(cfg Config, opts ...RuleOption) (*Rule, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid lookahead configuration")
	}
	r := &Rule{
		cfg:    cfg,
		log:    discardLogger(),
		obs:    NopObserver{},
		nextID: 1,
	}
	for _, o := range opts {
		o(r)
	}
	if r.idgen == nil {
		r.idgen = func() int64 {
			id := r.nextID
			r.nextID++
			return id
		}
	}
	return r, nil
}

// Reset drops the persistent reuse cache. Call it when moving the rule to an
// unrelated search.
func (r *Rule) Reset() {
	if r.persist != nil {
		r.persist.reset()
	}
}

// Execute runs the lookahead evaluation at the given node. The relaxation
// must hold the node's optimal base LP. Whatever happens inside, the probing
// stack is fully backtracked before Execute returns.
func (r *Rule) Execute(node *Node, rel *relaxation) (RuleResult, error) {
	if rel.status != StatusOptimal {
		return DidNotRun, ErrLPNotSolved
	}

	cands, err := fractionalCandidates(rel, r.cfg.Epsilon)
	if err != nil {
		return DidNotRun, err
	}
	if len(cands) == 0 {
		return DidNotRun, nil
	}

	if r.persist == nil || len(r.persist.nodeIDs) != rel.prob.nvars() {
		r.persist = newPersistent(rel.prob.nvars())
	}

	baseX := rel.Solution()
	baseLower := append([]float64(nil), rel.lower...)
	baseUpper := append([]float64(nil), rel.upper...)
	baseObj := rel.Objective()

	probe := newProbingStack(rel)
	defer probe.backtrackAll()

	scores := newScoreContainer(rel.prob.nvars())
	defer scores.clear()
	defer releaseCandidates(cands)

	ev := &evaluator{
		cfg:       &r.cfg,
		eps:       r.cfg.Epsilon,
		rel:       rel,
		probe:     probe,
		scores:    scores,
		persist:   r.persist,
		obs:       r.obs,
		log:       r.log,
		stop:      r.stop,
		node:      node,
		baseObj:   baseObj,
		baseX:     baseX,
		baseLower: baseLower,
		baseUpper: baseUpper,
	}

	domreds := newDomainReductions(baseLower, baseUpper, baseX, r.cfg.Epsilon)
	bincons := newBinConsData()
	status := &ruleStatus{}
	decision := newBranchingDecision()

	selected, err := ev.bestCandidates(cands, domreds, bincons, status)
	if err == nil && !status.interrupted() && len(selected) > 0 {
		err = ev.selectVarRecursive(selected, domreds, bincons, r.cfg.RecursionDepth, baseObj, decision, status)
	}

	// the base LP must be intact for the caller; probing leaves the bounds
	// restored but the loaded solution stale
	probe.backtrackAll()

	if err != nil || status.lpError {
		// LP failures are non-fatal for the solve as a whole; report that no
		// branching was found and let the caller fall back
		r.log.WithError(err).Warn("lookahead evaluation aborted on LP error")
		return DidNotFind, nil
	}

	if status.cutoff {
		node.updateLowerBound(decision.provedDB)
		return Cutoff, nil
	}

	if status.depthTooSmall {
		return DidNotRun, nil
	}

	consAdded := false
	if r.cfg.UseBinaryConstraints && status.addedBinCons && len(bincons.conss) > 0 {
		for _, c := range bincons.conss {
			node.addConstraint(c)
		}
		consAdded = true
	}

	if r.cfg.UseDomainReduction && domreds.nchanged > 0 {
		cut, nch := domreds.apply(node)
		status.domRedCutoff = cut
		status.domRed = status.domRed || nch > 0
	}
	if status.domRedCutoff {
		// the collected reductions emptied a domain: the node is done
		return Cutoff, nil
	}

	node.updateLowerBound(decision.provedDB)

	switch {
	case consAdded:
		return ConstraintsAdded, nil
	case status.domRed && !status.boundsChanged:
		return ReducedDomain, nil
	case status.boundsChanged:
		// some reduction moved a candidate's window behind our back; any
		// decision computed against the old bounds is stale
		return DidNotFind, nil
	case decision.cand != nil:
		// a limit may have interrupted the loop, but a completed decision is
		// still sound to use
		r.branchOnVar(node, decision)
		return Branched, nil
	default:
		return DidNotFind, nil
	}
}

// branchOnVar materializes the decision as a real two-child branch and
// propagates every dual bound already proven.
func (r *Rule) branchOnVar(node *Node, d *branchingDecision) {
	down, up := node.createChildren(d.cand.index, d.cand.value, r.idgen)

	down.updateLowerBound(d.provedDB)
	if d.downValid {
		down.updateLowerBound(d.downDB)
	}
	up.updateLowerBound(d.provedDB)
	if d.upValid {
		up.updateLowerBound(d.upDB)
	}

	r.log.WithFields(logrus.Fields{
		"var":      d.cand.index,
		"value":    d.cand.value,
		"score":    d.score,
		"provedDB": d.provedDB,
	}).Debug("branching on lookahead decision")
}
