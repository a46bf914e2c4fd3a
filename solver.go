package lookahead

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Outcome classifies a finished solve.
type Outcome int

const (
	OutcomeOptimal Outcome = iota
	OutcomeInfeasible
	OutcomeLimit
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOptimal:
		return "optimal"
	case OutcomeInfeasible:
		return "infeasible"
	case OutcomeLimit:
		return "limit reached"
	}
	return "unknown"
}

// Solution is the result of a branch-and-bound run.
type Solution struct {
	Outcome Outcome

	// best integer-feasible point found, nil if none
	X []float64
	Z float64

	Nodes int64
	LPs   int64
}

// Solver runs depth-first branch-and-bound with the lookahead rule as its
// branching engine. The search is serial: the rule's caches are owned by
// exactly one invocation chain.
type Solver struct {
	cfg Config
	log logrus.FieldLogger
	obs Observer
}

// SolverOption configures a Solver.
type SolverOption func(*Solver)

// WithSolverLogger installs a logger on the driver and the rule.
func WithSolverLogger(l logrus.FieldLogger) SolverOption {
	return func(s *Solver) { s.log = l }
}

// WithSolverObserver installs an observer on the driver and the rule.
func WithSolverObserver(o Observer) SolverOption {
	return func(s *Solver) { s.obs = o }
}

// NewSolver validates the configuration and builds a solver.
func NewSolver(cfg Config, opts ...SolverOption) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid solver configuration")
	}
	s := &Solver{
		cfg: cfg,
		log: discardLogger(),
		obs: NopObserver{},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Solve minimizes the problem. The objective is always minimization.
func (s *Solver) Solve(p *Problem) (Solution, error) {
	milp, err := p.milp()
	if err != nil {
		return Solution{}, errors.Wrap(err, "problem is malformed")
	}

	rel := newRelaxation(milp, s.cfg.Epsilon)
	rel.solveLimit = s.cfg.LPLimit
	if s.cfg.TimeLimit > 0 {
		rel.deadline = time.Now().Add(s.cfg.TimeLimit)
	}

	var nextID int64 = 1
	idgen := func() int64 {
		id := nextID
		nextID++
		return id
	}

	limitHit := false
	rule, err := NewRule(s.cfg,
		WithLogger(s.log),
		WithObserver(s.obs),
		WithNodeIDs(idgen),
		WithStopCheck(func() bool { return limitHit }),
	)
	if err != nil {
		return Solution{}, err
	}

	incumbentZ := math.Inf(1)
	var incumbentX []float64

	stack := []*Node{newRootNode(milp)}
	var nodes int64

	for len(stack) > 0 && !limitHit {
		if s.cfg.NodeLimit > 0 && nodes >= s.cfg.NodeLimit {
			limitHit = true
			break
		}
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		rel.SetCutoffBound(incumbentZ)
		rel.setNodeState(node.lower, node.upper, node.conss)
		st, _, err := rel.SolveProbing()
		switch st {
		case StatusInfeasible:
			s.obs.NodeProcessed(math.Inf(1), NODE_NOT_FEASIBLE)
			continue
		case StatusIterLimit, StatusTimeLimit:
			limitHit = true
			continue
		case StatusError:
			return Solution{}, errors.Wrapf(err, "relaxation of node %d failed", node.id)
		}

		z := rel.Objective()
		if rel.IsGE(z, incumbentZ) {
			s.obs.NodeProcessed(z, WORSE_THAN_INCUMBENT)
			continue
		}
		node.updateLowerBound(z)

		x := rel.Solution()
		if feasibleForIP(milp.integer, x, s.cfg.Epsilon) {
			// Note that we copy the solution before the relaxation reuses
			// its buffers.
			incumbentZ = z
			incumbentX = x
			s.obs.NodeProcessed(z, NEW_INCUMBENT)
			continue
		}

		result, err := rule.Execute(node, rel)
		if err != nil {
			return Solution{}, errors.Wrapf(err, "lookahead rule failed at node %d", node.id)
		}

		switch result {
		case Branched:
			// push up first so the down child is explored first
			stack = append(stack, node.children[1], node.children[0])
			s.obs.NodeProcessed(z, BRANCHED_LOOKAHEAD)

		case Cutoff:
			s.obs.NodeProcessed(z, CUTOFF_BY_PROBING)

		case ReducedDomain:
			// strictly tighter bounds; re-solve the same node
			stack = append(stack, node)
			nodes--
			s.obs.NodeProcessed(z, DOMAINS_REDUCED)

		case ConstraintsAdded:
			if anyViolated(node.conss, x, s.cfg.Epsilon) {
				stack = append(stack, node)
				nodes--
				s.obs.NodeProcessed(z, CONSTRAINTS_ADDED)
				break
			}
			// nothing the new rows would cut right now; branch instead of
			// looping on an unchanged relaxation
			fallthrough

		case DidNotRun, DidNotFind:
			if !s.branchFallback(node, rel, idgen, &stack) {
				limitHit = true
			}
			s.obs.NodeProcessed(z, BRANCHED_FALLBACK)

		default:
			// this should never happen and thus should never fail silently
			panic("unexpected result from the branching rule")
		}
	}

	sol := Solution{
		Z:     incumbentZ,
		X:     incumbentX,
		Nodes: nodes,
		LPs:   rel.nsolves,
	}
	switch {
	case limitHit:
		sol.Outcome = OutcomeLimit
	case incumbentX == nil:
		sol.Outcome = OutcomeInfeasible
	default:
		sol.Outcome = OutcomeOptimal
	}
	return sol, nil
}

// branchFallback branches on the variable whose fractional part is closest to
// one half. Reports false if no fractional variable remains.
func (s *Solver) branchFallback(node *Node, rel *relaxation, idgen func() int64, stack *[]*Node) bool {
	cands, err := fractionalCandidates(rel, s.cfg.Epsilon)
	if err != nil || len(cands) == 0 {
		return false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if math.Abs(c.frac-0.5) < math.Abs(best.frac-0.5) {
			best = c
		}
	}
	down, up := node.createChildren(best.index, best.value, idgen)
	*stack = append(*stack, up, down)
	return true
}

// check whether the solution vector satisfies the integrality constraints
func feasibleForIP(integer []bool, x []float64, eps float64) bool {
	if len(integer) != len(x) {
		panic("constraints vector and solution vector not of equal size")
	}
	for i := range x {
		if integer[i] {
			if _, frac := fractional(x[i], eps); frac {
				return false
			}
		}
	}
	return true
}

func anyViolated(conss []*LogicOrConstraint, x []float64, eps float64) bool {
	for _, c := range conss {
		if c.Violated(x, eps) {
			return true
		}
	}
	return false
}
