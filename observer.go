package lookahead

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Decision labels what was done with a branch-and-bound node.
type Decision string

const (
	NODE_NOT_FEASIBLE    Decision = "node relaxation has no feasible solution"
	WORSE_THAN_INCUMBENT Decision = "worse than incumbent"
	NEW_INCUMBENT        Decision = "better than incumbent and integer feasible, so replacing incumbent"
	BRANCHED_LOOKAHEAD   Decision = "branched on the lookahead decision"
	BRANCHED_FALLBACK    Decision = "branched by the most-infeasible fallback"
	CUTOFF_BY_PROBING    Decision = "probing proved the node useless"
	DOMAINS_REDUCED      Decision = "domains reduced, node requeued"
	CONSTRAINTS_ADDED    Decision = "constraints added, node requeued"
	RULE_DID_NOT_FIND    Decision = "lookahead rule abstained"
)

// Observer receives engine events. Implementations must be cheap; the core
// algorithm does not depend on what an observer does with them.
type Observer interface {
	// ProbingLPSolved fires after every probing LP solve.
	ProbingLPSolved(status SolveStatus, iterations int64)

	// CandidateScored fires when a candidate's score is computed.
	CandidateScored(index int, score float64)

	// CutoffFound fires when both branches of a candidate are cut off.
	CutoffFound(probingDepth int)

	// DomainReductionFound fires when a one-sided cutoff implies a bound.
	DomainReductionFound(index int)

	// ConstraintFound fires when an infeasible binary path condenses into a
	// logic-or constraint.
	ConstraintFound(size int, violated bool)

	// NodeProcessed fires once per real tree node with the decision taken.
	NodeProcessed(z float64, decision Decision)
}

// NopObserver ignores everything. Default.
type NopObserver struct{}

func (NopObserver) ProbingLPSolved(SolveStatus, int64) {}
func (NopObserver) CandidateScored(int, float64)       {}
func (NopObserver) CutoffFound(int)                    {}
func (NopObserver) DomainReductionFound(int)           {}
func (NopObserver) ConstraintFound(int, bool)          {}
func (NopObserver) NodeProcessed(float64, Decision)    {}

// LogObserver traces events at debug level.
type LogObserver struct {
	Log logrus.FieldLogger
}

func (o LogObserver) ProbingLPSolved(status SolveStatus, iterations int64) {
	o.Log.WithFields(logrus.Fields{"status": status.String(), "iterations": iterations}).Debug("probing LP solved")
}

func (o LogObserver) CandidateScored(index int, score float64) {
	o.Log.WithFields(logrus.Fields{"var": index, "score": score}).Debug("candidate scored")
}

func (o LogObserver) CutoffFound(probingDepth int) {
	o.Log.WithField("probingDepth", probingDepth).Debug("double cutoff")
}

func (o LogObserver) DomainReductionFound(index int) {
	o.Log.WithField("var", index).Debug("domain reduction found")
}

func (o LogObserver) ConstraintFound(size int, violated bool) {
	o.Log.WithFields(logrus.Fields{"size": size, "violated": violated}).Debug("logic-or constraint found")
}

func (o LogObserver) NodeProcessed(z float64, decision Decision) {
	o.Log.WithFields(logrus.Fields{"z": z, "decision": string(decision)}).Info("node processed")
}

// MetricsObserver counts engine events in Prometheus collectors.
type MetricsObserver struct {
	probingLPs       *prometheus.CounterVec
	cutoffs          prometheus.Counter
	domainReductions prometheus.Counter
	constraints      *prometheus.CounterVec
	nodes            *prometheus.CounterVec
}

// NewMetricsObserver registers the engine's collectors on reg.
func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	o := &MetricsObserver{
		probingLPs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lookahead_probing_lps_total",
			Help: "Probing LP solves by outcome.",
		}, []string{"status"}),
		cutoffs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lookahead_double_cutoffs_total",
			Help: "Candidates whose both branches were cut off.",
		}),
		domainReductions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lookahead_domain_reductions_total",
			Help: "Domain reductions implied by one-sided cutoffs.",
		}),
		constraints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lookahead_constraints_total",
			Help: "Logic-or constraints synthesized from infeasible paths.",
		}, []string{"violated"}),
		nodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lookahead_nodes_total",
			Help: "Branch-and-bound nodes by decision.",
		}, []string{"decision"}),
	}
	reg.MustRegister(o.probingLPs, o.cutoffs, o.domainReductions, o.constraints, o.nodes)
	return o
}

func (o *MetricsObserver) ProbingLPSolved(status SolveStatus, _ int64) {
	o.probingLPs.WithLabelValues(status.String()).Inc()
}

func (o *MetricsObserver) CandidateScored(int, float64) {}

func (o *MetricsObserver) CutoffFound(int) {
	o.cutoffs.Inc()
}

func (o *MetricsObserver) DomainReductionFound(int) {
	o.domainReductions.Inc()
}

func (o *MetricsObserver) ConstraintFound(_ int, violated bool) {
	label := "no"
	if violated {
		label = "yes"
	}
	o.constraints.WithLabelValues(label).Inc()
}

func (o *MetricsObserver) NodeProcessed(_ float64, decision Decision) {
	o.nodes.WithLabelValues(string(decision)).Inc()
}
