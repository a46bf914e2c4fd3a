package lookahead

import (
	"time"

	"github.com/pkg/errors"
)

// ScoringRule selects how the down and up dual-bound gains of a candidate are
// combined into a single score.
type ScoringRule string

const (
	// ScoreProduct multiplies the two gains. Default.
	ScoreProduct ScoringRule = "product"

	// ScoreMin takes the smaller of the two gains.
	ScoreMin ScoringRule = "min"

	// ScoreWeighted combines max and min of the gains with configurable weights.
	ScoreWeighted ScoringRule = "weighted"
)

// Config holds all parameters of the lookahead rule and of the surrounding
// branch-and-bound driver. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	// RecursionDepth is the number of probing levels. Depth 1 is plain strong
	// branching, depth 2 adds one level of lookahead.
	RecursionDepth int `yaml:"recursionDepth"`

	// Abbreviated narrows the candidate list to the MaxCandidates best
	// according to a cached depth-1 strong-branching score.
	Abbreviated bool `yaml:"abbreviated"`

	// MaxCandidates is the size of the abbreviated candidate list.
	MaxCandidates int `yaml:"maxCandidates"`

	// UseDomainReduction collects bound tightenings implied by one-sided
	// cutoffs and by deeper probing levels, and applies them to the node.
	UseDomainReduction bool `yaml:"useDomainReduction"`

	// UseBinaryConstraints synthesizes logic-or constraints from fully binary
	// infeasible probing paths.
	UseBinaryConstraints bool `yaml:"useBinaryConstraints"`

	// MaxViolatedDomainReductions stops candidate evaluation once this many
	// collected reductions are violated by the base LP solution. 0 disables
	// the cap.
	MaxViolatedDomainReductions int `yaml:"maxViolatedDomainReductions"`

	// MaxViolatedConstraints stops candidate evaluation once this many
	// collected binary constraints are violated by the base LP solution.
	// 0 disables the cap.
	MaxViolatedConstraints int `yaml:"maxViolatedConstraints"`

	// ReevalAge is the number of LP solves a stored branching result stays
	// valid for at an unchanged node before it is recomputed.
	ReevalAge int64 `yaml:"reevalAge"`

	// ForceBranching evaluates a single remaining candidate instead of
	// returning it unscored.
	ForceBranching bool `yaml:"forceBranching"`

	// ReuseBasis warm-starts the full evaluation of a candidate with the LP
	// state saved by the scoring pass, when saved at the same probing depth.
	ReuseBasis bool `yaml:"reuseBasis"`

	// UpFirst probes the up branch before the down branch.
	UpFirst bool `yaml:"upFirst"`

	// Scoring picks the gain combination rule.
	Scoring ScoringRule `yaml:"scoring"`

	// MinWeight and MaxWeight are the weights of the smaller and larger gain
	// under ScoreWeighted.
	MinWeight float64 `yaml:"minWeight"`
	MaxWeight float64 `yaml:"maxWeight"`

	// Epsilon is the feasibility tolerance used for all fractionality and
	// bound comparisons.
	Epsilon float64 `yaml:"epsilon"`

	// Driver limits. Zero means unlimited.
	NodeLimit int64         `yaml:"nodeLimit"`
	LPLimit   int64         `yaml:"lpLimit"`
	TimeLimit time.Duration `yaml:"timeLimit"`
}

// DefaultConfig returns the parameter set used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		RecursionDepth:       2,
		Abbreviated:          true,
		MaxCandidates:        4,
		UseDomainReduction:   true,
		UseBinaryConstraints: true,
		ReevalAge:            10,
		ReuseBasis:           true,
		Scoring:              ScoreProduct,
		MinWeight:            0.8,
		MaxWeight:            1.3,
		Epsilon:              1e-9,
	}
}

// Validate reports the first configuration error found.
func (c Config) Validate() error {
	if c.RecursionDepth < 1 {
		return errors.Errorf("recursionDepth must be at least 1, got %d", c.RecursionDepth)
	}
	if c.Abbreviated && c.MaxCandidates < 1 {
		return errors.Errorf("maxCandidates must be positive in abbreviated mode, got %d", c.MaxCandidates)
	}
	if c.ReevalAge < 0 {
		return errors.Errorf("reevalAge must not be negative, got %d", c.ReevalAge)
	}
	if c.Epsilon <= 0 {
		return errors.Errorf("epsilon must be positive, got %g", c.Epsilon)
	}
	switch c.Scoring {
	case ScoreProduct, ScoreMin:
	case ScoreWeighted:
		if c.MinWeight < 0 || c.MaxWeight < 0 {
			return errors.New("weighted scoring requires nonnegative weights")
		}
	default:
		return errors.Errorf("unknown scoring rule %q", c.Scoring)
	}
	if c.MaxViolatedDomainReductions < 0 || c.MaxViolatedConstraints < 0 {
		return errors.New("violation caps must not be negative")
	}
	return nil
}
