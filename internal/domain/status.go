package domain

import "strings"

// RunRateMethod names the configured daily run-rate estimator.
type RunRateMethod string

const (
	RunRateSimpleAvg    RunRateMethod = "simple_avg"
	RunRateWeightedAvg  RunRateMethod = "weighted_avg"
	RunRateExpSmoothing RunRateMethod = "exp_smoothing"
)

// RoundingStrategy names how the net gap becomes an order quantity.
type RoundingStrategy string

const (
	RoundToMultiple        RoundingStrategy = "to_multiple"
	RoundToMinThenMultiple RoundingStrategy = "to_min_then_multiple"
)

// ProposalState is the lifecycle state of a draft proposal.
type ProposalState string

const (
	ProposalEmpty ProposalState = "empty"
	ProposalDraft ProposalState = "draft"
)

var runRateMethods = map[string]RunRateMethod{
	"simple_avg":    RunRateSimpleAvg,
	"weighted_avg":  RunRateWeightedAvg,
	"exp_smoothing": RunRateExpSmoothing,
}

var roundingStrategies = map[string]RoundingStrategy{
	"to_multiple":          RoundToMultiple,
	"to_min_then_multiple": RoundToMinThenMultiple,
}

// ParseRunRateMethod accepts the method name in any case, with '-' or '_'.
func ParseRunRateMethod(s string) (RunRateMethod, bool) {
	m, ok := runRateMethods[normalizeEnum(s)]

	return m, ok
}

// ParseRoundingStrategy accepts the strategy name in any case, with '-' or '_'.
func ParseRoundingStrategy(s string) (RoundingStrategy, bool) {
	r, ok := roundingStrategies[normalizeEnum(s)]

	return r, ok
}

// Valid reports whether m is a known method.
func (m RunRateMethod) Valid() bool {
	_, ok := runRateMethods[string(m)]
	return ok
}

// Valid reports whether r is a known strategy.
func (r RoundingStrategy) Valid() bool {
	_, ok := roundingStrategies[string(r)]
	return ok
}

func normalizeEnum(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}
