package consensus

import (
	"sort"

	"preddesk/internal/debate"
	"preddesk/internal/estimator"
	"preddesk/internal/models"
)

// Result is the single probability the desk acts on, with enough context to
// audit how it was reached.
type Result struct {
	Probability  float64
	Method       string
	Divergence   float64
	SingleSource bool
}

// Divergence is the spread between the most extreme estimates.
func Divergence(estimates []estimator.Estimate) float64 {
	if len(estimates) < 2 {
		return 0
	}
	min, max := estimates[0].Probability, estimates[0].Probability
	for _, est := range estimates[1:] {
		if est.Probability < min {
			min = est.Probability
		}
		if est.Probability > max {
			max = est.Probability
		}
	}
	return max - min
}

// NeedsNegotiation is strict: divergence exactly at the threshold does not
// trigger a negotiation.
func NeedsNegotiation(divergence, threshold float64) bool {
	return divergence > threshold
}

// FromEstimates resolves agreeing estimates to their median. A single
// surviving estimate is used as-is and flagged.
func FromEstimates(estimates []estimator.Estimate, divergence float64) Result {
	return Result{
		Probability:  median(estimates),
		Method:       models.ConsensusMethodMedian,
		Divergence:   divergence,
		SingleSource: len(estimates) == 1,
	}
}

// FromNegotiation resolves a finished negotiation to its closing value.
func FromNegotiation(outcome debate.Outcome, divergence float64) Result {
	return Result{
		Probability:  outcome.ClosingValue,
		Method:       models.ConsensusMethodNegotiated,
		Divergence:   divergence,
		SingleSource: outcome.TerminationReason == models.TerminationSingleEstimator,
	}
}

func median(estimates []estimator.Estimate) float64 {
	if len(estimates) == 0 {
		return 0
	}
	probs := make([]float64, len(estimates))
	for i, est := range estimates {
		probs[i] = est.Probability
	}
	sort.Float64s(probs)
	mid := len(probs) / 2
	if len(probs)%2 == 1 {
		return probs[mid]
	}
	return (probs[mid-1] + probs[mid]) / 2
}
