package estimator

import (
	"context"
	"time"
)

// MarketDescriptor is the slice of market state the desks estimate from.
type MarketDescriptor struct {
	ID       string
	Question string
	Category string
	YesPrice float64
	Spread   float64
	EndDate  *time.Time
}

// Estimate is one desk's independent probability that the market resolves yes.
type Estimate struct {
	Desk        string
	Probability float64
	Confidence  float64
	Rationale   string
}

type Estimator interface {
	Name() string
	Estimate(ctx context.Context, market MarketDescriptor) (Estimate, error)
}

// Prompt carries the shared negotiation state handed to a desk for one round.
// Target is set only during the critique round: the peer whose estimate sits
// farthest from the desk's own.
type Prompt struct {
	Market MarketDescriptor
	Round  int
	Own    Estimate
	Peers  []Estimate
	Target *Estimate
}

// Reply is a desk's response within a negotiation round. Revised is nil when
// the desk holds its position.
type Reply struct {
	Message    string
	Revised    *float64
	Confidence *float64
}

// Negotiator is the optional capability of desks that participate in
// negotiation rounds. Desks without it hold their estimate throughout.
type Negotiator interface {
	Estimator
	Critique(ctx context.Context, prompt Prompt) (Reply, error)
	Debate(ctx context.Context, prompt Prompt) (Reply, error)
}

func clampProbability(p float64) float64 {
	if p < 0.01 {
		return 0.01
	}
	if p > 0.99 {
		return 0.99
	}
	return p
}

// reviseToward moves a desk's probability partway toward the
// confidence-weighted mean of its peers. A confident desk moves little, an
// unsure one moves most of the way. Used by the deterministic desks so their
// negotiation behavior is reproducible.
func reviseToward(own Estimate, peers []Estimate) float64 {
	if len(peers) == 0 {
		return own.Probability
	}
	var sum, weight float64
	for _, peer := range peers {
		conf := peer.Confidence
		if conf <= 0 {
			conf = 0.01
		}
		sum += peer.Probability * conf
		weight += conf
	}
	mean := sum / weight
	revised := own.Probability + (mean-own.Probability)*(1-own.Confidence)
	return clampProbability(revised)
}
