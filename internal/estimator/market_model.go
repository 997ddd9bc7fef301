package estimator

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"preddesk/internal/models"
)

// TickSource is the slice of the repository the statistical desk reads.
type TickSource interface {
	ListRecentPriceTicks(ctx context.Context, marketID string, limit int) ([]models.PriceTick, error)
}

const DeskMarketModel = "market-model"

const marketModelTickWindow = 50

// MarketModelDesk estimates from the market's own price history: the current
// price blended with the recent mean, with confidence discounted by observed
// volatility. Its negotiation behavior is deterministic.
type MarketModelDesk struct {
	ticks  TickSource
	logger *zap.Logger
}

func NewMarketModelDesk(ticks TickSource, logger *zap.Logger) *MarketModelDesk {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketModelDesk{ticks: ticks, logger: logger}
}

func (d *MarketModelDesk) Name() string {
	return DeskMarketModel
}

func (d *MarketModelDesk) Estimate(ctx context.Context, market MarketDescriptor) (Estimate, error) {
	ticks, err := d.ticks.ListRecentPriceTicks(ctx, market.ID, marketModelTickWindow)
	if err != nil {
		return Estimate{}, fmt.Errorf("load price ticks: %w", err)
	}

	if len(ticks) < 3 {
		return Estimate{
			Desk:        d.Name(),
			Probability: clampProbability(market.YesPrice),
			Confidence:  0.4,
			Rationale:   fmt.Sprintf("thin tick history (%d ticks), tracking current price", len(ticks)),
		}, nil
	}

	var sum float64
	for _, t := range ticks {
		sum += t.YesPrice
	}
	mean := sum / float64(len(ticks))

	var variance float64
	for _, t := range ticks {
		diff := t.YesPrice - mean
		variance += diff * diff
	}
	vol := math.Sqrt(variance / float64(len(ticks)))

	probability := clampProbability(0.7*market.YesPrice + 0.3*mean)

	confidence := 0.8 - 2*vol
	if confidence < 0.1 {
		confidence = 0.1
	}

	return Estimate{
		Desk:        d.Name(),
		Probability: probability,
		Confidence:  confidence,
		Rationale: fmt.Sprintf("current %.3f, %d-tick mean %.3f, vol %.4f",
			market.YesPrice, len(ticks), mean, vol),
	}, nil
}

func (d *MarketModelDesk) Critique(_ context.Context, prompt Prompt) (Reply, error) {
	return deterministicReply(prompt), nil
}

func (d *MarketModelDesk) Debate(_ context.Context, prompt Prompt) (Reply, error) {
	return deterministicReply(prompt), nil
}
