package estimator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"preddesk/internal/repository"
)

// BaseRateSource is the slice of the repository the historical desk reads.
type BaseRateSource interface {
	CategoryBaseRates(ctx context.Context) ([]repository.CategoryBaseRate, error)
}

const DeskBaseRate = "base-rate"

// BaseRateDesk estimates from historical settlement frequencies: how often
// markets in the same category have resolved yes. Confidence grows with
// sample size. Its negotiation behavior is deterministic.
type BaseRateDesk struct {
	source BaseRateSource
	logger *zap.Logger
}

func NewBaseRateDesk(source BaseRateSource, logger *zap.Logger) *BaseRateDesk {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaseRateDesk{source: source, logger: logger}
}

func (d *BaseRateDesk) Name() string {
	return DeskBaseRate
}

func (d *BaseRateDesk) Estimate(ctx context.Context, market MarketDescriptor) (Estimate, error) {
	rates, err := d.source.CategoryBaseRates(ctx)
	if err != nil {
		return Estimate{}, fmt.Errorf("load base rates: %w", err)
	}

	var catTotal, catYes int64
	var allTotal, allYes int64
	for _, row := range rates {
		allTotal += row.Total
		allYes += row.YesCount
		if row.Category == market.Category {
			catTotal = row.Total
			catYes = row.YesCount
		}
	}

	total, yes := catTotal, catYes
	scope := market.Category
	if total == 0 {
		total, yes = allTotal, allYes
		scope = "all categories"
	}
	if total == 0 {
		return Estimate{
			Desk:        d.Name(),
			Probability: 0.5,
			Confidence:  0.1,
			Rationale:   "no settlement history available",
		}, nil
	}

	rate := float64(yes) / float64(total)
	confidence := float64(total) / float64(total+20)
	if confidence > 0.9 {
		confidence = 0.9
	}
	if confidence < 0.1 {
		confidence = 0.1
	}

	return Estimate{
		Desk:        d.Name(),
		Probability: clampProbability(rate),
		Confidence:  confidence,
		Rationale:   fmt.Sprintf("%s resolved yes %d/%d times historically", scope, yes, total),
	}, nil
}

func (d *BaseRateDesk) Critique(_ context.Context, prompt Prompt) (Reply, error) {
	return deterministicReply(prompt), nil
}

func (d *BaseRateDesk) Debate(_ context.Context, prompt Prompt) (Reply, error) {
	return deterministicReply(prompt), nil
}

func deterministicReply(prompt Prompt) Reply {
	revised := reviseToward(prompt.Own, prompt.Peers)
	if revised == prompt.Own.Probability {
		return Reply{Message: "holding position"}
	}
	return Reply{
		Message: fmt.Sprintf("adjusting from %.4f toward peer consensus: %.4f",
			prompt.Own.Probability, revised),
		Revised: &revised,
	}
}
