package estimator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNoEstimates is returned when every desk failed or timed out; the
// pipeline aborts the market in that case.
var ErrNoEstimates = errors.New("no estimates produced")

// Fanout queries every desk concurrently with a per-desk timeout. Failed or
// timed-out desks are dropped and logged, never retried within a cycle.
type Fanout struct {
	estimators []Estimator
	timeout    time.Duration
	logger     *zap.Logger
}

func NewFanout(estimators []Estimator, timeout time.Duration, logger *zap.Logger) *Fanout {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{estimators: estimators, timeout: timeout, logger: logger}
}

func (f *Fanout) Estimators() []Estimator {
	return f.estimators
}

func (f *Fanout) Run(ctx context.Context, market MarketDescriptor) ([]Estimate, error) {
	if len(f.estimators) == 0 {
		return nil, ErrNoEstimates
	}

	type result struct {
		estimate Estimate
		err      error
		desk     string
	}

	results := make(chan result, len(f.estimators))
	var wg sync.WaitGroup
	for _, est := range f.estimators {
		wg.Add(1)
		go func(est Estimator) {
			defer wg.Done()
			deskCtx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()
			e, err := est.Estimate(deskCtx, market)
			results <- result{estimate: e, err: err, desk: est.Name()}
		}(est)
	}
	wg.Wait()
	close(results)

	var estimates []Estimate
	for res := range results {
		if res.err != nil {
			f.logger.Warn("desk estimate failed",
				zap.String("desk", res.desk),
				zap.String("market_id", market.ID),
				zap.Error(res.err))
			continue
		}
		if res.estimate.Probability < 0 || res.estimate.Probability > 1 {
			f.logger.Warn("desk estimate out of range",
				zap.String("desk", res.desk),
				zap.String("market_id", market.ID),
				zap.Float64("probability", res.estimate.Probability))
			continue
		}
		estimates = append(estimates, res.estimate)
	}

	if len(estimates) == 0 {
		return nil, ErrNoEstimates
	}

	// Stable order so downstream artifacts are reproducible.
	sort.Slice(estimates, func(i, j int) bool {
		return estimates[i].Desk < estimates[j].Desk
	})
	return estimates, nil
}
