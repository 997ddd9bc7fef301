package calibration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"preddesk/internal/models"
	"preddesk/internal/repository"
)

// Store is the slice of the repository the accumulator needs.
type Store interface {
	InsertCalibrationRecord(ctx context.Context, item *models.CalibrationRecord) error
	ListCalibrationRecords(ctx context.Context, params repository.ListCalibrationParams) ([]models.CalibrationRecord, error)
}

// BrierScore is the squared error of a probability against the realized
// outcome. 0 is perfect, 0.25 is coin-flip territory.
func BrierScore(p float64, outcome bool) float64 {
	o := 0.0
	if outcome {
		o = 1.0
	}
	return (p - o) * (p - o)
}

type Accumulator struct {
	store  Store
	logger *zap.Logger
}

func NewAccumulator(store Store, logger *zap.Logger) *Accumulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accumulator{store: store, logger: logger}
}

// Score persists the calibration record for one resolved market: the
// consensus Brier plus each desk's pre-negotiation estimate so desk accuracy
// can be compared later.
func (a *Accumulator) Score(ctx context.Context, marketID string, consensusProb float64, deskEstimates map[string]float64, outcome bool, resolvedAt time.Time) (*models.CalibrationRecord, error) {
	desksJSON, err := json.Marshal(deskEstimates)
	if err != nil {
		return nil, fmt.Errorf("encode desk estimates: %w", err)
	}

	record := &models.CalibrationRecord{
		MarketID:      marketID,
		ConsensusProb: consensusProb,
		Outcome:       outcome,
		BrierScore:    BrierScore(consensusProb, outcome),
		DeskEstimates: desksJSON,
		ResolvedAt:    resolvedAt,
	}
	if err := a.store.InsertCalibrationRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("persist calibration record: %w", err)
	}

	a.logger.Info("calibration recorded",
		zap.String("market_id", marketID),
		zap.Float64("consensus", consensusProb),
		zap.Bool("outcome", outcome),
		zap.Float64("brier", record.BrierScore))
	return record, nil
}

type DeskStats struct {
	Count     int     `json:"count"`
	MeanBrier float64 `json:"mean_brier"`
}

// DeskSummary aggregates mean Brier per desk across stored records. Records
// without a desk's estimate simply don't count toward that desk.
func (a *Accumulator) DeskSummary(ctx context.Context, limit int) (map[string]DeskStats, error) {
	records, err := a.store.ListCalibrationRecords(ctx, repository.ListCalibrationParams{Limit: limit})
	if err != nil {
		return nil, err
	}

	sums := map[string]float64{}
	counts := map[string]int{}
	for _, rec := range records {
		var desks map[string]float64
		if len(rec.DeskEstimates) == 0 {
			continue
		}
		if err := json.Unmarshal(rec.DeskEstimates, &desks); err != nil {
			a.logger.Warn("bad desk estimates payload",
				zap.String("market_id", rec.MarketID), zap.Error(err))
			continue
		}
		for desk, p := range desks {
			sums[desk] += BrierScore(p, rec.Outcome)
			counts[desk]++
		}
	}

	out := make(map[string]DeskStats, len(counts))
	for desk, n := range counts {
		out[desk] = DeskStats{Count: n, MeanBrier: sums[desk] / float64(n)}
	}
	return out, nil
}
