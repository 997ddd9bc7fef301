package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"preddesk/internal/models"
	"preddesk/internal/risk"
)

// PaperExecutor places simulated maker-only limit orders: fills are assumed
// at the quoted price, nothing is transmitted to the venue. The ledger
// reservation still runs with real-money discipline so paper results carry
// over.
type PaperExecutor struct {
	store  PositionStore
	ledger *risk.Ledger
	logger *zap.Logger
}

func NewPaperExecutor(store PositionStore, ledger *risk.Ledger, logger *zap.Logger) *PaperExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaperExecutor{store: store, ledger: ledger, logger: logger}
}

func (e *PaperExecutor) Execute(ctx context.Context, decision *models.EdgeDecision, entryPrice float64) (*models.Position, error) {
	if decision == nil || !decision.Tradeable {
		return nil, fmt.Errorf("decision is not tradeable")
	}
	if decision.Side == nil {
		return nil, fmt.Errorf("tradeable decision missing side")
	}

	cost := decimal.NewFromFloat(entryPrice).Mul(decimal.NewFromInt(int64(decision.NumContracts)))
	position := &models.Position{
		MarketID:   decision.MarketID,
		DecisionID: &decision.ID,
		Side:       *decision.Side,
		Contracts:  decision.NumContracts,
		EntryPrice: entryPrice,
		Cost:       cost,
		Status:     models.PositionStatusPending,
		OpenedAt:   time.Now().UTC(),
	}
	if err := e.store.InsertPosition(ctx, position); err != nil {
		return nil, fmt.Errorf("persist position: %w", err)
	}

	// Paper placement always confirms at the quoted price. The reservation
	// comes after, mirroring the live flow where an unfilled order must not
	// tie up bankroll.
	if err := e.ledger.Reserve(cost); err != nil {
		e.logger.Warn("ledger refused reservation after placement, cancelling",
			zap.String("market_id", decision.MarketID),
			zap.Uint64("position_id", position.ID),
			zap.Error(err))
		if updateErr := e.store.UpdatePositionStatus(ctx, position.ID, models.PositionStatusCancelled); updateErr != nil {
			e.logger.Error("failed to cancel unreserved position",
				zap.Uint64("position_id", position.ID), zap.Error(updateErr))
		}
		return nil, fmt.Errorf("reserve exposure: %w", err)
	}

	if err := e.store.UpdatePositionStatus(ctx, position.ID, models.PositionStatusOpen); err != nil {
		return nil, fmt.Errorf("open position: %w", err)
	}
	position.Status = models.PositionStatusOpen

	e.logger.Info("paper position opened",
		zap.String("market_id", decision.MarketID),
		zap.String("side", position.Side),
		zap.Int("contracts", position.Contracts),
		zap.Float64("entry_price", entryPrice),
		zap.String("cost", cost.StringFixed(2)))
	return position, nil
}
