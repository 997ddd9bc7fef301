package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"preddesk/internal/calibration"
	"preddesk/internal/db"
	"preddesk/internal/edge"
	"preddesk/internal/marketdata"
	"preddesk/internal/models"
	"preddesk/internal/repository"
	"preddesk/internal/risk"
)

// ResolutionService closes the loop on resolved markets: exact position
// PnL, ledger release and PnL recording, settlement history for the
// base-rate desk, and a calibration record for the consensus.
type ResolutionService struct {
	repo        repository.Repository
	provider    marketdata.Provider
	ledger      *risk.Ledger
	accumulator *calibration.Accumulator
	logger      *zap.Logger
}

func NewResolutionService(
	repo repository.Repository,
	provider marketdata.Provider,
	ledger *risk.Ledger,
	accumulator *calibration.Accumulator,
	logger *zap.Logger,
) *ResolutionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolutionService{
		repo:        repo,
		provider:    provider,
		ledger:      ledger,
		accumulator: accumulator,
		logger:      logger,
	}
}

func (s *ResolutionService) RunCheck(ctx context.Context) error {
	markets, err := s.repo.ListMarketsWithOpenPositions(ctx)
	if err != nil {
		return err
	}
	for _, market := range markets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resolution, err := s.provider.CheckResolution(ctx, market.ID)
		if err != nil {
			s.logger.Warn("resolution check failed",
				zap.String("market_id", market.ID), zap.Error(err))
			continue
		}
		if !resolution.Resolved {
			continue
		}
		s.resolve(ctx, market, resolution.Outcome)
	}
	return nil
}

func (s *ResolutionService) resolve(ctx context.Context, market models.Market, outcome bool) {
	now := db.NowUTC()
	positions, err := s.repo.ListOpenPositionsByMarket(ctx, market.ID)
	if err != nil {
		s.logger.Error("failed to load open positions",
			zap.String("market_id", market.ID), zap.Error(err))
		return
	}

	for _, position := range positions {
		won := (position.Side == edge.SideYes) == outcome
		pnl, status := settlePosition(position, won)

		if err := s.repo.ClosePosition(ctx, position.ID, status, pnl, now); err != nil {
			s.logger.Error("failed to close position",
				zap.Uint64("position_id", position.ID), zap.Error(err))
			continue
		}
		s.ledger.Release(position.Cost)
		s.ledger.RecordPnL(pnl)

		s.logger.Info("position settled",
			zap.String("market_id", market.ID),
			zap.Uint64("position_id", position.ID),
			zap.String("side", position.Side),
			zap.Bool("won", won),
			zap.String("pnl", pnl.StringFixed(2)))
	}

	if err := s.repo.MarkMarketResolved(ctx, market.ID, outcome, now); err != nil {
		s.logger.Error("failed to mark market resolved",
			zap.String("market_id", market.ID), zap.Error(err))
	}
	if err := s.repo.UpsertSettlementRecord(ctx, &models.SettlementRecord{
		MarketID:  market.ID,
		Category:  market.Category,
		Outcome:   outcome,
		SettledAt: now,
	}); err != nil {
		s.logger.Warn("failed to record settlement",
			zap.String("market_id", market.ID), zap.Error(err))
	}

	s.scoreCalibration(ctx, market, outcome)
}

// settlePosition computes the exact realized PnL for a binary contract:
// winners collect 1 per contract minus cost, losers forfeit the full cost.
func settlePosition(position models.Position, won bool) (decimal.Decimal, string) {
	if won {
		payout := decimal.NewFromInt(int64(position.Contracts))
		return payout.Sub(position.Cost), models.PositionStatusClosedWin
	}
	return position.Cost.Neg(), models.PositionStatusClosedLoss
}

func (s *ResolutionService) scoreCalibration(ctx context.Context, market models.Market, outcome bool) {
	consensusRow, err := s.repo.GetLatestConsensusForMarket(ctx, market.ID)
	if err != nil || consensusRow == nil {
		if err != nil {
			s.logger.Warn("failed to load consensus for calibration",
				zap.String("market_id", market.ID), zap.Error(err))
		}
		return
	}

	phase := models.EstimatePhaseInitial
	estimates, err := s.repo.ListEstimates(ctx, repository.ListEstimatesParams{
		MarketID:    &market.ID,
		ScanCycleID: &consensusRow.ScanCycleID,
		Phase:       &phase,
	})
	if err != nil {
		s.logger.Warn("failed to load desk estimates for calibration",
			zap.String("market_id", market.ID), zap.Error(err))
	}
	deskEstimates := make(map[string]float64, len(estimates))
	for _, est := range estimates {
		deskEstimates[est.Desk] = est.Probability
	}

	if _, err := s.accumulator.Score(ctx, market.ID, consensusRow.Probability, deskEstimates, outcome, db.NowUTC()); err != nil {
		s.logger.Warn("failed to record calibration",
			zap.String("market_id", market.ID), zap.Error(err))
	}
}
