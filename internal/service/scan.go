package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"preddesk/internal/config"
	"preddesk/internal/db"
	"preddesk/internal/marketdata"
	"preddesk/internal/models"
	"preddesk/internal/pipeline"
	"preddesk/internal/repository"
)

// ScanService drives one scan cycle: pull the venue's open markets, screen
// them for quality, persist the catalog, then run the decision pipeline over
// the survivors.
type ScanService struct {
	repo     repository.Repository
	provider marketdata.Provider
	filter   *marketdata.Filter
	pipeline *pipeline.Pipeline
	cfg      config.ScannerConfig
	logger   *zap.Logger
}

func NewScanService(
	repo repository.Repository,
	provider marketdata.Provider,
	filter *marketdata.Filter,
	pipe *pipeline.Pipeline,
	cfg config.ScannerConfig,
	logger *zap.Logger,
) *ScanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanService{
		repo:     repo,
		provider: provider,
		filter:   filter,
		pipeline: pipe,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *ScanService) RunCycle(ctx context.Context) error {
	cycleID := uuid.NewString()
	startedAt := db.NowUTC()
	if err := s.repo.InsertScanCycle(ctx, &models.ScanCycle{
		ID:        cycleID,
		Status:    models.ScanCycleStatusRunning,
		StartedAt: startedAt,
	}); err != nil {
		return fmt.Errorf("open scan cycle: %w", err)
	}

	quotes, err := s.provider.ListMarkets(ctx)
	if err != nil {
		s.finish(ctx, cycleID, models.ScanCycleStatusFailed, 0, 0, 0)
		return fmt.Errorf("list markets: %w", err)
	}

	seen := len(quotes)
	var selected []models.Market
	var catalog []models.Market
	for _, quote := range quotes {
		market := quoteToMarket(quote, startedAt)
		catalog = append(catalog, market)

		ok, reason := s.filter.Accept(quote)
		if !ok {
			s.logger.Debug("market filtered out",
				zap.String("market_id", quote.ID), zap.String("reason", reason))
			continue
		}
		if len(selected) < s.cfg.MaxMarketsPerScan {
			selected = append(selected, market)
		}
	}

	if err := s.repo.UpsertMarkets(ctx, catalog); err != nil {
		s.finish(ctx, cycleID, models.ScanCycleStatusFailed, seen, len(selected), 0)
		return fmt.Errorf("upsert markets: %w", err)
	}
	for _, market := range selected {
		if err := s.repo.InsertPriceTick(ctx, &models.PriceTick{
			MarketID:   market.ID,
			YesPrice:   market.YesPrice,
			Source:     "scan",
			ObservedAt: startedAt,
		}); err != nil {
			s.logger.Warn("scan tick insert failed",
				zap.String("market_id", market.ID), zap.Error(err))
		}
	}

	processed, tradeable := s.pipeline.RunAll(ctx, selected, cycleID, s.cfg.MaxConcurrent)

	s.finish(ctx, cycleID, models.ScanCycleStatusFinished, seen, len(selected), tradeable)
	s.logger.Info("scan cycle finished",
		zap.String("cycle_id", cycleID),
		zap.Int("seen", seen),
		zap.Int("selected", len(selected)),
		zap.Int("processed", processed),
		zap.Int("tradeable", tradeable))
	return nil
}

func (s *ScanService) finish(ctx context.Context, cycleID, status string, seen, selected, tradeable int) {
	if err := s.repo.FinishScanCycle(ctx, cycleID, status, seen, selected, tradeable, db.NowUTC()); err != nil {
		s.logger.Warn("failed to finish scan cycle",
			zap.String("cycle_id", cycleID), zap.Error(err))
	}
}

func quoteToMarket(quote marketdata.Quote, seenAt time.Time) models.Market {
	market := models.Market{
		ID:         quote.ID,
		Question:   quote.Question,
		Category:   quote.Category,
		YesPrice:   quote.YesPrice,
		NoPrice:    quote.NoPrice,
		Spread:     quote.Spread,
		Status:     models.MarketStatusActive,
		EndDate:    quote.EndDate,
		LastSeenAt: seenAt,
		RawJSON:    datatypes.JSON(quote.Raw),
	}
	if quote.Slug != "" {
		slug := quote.Slug
		market.Slug = &slug
	}
	volume := decimal.NewFromFloat(quote.Volume24h)
	market.Volume24h = &volume
	liquidity := decimal.NewFromFloat(quote.Liquidity)
	market.Liquidity = &liquidity
	return market
}
