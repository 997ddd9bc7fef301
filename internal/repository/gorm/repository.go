package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"preddesk/internal/models"
	"preddesk/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Markets ----------------------------------------------------------------

func (s *Store) UpsertMarkets(ctx context.Context, items []models.Market) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"question",
			"category",
			"yes_price",
			"no_price",
			"spread",
			"volume_24h",
			"liquidity",
			"status",
			"end_date",
			"last_seen_at",
			"raw_json",
			"updated_at",
		}),
	}).CreateInBatches(items, 200).Error
}

func (s *Store) GetMarketByID(ctx context.Context, id string) (*models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Market
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.marketsQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "last_seen_at")
	var items []models.Market
	if err := query.
		Limit(normalizeLimit(params.Limit, 100)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountMarkets(ctx context.Context, params repository.ListMarketsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.marketsQuery(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) marketsQuery(ctx context.Context, params repository.ListMarketsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Market{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Category != nil && strings.TrimSpace(*params.Category) != "" {
		query = query.Where("category = ?", strings.TrimSpace(*params.Category))
	}
	return query
}

func (s *Store) UpdateMarketPrices(ctx context.Context, id string, yes, no, spread float64, seenAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"yes_price":    yes,
			"no_price":     no,
			"spread":       spread,
			"last_seen_at": seenAt,
		}).Error
}

func (s *Store) MarkMarketScanned(ctx context.Context, id string, at time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ?", id).
		Update("last_scanned_at", at).Error
}

func (s *Store) MarkMarketResolved(ctx context.Context, id string, outcome bool, at time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           models.MarketStatusResolved,
			"resolved_outcome": outcome,
			"resolved_at":      at,
		}).Error
}

func (s *Store) ListMarketsWithOpenPositions(ctx context.Context) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Market
	err := s.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("id IN (?)", s.db.Model(&models.Position{}).
			Select("market_id").
			Where("status = ?", models.PositionStatusOpen)).
		Where("status <> ?", models.MarketStatusResolved).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Price ticks ------------------------------------------------------------

func (s *Store) InsertPriceTick(ctx context.Context, item *models.PriceTick) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListRecentPriceTicks(ctx context.Context, marketID string, limit int) ([]models.PriceTick, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PriceTick
	err := s.db.WithContext(ctx).
		Model(&models.PriceTick{}).
		Where("market_id = ?", marketID).
		Order("observed_at desc").
		Limit(normalizeLimit(limit, 100)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Scan cycles ------------------------------------------------------------

func (s *Store) InsertScanCycle(ctx context.Context, item *models.ScanCycle) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) FinishScanCycle(ctx context.Context, id string, status string, seen, selected, tradeable int, finishedAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.ScanCycle{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":              status,
			"markets_seen":        seen,
			"markets_selected":    selected,
			"decisions_tradeable": tradeable,
			"finished_at":         finishedAt,
		}).Error
}

func (s *Store) ListScanCycles(ctx context.Context, limit int) ([]models.ScanCycle, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ScanCycle
	err := s.db.WithContext(ctx).
		Model(&models.ScanCycle{}).
		Order("started_at desc").
		Limit(normalizeLimit(limit, 50)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Estimates --------------------------------------------------------------

func (s *Store) InsertEstimates(ctx context.Context, items []models.Estimate) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(items, 200).Error
}

func (s *Store) ListEstimates(ctx context.Context, params repository.ListEstimatesParams) ([]models.Estimate, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Estimate{})
	if params.MarketID != nil && *params.MarketID != "" {
		query = query.Where("market_id = ?", *params.MarketID)
	}
	if params.ScanCycleID != nil && *params.ScanCycleID != "" {
		query = query.Where("scan_cycle_id = ?", *params.ScanCycleID)
	}
	if params.Desk != nil && *params.Desk != "" {
		query = query.Where("desk = ?", *params.Desk)
	}
	if params.Phase != nil && *params.Phase != "" {
		query = query.Where("phase = ?", *params.Phase)
	}
	var items []models.Estimate
	err := query.
		Order("created_at desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Negotiations -----------------------------------------------------------

func (s *Store) InsertNegotiationRecord(ctx context.Context, item *models.NegotiationRecord) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetNegotiationByID(ctx context.Context, id uint64) (*models.NegotiationRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.NegotiationRecord
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListNegotiations(ctx context.Context, params repository.ListNegotiationsParams) ([]models.NegotiationRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.negotiationsQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.NegotiationRecord
	if err := query.
		Limit(normalizeLimit(params.Limit, 100)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountNegotiations(ctx context.Context, params repository.ListNegotiationsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.negotiationsQuery(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) negotiationsQuery(ctx context.Context, params repository.ListNegotiationsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.NegotiationRecord{})
	if params.MarketID != nil && *params.MarketID != "" {
		query = query.Where("market_id = ?", *params.MarketID)
	}
	if params.TerminationReason != nil && *params.TerminationReason != "" {
		query = query.Where("termination_reason = ?", *params.TerminationReason)
	}
	return query
}

// --- Consensus --------------------------------------------------------------

func (s *Store) InsertConsensusResult(ctx context.Context, item *models.ConsensusResult) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetLatestConsensusForMarket(ctx context.Context, marketID string) (*models.ConsensusResult, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ConsensusResult
	err := s.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("created_at desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- Edge decisions ---------------------------------------------------------

func (s *Store) InsertEdgeDecision(ctx context.Context, item *models.EdgeDecision) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetEdgeDecisionByID(ctx context.Context, id uint64) (*models.EdgeDecision, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.EdgeDecision
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListEdgeDecisions(ctx context.Context, params repository.ListDecisionsParams) ([]models.EdgeDecision, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.decisionsQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.EdgeDecision
	if err := query.
		Limit(normalizeLimit(params.Limit, 100)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountEdgeDecisions(ctx context.Context, params repository.ListDecisionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.decisionsQuery(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) decisionsQuery(ctx context.Context, params repository.ListDecisionsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.EdgeDecision{})
	if params.MarketID != nil && *params.MarketID != "" {
		query = query.Where("market_id = ?", *params.MarketID)
	}
	if params.ScanCycleID != nil && *params.ScanCycleID != "" {
		query = query.Where("scan_cycle_id = ?", *params.ScanCycleID)
	}
	if params.Tradeable != nil {
		query = query.Where("tradeable = ?", *params.Tradeable)
	}
	return query
}

// --- Positions --------------------------------------------------------------

func (s *Store) InsertPosition(ctx context.Context, item *models.Position) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdatePositionStatus(ctx context.Context, id uint64, status string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Position{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (s *Store) ListPositions(ctx context.Context, params repository.ListPositionsParams) ([]models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Position{})
	if params.Status != nil && *params.Status != "" {
		query = query.Where("status = ?", *params.Status)
	}
	if params.MarketID != nil && *params.MarketID != "" {
		query = query.Where("market_id = ?", *params.MarketID)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "opened_at")
	var items []models.Position
	if err := query.
		Limit(normalizeLimit(params.Limit, 100)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListOpenPositionsByMarket(ctx context.Context, marketID string) ([]models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Position
	err := s.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Where("status = ?", models.PositionStatusOpen).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountOpenPositions(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Position{}).
		Where("status = ?", models.PositionStatusOpen).
		Count(&count).Error
	return count, err
}

func (s *Store) ClosePosition(ctx context.Context, id uint64, status string, pnl decimal.Decimal, closedAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Position{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":    status,
			"pnl":       pnl,
			"closed_at": closedAt,
		}).Error
}

// --- Settlement history -----------------------------------------------------

func (s *Store) UpsertSettlementRecord(ctx context.Context, item *models.SettlementRecord) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "market_id"}},
		DoNothing: true,
	}).Create(item).Error
}

func (s *Store) CategoryBaseRates(ctx context.Context) ([]repository.CategoryBaseRate, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.CategoryBaseRate
	err := s.db.WithContext(ctx).
		Model(&models.SettlementRecord{}).
		Select("category, count(*) as total, count(*) filter (where outcome) as yes_count").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Total > 0 {
			rows[i].YesRate = float64(rows[i].YesCount) / float64(rows[i].Total)
		}
	}
	return rows, nil
}

// --- Calibration ------------------------------------------------------------

func (s *Store) InsertCalibrationRecord(ctx context.Context, item *models.CalibrationRecord) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "market_id"}},
		DoNothing: true,
	}).Create(item).Error
}

func (s *Store) ListCalibrationRecords(ctx context.Context, params repository.ListCalibrationParams) ([]models.CalibrationRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.CalibrationRecord{})
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("resolved_at >= ?", *params.Since)
	}
	var items []models.CalibrationRecord
	err := query.
		Order("resolved_at desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CalibrationOverview(ctx context.Context) (repository.CalibrationOverview, error) {
	if s == nil || s.db == nil {
		return repository.CalibrationOverview{}, nil
	}
	var row repository.CalibrationOverview
	err := s.db.WithContext(ctx).
		Model(&models.CalibrationRecord{}).
		Select("count(*) as count, coalesce(avg(brier_score), 0) as mean_brier").
		Scan(&row).Error
	if err != nil {
		return repository.CalibrationOverview{}, err
	}
	return row, nil
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
