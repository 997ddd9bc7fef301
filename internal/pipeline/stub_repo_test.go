package pipeline

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"preddesk/internal/models"
	"preddesk/internal/repository"
)

// stubRepo is an in-memory Repository for pipeline tests. Only the writes
// the pipeline performs are captured; reads return empty sets.
type stubRepo struct {
	estimates    []models.Estimate
	negotiations []*models.NegotiationRecord
	consensus    []*models.ConsensusResult
	decisions    []*models.EdgeDecision
	positions    []*models.Position
	statuses     map[uint64]string
	scannedIDs   []string
	nextID       uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{statuses: map[uint64]string{}}
}

func (s *stubRepo) UpsertMarkets(ctx context.Context, items []models.Market) error { return nil }
func (s *stubRepo) GetMarketByID(ctx context.Context, id string) (*models.Market, error) {
	return nil, nil
}
func (s *stubRepo) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	return nil, nil
}
func (s *stubRepo) CountMarkets(ctx context.Context, params repository.ListMarketsParams) (int64, error) {
	return 0, nil
}
func (s *stubRepo) UpdateMarketPrices(ctx context.Context, id string, yes, no, spread float64, seenAt time.Time) error {
	return nil
}
func (s *stubRepo) MarkMarketScanned(ctx context.Context, id string, at time.Time) error {
	s.scannedIDs = append(s.scannedIDs, id)
	return nil
}
func (s *stubRepo) MarkMarketResolved(ctx context.Context, id string, outcome bool, at time.Time) error {
	return nil
}
func (s *stubRepo) ListMarketsWithOpenPositions(ctx context.Context) ([]models.Market, error) {
	return nil, nil
}

func (s *stubRepo) InsertPriceTick(ctx context.Context, item *models.PriceTick) error { return nil }
func (s *stubRepo) ListRecentPriceTicks(ctx context.Context, marketID string, limit int) ([]models.PriceTick, error) {
	return nil, nil
}

func (s *stubRepo) InsertScanCycle(ctx context.Context, item *models.ScanCycle) error { return nil }
func (s *stubRepo) FinishScanCycle(ctx context.Context, id string, status string, seen, selected, tradeable int, finishedAt time.Time) error {
	return nil
}
func (s *stubRepo) ListScanCycles(ctx context.Context, limit int) ([]models.ScanCycle, error) {
	return nil, nil
}

func (s *stubRepo) InsertEstimates(ctx context.Context, items []models.Estimate) error {
	s.estimates = append(s.estimates, items...)
	return nil
}
func (s *stubRepo) ListEstimates(ctx context.Context, params repository.ListEstimatesParams) ([]models.Estimate, error) {
	return nil, nil
}

func (s *stubRepo) InsertNegotiationRecord(ctx context.Context, item *models.NegotiationRecord) error {
	s.nextID++
	item.ID = s.nextID
	s.negotiations = append(s.negotiations, item)
	return nil
}
func (s *stubRepo) GetNegotiationByID(ctx context.Context, id uint64) (*models.NegotiationRecord, error) {
	return nil, nil
}
func (s *stubRepo) ListNegotiations(ctx context.Context, params repository.ListNegotiationsParams) ([]models.NegotiationRecord, error) {
	return nil, nil
}
func (s *stubRepo) CountNegotiations(ctx context.Context, params repository.ListNegotiationsParams) (int64, error) {
	return 0, nil
}

func (s *stubRepo) InsertConsensusResult(ctx context.Context, item *models.ConsensusResult) error {
	s.nextID++
	item.ID = s.nextID
	s.consensus = append(s.consensus, item)
	return nil
}
func (s *stubRepo) GetLatestConsensusForMarket(ctx context.Context, marketID string) (*models.ConsensusResult, error) {
	return nil, nil
}

func (s *stubRepo) InsertEdgeDecision(ctx context.Context, item *models.EdgeDecision) error {
	s.nextID++
	item.ID = s.nextID
	s.decisions = append(s.decisions, item)
	return nil
}
func (s *stubRepo) GetEdgeDecisionByID(ctx context.Context, id uint64) (*models.EdgeDecision, error) {
	return nil, nil
}
func (s *stubRepo) ListEdgeDecisions(ctx context.Context, params repository.ListDecisionsParams) ([]models.EdgeDecision, error) {
	return nil, nil
}
func (s *stubRepo) CountEdgeDecisions(ctx context.Context, params repository.ListDecisionsParams) (int64, error) {
	return 0, nil
}

func (s *stubRepo) InsertPosition(ctx context.Context, item *models.Position) error {
	s.nextID++
	item.ID = s.nextID
	s.positions = append(s.positions, item)
	s.statuses[item.ID] = item.Status
	return nil
}
func (s *stubRepo) UpdatePositionStatus(ctx context.Context, id uint64, status string) error {
	s.statuses[id] = status
	return nil
}
func (s *stubRepo) ListPositions(ctx context.Context, params repository.ListPositionsParams) ([]models.Position, error) {
	return nil, nil
}
func (s *stubRepo) ListOpenPositionsByMarket(ctx context.Context, marketID string) ([]models.Position, error) {
	return nil, nil
}
func (s *stubRepo) CountOpenPositions(ctx context.Context) (int64, error) { return 0, nil }
func (s *stubRepo) ClosePosition(ctx context.Context, id uint64, status string, pnl decimal.Decimal, closedAt time.Time) error {
	return nil
}

func (s *stubRepo) UpsertSettlementRecord(ctx context.Context, item *models.SettlementRecord) error {
	return nil
}
func (s *stubRepo) CategoryBaseRates(ctx context.Context) ([]repository.CategoryBaseRate, error) {
	return nil, nil
}

func (s *stubRepo) InsertCalibrationRecord(ctx context.Context, item *models.CalibrationRecord) error {
	return nil
}
func (s *stubRepo) ListCalibrationRecords(ctx context.Context, params repository.ListCalibrationParams) ([]models.CalibrationRecord, error) {
	return nil, nil
}
func (s *stubRepo) CalibrationOverview(ctx context.Context) (repository.CalibrationOverview, error) {
	return repository.CalibrationOverview{}, nil
}
