package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"preddesk/internal/models"
)

// Repository is the persistence surface for the scan pipeline, the
// resolution service and the audit API.
type Repository interface {
	// Markets
	UpsertMarkets(ctx context.Context, items []models.Market) error
	GetMarketByID(ctx context.Context, id string) (*models.Market, error)
	ListMarkets(ctx context.Context, params ListMarketsParams) ([]models.Market, error)
	CountMarkets(ctx context.Context, params ListMarketsParams) (int64, error)
	UpdateMarketPrices(ctx context.Context, id string, yes, no, spread float64, seenAt time.Time) error
	MarkMarketScanned(ctx context.Context, id string, at time.Time) error
	MarkMarketResolved(ctx context.Context, id string, outcome bool, at time.Time) error
	ListMarketsWithOpenPositions(ctx context.Context) ([]models.Market, error)

	// Price ticks
	InsertPriceTick(ctx context.Context, item *models.PriceTick) error
	ListRecentPriceTicks(ctx context.Context, marketID string, limit int) ([]models.PriceTick, error)

	// Scan cycles
	InsertScanCycle(ctx context.Context, item *models.ScanCycle) error
	FinishScanCycle(ctx context.Context, id string, status string, seen, selected, tradeable int, finishedAt time.Time) error
	ListScanCycles(ctx context.Context, limit int) ([]models.ScanCycle, error)

	// Estimates
	InsertEstimates(ctx context.Context, items []models.Estimate) error
	ListEstimates(ctx context.Context, params ListEstimatesParams) ([]models.Estimate, error)

	// Negotiations
	InsertNegotiationRecord(ctx context.Context, item *models.NegotiationRecord) error
	GetNegotiationByID(ctx context.Context, id uint64) (*models.NegotiationRecord, error)
	ListNegotiations(ctx context.Context, params ListNegotiationsParams) ([]models.NegotiationRecord, error)
	CountNegotiations(ctx context.Context, params ListNegotiationsParams) (int64, error)

	// Consensus
	InsertConsensusResult(ctx context.Context, item *models.ConsensusResult) error
	GetLatestConsensusForMarket(ctx context.Context, marketID string) (*models.ConsensusResult, error)

	// Edge decisions
	InsertEdgeDecision(ctx context.Context, item *models.EdgeDecision) error
	GetEdgeDecisionByID(ctx context.Context, id uint64) (*models.EdgeDecision, error)
	ListEdgeDecisions(ctx context.Context, params ListDecisionsParams) ([]models.EdgeDecision, error)
	CountEdgeDecisions(ctx context.Context, params ListDecisionsParams) (int64, error)

	// Positions
	InsertPosition(ctx context.Context, item *models.Position) error
	UpdatePositionStatus(ctx context.Context, id uint64, status string) error
	ListPositions(ctx context.Context, params ListPositionsParams) ([]models.Position, error)
	ListOpenPositionsByMarket(ctx context.Context, marketID string) ([]models.Position, error)
	CountOpenPositions(ctx context.Context) (int64, error)
	ClosePosition(ctx context.Context, id uint64, status string, pnl decimal.Decimal, closedAt time.Time) error

	// Settlement history (base-rate input)
	UpsertSettlementRecord(ctx context.Context, item *models.SettlementRecord) error
	CategoryBaseRates(ctx context.Context) ([]CategoryBaseRate, error)

	// Calibration
	InsertCalibrationRecord(ctx context.Context, item *models.CalibrationRecord) error
	ListCalibrationRecords(ctx context.Context, params ListCalibrationParams) ([]models.CalibrationRecord, error)
	CalibrationOverview(ctx context.Context) (CalibrationOverview, error)
}

type ListMarketsParams struct {
	Limit    int
	Offset   int
	Status   *string
	Category *string
	OrderBy  string
	Asc      *bool
}

type ListEstimatesParams struct {
	Limit       int
	Offset      int
	MarketID    *string
	ScanCycleID *string
	Desk        *string
	Phase       *string
}

type ListNegotiationsParams struct {
	Limit             int
	Offset            int
	MarketID          *string
	TerminationReason *string
	OrderBy           string
	Asc               *bool
}

type ListDecisionsParams struct {
	Limit       int
	Offset      int
	MarketID    *string
	ScanCycleID *string
	Tradeable   *bool
	OrderBy     string
	Asc         *bool
}

type ListPositionsParams struct {
	Limit    int
	Offset   int
	Status   *string
	MarketID *string
	OrderBy  string
	Asc      *bool
}

type ListCalibrationParams struct {
	Limit  int
	Offset int
	Since  *time.Time
}

type CategoryBaseRate struct {
	Category string
	Total    int64
	YesCount int64
	YesRate  float64
}

type CalibrationOverview struct {
	Count     int64
	MeanBrier float64
}
