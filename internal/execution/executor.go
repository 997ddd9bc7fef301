package execution

import (
	"context"

	"preddesk/internal/models"
)

// Executor turns a tradeable decision into a position. Implementations must
// reserve ledger exposure only after placement confirms: a failed placement
// must leave the ledger untouched.
type Executor interface {
	Execute(ctx context.Context, decision *models.EdgeDecision, entryPrice float64) (*models.Position, error)
}

// PositionStore is the slice of the repository executors write through.
type PositionStore interface {
	InsertPosition(ctx context.Context, item *models.Position) error
	UpdatePositionStatus(ctx context.Context, id uint64, status string) error
}
