package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TerminationConverged          = "converged"
	TerminationMaxRoundsModerator = "max-rounds-moderator"
	TerminationSingleEstimator    = "single-estimator-fallback"
)

// NegotiationRecord is the full transcript of one negotiation: the
// per-round messages and revisions, the final per-desk estimates, and how
// the session closed.
type NegotiationRecord struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	MarketID    string `gorm:"type:text;not null;index"`
	ScanCycleID string `gorm:"type:varchar(40);not null;index"`

	Rounds         datatypes.JSON `gorm:"type:jsonb;not null"`
	FinalEstimates datatypes.JSON `gorm:"type:jsonb;not null"`

	RoundCount        int     `gorm:"not null"`
	Converged         bool    `gorm:"not null;default:false"`
	TerminationReason string  `gorm:"type:varchar(40);not null;index"`
	ClosingValue      float64 `gorm:"not null"`
	ModeratorPolicy   *string `gorm:"type:varchar(30)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (NegotiationRecord) TableName() string {
	return "negotiation_records"
}
