package models

import (
	"time"

	"gorm.io/datatypes"
)

// CalibrationRecord scores one resolved market: the consensus probability
// against the realized outcome, plus each desk's pre-negotiation estimate
// for per-desk attribution.
type CalibrationRecord struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	MarketID string `gorm:"type:text;not null;uniqueIndex"`

	ConsensusProb float64 `gorm:"not null"`
	Outcome       bool    `gorm:"not null"`
	BrierScore    float64 `gorm:"not null"`

	DeskEstimates datatypes.JSON `gorm:"type:jsonb"`

	ResolvedAt time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (CalibrationRecord) TableName() string {
	return "calibration_records"
}
