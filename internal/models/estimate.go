package models

import (
	"time"
)

const (
	EstimatePhaseInitial = "initial"
	EstimatePhaseFinal   = "final"
)

// Estimate is a single desk's probability for a market within one scan
// cycle. Initial-phase rows are the pre-negotiation estimates; final-phase
// rows are written only when a negotiation ran.
type Estimate struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	MarketID    string `gorm:"type:text;not null;index"`
	ScanCycleID string `gorm:"type:varchar(40);not null;index"`
	Desk        string `gorm:"type:varchar(50);not null;index"`
	Phase       string `gorm:"type:varchar(10);not null;default:'initial'"`

	Probability float64 `gorm:"not null"`
	Confidence  float64 `gorm:"not null"`
	Rationale   string  `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Estimate) TableName() string {
	return "estimates"
}
