package models

import (
	"time"
)

const (
	ConsensusMethodMedian     = "median"
	ConsensusMethodNegotiated = "negotiated"
)

type ConsensusResult struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	MarketID    string `gorm:"type:text;not null;index"`
	ScanCycleID string `gorm:"type:varchar(40);not null;index"`

	Probability  float64 `gorm:"not null"`
	Method       string  `gorm:"type:varchar(20);not null"`
	Divergence   float64 `gorm:"not null"`
	SingleSource bool    `gorm:"not null;default:false"`

	NegotiationID *uint64 `gorm:"index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (ConsensusResult) TableName() string {
	return "consensus_results"
}
