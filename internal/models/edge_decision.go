package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EdgeDecision struct {
	ID          uint64  `gorm:"primaryKey;autoIncrement"`
	MarketID    string  `gorm:"type:text;not null;index"`
	ScanCycleID string  `gorm:"type:varchar(40);not null;index"`
	ConsensusID *uint64 `gorm:"index"`

	ConsensusProb float64 `gorm:"not null"`
	MarketPrice   float64 `gorm:"not null"`

	Side              *string         `gorm:"type:varchar(5)"`
	Edge              float64         `gorm:"not null"`
	KellyFraction     float64         `gorm:"not null"`
	HalfKellyFraction float64         `gorm:"not null;default:0"`
	ExpectedValue     float64         `gorm:"not null"`
	PositionSize      decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	NumContracts      int             `gorm:"not null;default:0"`

	Tradeable       bool    `gorm:"not null;default:false;index"`
	RejectionReason *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (EdgeDecision) TableName() string {
	return "edge_decisions"
}
