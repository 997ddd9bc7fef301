package models

import (
	"time"
)

// SettlementRecord is one resolved market outcome kept as base-rate input
// for the historical desk.
type SettlementRecord struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	MarketID string `gorm:"type:text;not null;uniqueIndex"`
	Category string `gorm:"type:varchar(50);not null;index"`

	Outcome   bool      `gorm:"not null"`
	SettledAt time.Time `gorm:"type:timestamptz;not null;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (SettlementRecord) TableName() string {
	return "settlement_records"
}
