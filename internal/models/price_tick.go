package models

import (
	"time"
)

type PriceTick struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	MarketID string `gorm:"type:text;not null;index:idx_price_ticks_market_time"`

	YesPrice float64 `gorm:"not null"`
	Source   string  `gorm:"type:varchar(20);not null"`

	ObservedAt time.Time `gorm:"type:timestamptz;not null;index:idx_price_ticks_market_time"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (PriceTick) TableName() string {
	return "price_ticks"
}
