package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	MarketStatusActive   = "active"
	MarketStatusClosed   = "closed"
	MarketStatusResolved = "resolved"
)

type Market struct {
	ID       string  `gorm:"primaryKey;type:text"`
	Slug     *string `gorm:"type:text;uniqueIndex"`
	Question string  `gorm:"type:text;not null"`
	Category string  `gorm:"type:varchar(50);index"`

	// Prices are probabilities in [0,1]; yes+no may not sum to 1 when the
	// book carries a spread.
	YesPrice float64 `gorm:"not null"`
	NoPrice  float64 `gorm:"not null"`
	Spread   float64 `gorm:"not null;default:0"`

	Volume24h *decimal.Decimal `gorm:"type:numeric(30,10)"`
	Liquidity *decimal.Decimal `gorm:"type:numeric(30,10)"`

	Status          string     `gorm:"type:varchar(20);not null;default:'active';index"`
	EndDate         *time.Time `gorm:"type:timestamptz;index"`
	ResolvedOutcome *bool      `gorm:"default:null"`
	ResolvedAt      *time.Time `gorm:"type:timestamptz"`

	LastScannedAt *time.Time     `gorm:"type:timestamptz;index"`
	LastSeenAt    time.Time      `gorm:"type:timestamptz;not null"`
	RawJSON       datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Market) TableName() string {
	return "markets"
}
