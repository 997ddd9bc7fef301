package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PositionStatusPending    = "pending"
	PositionStatusOpen       = "open"
	PositionStatusClosedWin  = "closed_win"
	PositionStatusClosedLoss = "closed_loss"
	PositionStatusCancelled  = "cancelled"
)

type Position struct {
	ID         uint64  `gorm:"primaryKey;autoIncrement"`
	MarketID   string  `gorm:"type:text;not null;index"`
	DecisionID *uint64 `gorm:"index"`

	Side       string          `gorm:"type:varchar(5);not null"`
	Contracts  int             `gorm:"not null"`
	EntryPrice float64         `gorm:"not null"`
	Cost       decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	Status string          `gorm:"type:varchar(20);not null;default:'pending';index"`
	PnL    decimal.Decimal `gorm:"column:pnl;type:numeric(30,10);not null;default:0"`

	OpenedAt time.Time  `gorm:"type:timestamptz;not null"`
	ClosedAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Position) TableName() string {
	return "positions"
}
