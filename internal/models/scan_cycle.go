package models

import (
	"time"
)

const (
	ScanCycleStatusRunning  = "running"
	ScanCycleStatusFinished = "finished"
	ScanCycleStatusFailed   = "failed"
)

type ScanCycle struct {
	ID string `gorm:"primaryKey;type:varchar(40)"`

	Status             string `gorm:"type:varchar(20);not null;default:'running'"`
	MarketsSeen        int    `gorm:"not null;default:0"`
	MarketsSelected    int    `gorm:"not null;default:0"`
	DecisionsTradeable int    `gorm:"not null;default:0"`

	StartedAt  time.Time  `gorm:"type:timestamptz;not null;index"`
	FinishedAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (ScanCycle) TableName() string {
	return "scan_cycles"
}
