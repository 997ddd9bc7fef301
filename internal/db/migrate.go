package db

import (
	"preddesk/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Market{},
		&models.PriceTick{},
		&models.ScanCycle{},
		&models.Estimate{},
		&models.NegotiationRecord{},
		&models.ConsensusResult{},
		&models.EdgeDecision{},
		&models.Position{},
		&models.SettlementRecord{},
		&models.CalibrationRecord{},
	)
}
