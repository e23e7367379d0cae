package db

import (
	"fmt"

	"github.com/martabak-juara/loyalty-club/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every table owned by the service.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: migrate: nil connection")
	}
	if errMigrate := conn.AutoMigrate(
		&models.Account{},
		&models.Member{},
		&models.Redemption{},
		&models.PointEntry{},
		&models.InventoryItem{},
		&models.InventoryUsage{},
		&models.Admin{},
		&models.Setting{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	if errIndex := ensureRedemptionIndexes(conn); errIndex != nil {
		return errIndex
	}
	return nil
}

// ensureRedemptionIndexes adds the composite index used by the admin queue listing.
func ensureRedemptionIndexes(conn *gorm.DB) error {
	const name = "idx_redemptions_status_requested_at"
	if conn.Migrator().HasIndex(&models.Redemption{}, name) {
		return nil
	}
	if errExec := conn.Exec(
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON redemptions (status, requested_at)", name),
	).Error; errExec != nil {
		return fmt.Errorf("db: migrate redemption index: %w", errExec)
	}
	return nil
}
