package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/martabak-juara/loyalty-club/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Reload reads every settings row and publishes them as the current view.
// The getters return defaults until the first Reload.
func Reload(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("settings: nil db")
	}
	var rows []models.Setting
	if errFind := db.WithContext(ctx).Select("key", "value", "updated_at").Find(&rows).Error; errFind != nil {
		return fmt.Errorf("settings: reload: %w", errFind)
	}

	values := make(map[string]json.RawMessage, len(rows))
	var newest time.Time
	for _, row := range rows {
		values[row.Key] = row.Value
		if row.UpdatedAt.After(newest) {
			newest = row.UpdatedAt
		}
	}
	Publish(newest, values)
	return nil
}

// Save upserts validated values and refreshes the snapshot.
func Save(ctx context.Context, db *gorm.DB, values map[string]json.RawMessage) error {
	if db == nil {
		return errors.New("settings: nil db")
	}
	for key, raw := range values {
		if errValidate := ValidateValue(key, raw); errValidate != nil {
			return fmt.Errorf("settings: %w", errValidate)
		}
	}
	now := time.Now().UTC()
	errTx := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, raw := range values {
			row := models.Setting{Key: key, Value: raw, UpdatedAt: now}
			if errUpsert := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error; errUpsert != nil {
				return errUpsert
			}
		}
		return nil
	})
	if errTx != nil {
		return fmt.Errorf("settings: save: %w", errTx)
	}
	return Reload(ctx, db)
}

// Snapshot returns the effective value of every known setting.
func Snapshot() map[string]any {
	return map[string]any{
		SiteNameKey:             SiteName(),
		RedemptionPointsKey:     RedemptionPoints(),
		PointsPerTransactionKey: PointsPerTransaction(),
		StoreAddressKey:         StoreAddress(),
	}
}
