package models

import (
	"encoding/json"
	"time"
)

// Setting stores a store-wide key/value entry such as the redemption threshold.
type Setting struct {
	Key       string          `gorm:"type:varchar(128);primaryKey"`                      // Setting key.
	Value     json.RawMessage `gorm:"type:json"`                                         // JSON-encoded value.
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime;default:CURRENT_TIMESTAMP"` // Last update timestamp.
}
