package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem is a stocked ingredient or supply.
type InventoryItem struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name  string          `gorm:"type:text;not null;index"`              // Item name.
	Stock decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"` // Quantity on hand.
	Unit  string          `gorm:"type:varchar(16);not null"`             // kg, pcs, blok...

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// InventoryUsage logs stock taken out of an item.
type InventoryUsage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ItemID   uint64          `gorm:"not null;index"`              // Source item.
	ItemName string          `gorm:"type:text;not null"`          // Name at usage time.
	Quantity decimal.Decimal `gorm:"type:decimal(20,6);not null"` // Quantity used.
	Unit     string          `gorm:"type:varchar(16);not null"`   // Unit at usage time.

	UsedAt time.Time `gorm:"not null;index"` // Server time of the usage.
}
