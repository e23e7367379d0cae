package models

import "time"

// Address source kinds.
const (
	AddressManual = "manual"
	AddressGPS    = "gps"
	AddressSearch = "search"
)

// Address is a delivery address captured manually, from GPS, or from a place search.
type Address struct {
	Type      string   `gorm:"type:varchar(16)" json:"type"`       // manual, gps or search.
	Display   string   `gorm:"type:text" json:"display_address"`   // Human readable address.
	Latitude  *float64 `json:"latitude,omitempty"`                 // GPS latitude.
	Longitude *float64 `json:"longitude,omitempty"`                // GPS longitude.
	MapURL    string   `gorm:"type:text" json:"map_url,omitempty"` // Link to a map pin.
}

// IsZero reports whether no address was captured.
func (a Address) IsZero() bool {
	return a.Display == "" && a.Latitude == nil && a.Longitude == nil
}

// Member is a loyalty member profile and points balance.
type Member struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // Same as Account.ID.

	Name      string `gorm:"type:text;not null"`                    // Display name.
	Email     string `gorm:"type:varchar(255);not null;index"`      // Contact email.
	Phone     string `gorm:"type:varchar(32)"`                      // Contact phone.
	BirthDate string `gorm:"type:varchar(10)"`                      // YYYY-MM-DD.
	Code      string `gorm:"type:varchar(16);not null;uniqueIndex"` // Shareable member code, e.g. MJ-3F2A9C.

	Points int64 `gorm:"not null;default:0;check:points >= 0"` // Points balance.

	Address Address `gorm:"embedded;embeddedPrefix:address_"` // Optional delivery address.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Registration timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
