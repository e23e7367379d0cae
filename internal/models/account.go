package models

import "time"

// Account is a member's sign-in identity. Its ID is the member primary key.
type Account struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID issued at sign-up.

	Email    string `gorm:"type:varchar(255);not null;uniqueIndex"` // Lower-cased login email.
	Password string `gorm:"type:text;not null"`                     // Hashed password.

	Disabled bool `gorm:"not null;default:false"` // Blocks sign-in when true.

	LastSignInAt *time.Time // Last successful sign-in.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
