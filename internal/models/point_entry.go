package models

import "time"

// Point entry reasons.
const (
	PointReasonPurchase   = "purchase"
	PointReasonRedemption = "redemption"
)

// PointEntry journals every balance change applied by the ledger.
type PointEntry struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	MemberID     string  `gorm:"type:varchar(36);not null;index"` // Affected member.
	Delta        int64   `gorm:"not null"`                        // Signed change.
	BalanceAfter int64   `gorm:"not null"`                        // Balance after the change.
	Reason       string  `gorm:"type:varchar(32);not null"`       // purchase or redemption.
	ReferenceID  string  `gorm:"type:varchar(36)"`                // Redemption ID, when any.
	RecordedBy   *uint64                                          // Admin who recorded it.

	CreatedAt time.Time `gorm:"not null;index"` // Server time of the change.
}
