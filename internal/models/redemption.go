package models

import "time"

// Redemption statuses. pending is the only non-terminal state.
const (
	RedemptionPending  = "pending"
	RedemptionApproved = "approved"
	RedemptionRejected = "rejected"
)

// Redemption is a member's request to exchange points, processed once by an admin.
type Redemption struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID.

	MemberID   string `gorm:"type:varchar(36);not null;index"` // Requesting member.
	MemberCode string `gorm:"type:varchar(16);not null"`       // Code at request time.
	MemberName string `gorm:"type:text;not null"`              // Name at request time.

	Points int64  `gorm:"not null"`                                          // Points requested.
	Status string `gorm:"type:varchar(16);not null;index;default:'pending'"` // pending, approved or rejected.

	ProcessedBy *uint64 // Admin who approved or rejected.

	RequestedAt time.Time  `gorm:"not null;index"` // Server time of the request.
	ProcessedAt *time.Time                         // Server time of approval or rejection.
}

// IsTerminal reports whether the redemption has already been processed.
func (r *Redemption) IsTerminal() bool {
	return r.Status != RedemptionPending
}
