package ledger

import (
	"errors"

	"github.com/martabak-juara/loyalty-club/internal/members"
)

var (
	// ErrMemberNotFound is returned when the target member does not exist.
	ErrMemberNotFound = members.ErrMemberNotFound
	// ErrRedemptionNotFound is returned when no redemption has the given id.
	ErrRedemptionNotFound = errors.New("redemption not found")
	// ErrAlreadyProcessed is returned when a redemption has left the pending state.
	ErrAlreadyProcessed = errors.New("redemption already processed")
	// ErrInsufficientPoints is returned when a balance cannot cover an approval.
	ErrInsufficientPoints = errors.New("insufficient points")
	// ErrInvalidAmount is returned for zero or negative point amounts.
	ErrInvalidAmount = errors.New("points must be positive")
	// ErrNotEligible is returned when a member may not request a redemption right now.
	ErrNotEligible = errors.New("not eligible for redemption")
)
