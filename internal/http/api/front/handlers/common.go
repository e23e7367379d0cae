package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/auth"
	"github.com/martabak-juara/loyalty-club/internal/ledger"
	"github.com/martabak-juara/loyalty-club/internal/members"
)

// getAccountID extracts the member's account id from the gin context.
func getAccountID(c *gin.Context) string {
	session := auth.SessionFrom(c)
	if !session.IsMember() {
		return ""
	}
	return session.Subject
}

// writeDomainError maps member and ledger errors to a JSON error response.
func writeDomainError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, members.ErrMemberNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
	case errors.Is(err, members.ErrInvalidAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
	case errors.Is(err, members.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
	case errors.Is(err, members.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, ledger.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
	case errors.Is(err, ledger.ErrNotEligible):
		c.JSON(http.StatusConflict, gin.H{"error": "not eligible for redemption"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
