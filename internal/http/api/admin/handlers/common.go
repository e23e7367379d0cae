package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/dashboard"
	"github.com/martabak-juara/loyalty-club/internal/inventory"
	"github.com/martabak-juara/loyalty-club/internal/ledger"
	"github.com/martabak-juara/loyalty-club/internal/members"
	log "github.com/sirupsen/logrus"
)

// readAdminIDFromContext returns the admin ID from request context.
func readAdminIDFromContext(c *gin.Context) (uint64, bool) {
	value, ok := c.Get("adminID")
	if !ok {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok
}

// actorContext tags the request context with the acting admin for the ledger journal.
func actorContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if adminID, ok := readAdminIDFromContext(c); ok {
		ctx = ledger.WithActor(ctx, adminID)
	}
	return ctx
}

// parseUintParam reads a numeric path parameter.
func parseUintParam(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// respondWithStats writes body with freshly computed dashboard stats under "stats".
// A failed recompute is logged and leaves stats null; the mutation has already committed.
func respondWithStats(c *gin.Context, agg *dashboard.Aggregator, status int, body gin.H) {
	if agg != nil {
		stats, errStats := agg.Stats(c.Request.Context())
		if errStats != nil {
			log.WithError(errStats).Warn("admin: recompute dashboard stats failed")
			body["stats"] = nil
		} else {
			body["stats"] = stats
		}
	}
	c.JSON(status, body)
}

// writeDomainError maps ledger, member and inventory errors to a JSON error response.
func writeDomainError(c *gin.Context, err error, fallback string) {
	var short *inventory.InsufficientStockError
	switch {
	case errors.Is(err, members.ErrMemberNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
	case errors.Is(err, ledger.ErrRedemptionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "redemption not found"})
	case errors.Is(err, inventory.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
	case errors.Is(err, ledger.ErrAlreadyProcessed):
		c.JSON(http.StatusConflict, gin.H{"error": "redemption already processed"})
	case errors.Is(err, ledger.ErrInsufficientPoints):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient points"})
	case errors.As(err, &short):
		c.JSON(http.StatusConflict, gin.H{"error": short.Error(), "available": short.Available.String(), "unit": short.Unit})
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, inventory.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, inventory.ErrInvalidItem):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item"})
	case errors.Is(err, members.ErrInvalidAddress), errors.Is(err, members.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.WithError(err).Error("admin: " + fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
