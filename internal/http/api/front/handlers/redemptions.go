package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/ledger"
	"github.com/martabak-juara/loyalty-club/internal/models"
	internalsettings "github.com/martabak-juara/loyalty-club/internal/settings"
)

// RedemptionHandler lets members request and follow redemptions.
type RedemptionHandler struct {
	ledger *ledger.Service
}

// NewRedemptionHandler constructs a RedemptionHandler.
func NewRedemptionHandler(ledgerSvc *ledger.Service) *RedemptionHandler {
	return &RedemptionHandler{ledger: ledgerSvc}
}

// List returns the member's redemption history, newest first.
func (h *RedemptionHandler) List(c *gin.Context) {
	accountID := getAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	rows, errList := h.ledger.ListForMember(c.Request.Context(), accountID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, redemptionJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"redemptions": out})
}

// Request files a redemption for the configured number of points.
func (h *RedemptionHandler) Request(c *gin.Context) {
	accountID := getAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	redemption, errRequest := h.ledger.RequestRedemption(c.Request.Context(), accountID, internalsettings.RedemptionPoints())
	if errRequest != nil {
		if errors.Is(errRequest, ledger.ErrNotEligible) {
			c.JSON(http.StatusConflict, gin.H{"error": errRequest.Error()})
			return
		}
		writeDomainError(c, errRequest, "create redemption failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"redemption": redemptionJSON(redemption)})
}

// redemptionJSON renders a redemption for the front API.
func redemptionJSON(r *models.Redemption) gin.H {
	return gin.H{
		"id":           r.ID,
		"points":       r.Points,
		"status":       r.Status,
		"requested_at": r.RequestedAt,
		"processed_at": r.ProcessedAt,
	}
}
