package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/dashboard"
	"github.com/martabak-juara/loyalty-club/internal/ledger"
	"github.com/martabak-juara/loyalty-club/internal/models"
	internalsettings "github.com/martabak-juara/loyalty-club/internal/settings"
)

// RedemptionHandler serves the redemption queue and its approval workflow.
type RedemptionHandler struct {
	ledger *ledger.Service
	stats  *dashboard.Aggregator
}

// NewRedemptionHandler constructs a RedemptionHandler.
func NewRedemptionHandler(ledgerSvc *ledger.Service, stats *dashboard.Aggregator) *RedemptionHandler {
	return &RedemptionHandler{ledger: ledgerSvc, stats: stats}
}

// List returns redemptions newest first with an optional status filter.
func (h *RedemptionHandler) List(c *gin.Context) {
	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	switch status {
	case "", models.RedemptionPending, models.RedemptionApproved, models.RedemptionRejected:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	rows, total, errList := h.ledger.List(c.Request.Context(), ledger.ListFilter{Status: status, Limit: limit, Offset: offset})
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list redemptions failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, redemptionJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"redemptions": out, "total": total})
}

// Pending returns the approval queue, oldest first.
func (h *RedemptionHandler) Pending(c *gin.Context) {
	rows, errList := h.ledger.ListPending(c.Request.Context())
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list redemptions failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, redemptionJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"redemptions": out})
}

// Get returns one redemption.
func (h *RedemptionHandler) Get(c *gin.Context) {
	redemption, errGet := h.ledger.Get(c.Request.Context(), c.Param("id"))
	if errGet != nil {
		writeDomainError(c, errGet, "query failed")
		return
	}
	c.JSON(http.StatusOK, redemptionJSON(redemption))
}

// createRedemptionRequest files a request on a member's behalf.
type createRedemptionRequest struct {
	MemberID string `json:"member_id"`
	Points   *int64 `json:"points"`
}

// Create files a pending request for a member. The balance is checked at approval.
func (h *RedemptionHandler) Create(c *gin.Context) {
	var body createRedemptionRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.MemberID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing member_id"})
		return
	}
	points := internalsettings.RedemptionPoints()
	if body.Points != nil {
		points = *body.Points
	}
	redemption, errCreate := h.ledger.CreateRedemption(c.Request.Context(), body.MemberID, points)
	if errCreate != nil {
		writeDomainError(c, errCreate, "create redemption failed")
		return
	}
	respondWithStats(c, h.stats, http.StatusCreated, gin.H{"redemption": redemptionJSON(redemption)})
}

// Approve debits the member and closes the request.
func (h *RedemptionHandler) Approve(c *gin.Context) {
	redemption, errApprove := h.ledger.Approve(actorContext(c), c.Param("id"))
	if errApprove != nil {
		writeDomainError(c, errApprove, "approve redemption failed")
		return
	}
	respondWithStats(c, h.stats, http.StatusOK, gin.H{"redemption": redemptionJSON(redemption)})
}

// Reject closes the request without touching the balance.
func (h *RedemptionHandler) Reject(c *gin.Context) {
	redemption, errReject := h.ledger.Reject(actorContext(c), c.Param("id"))
	if errReject != nil {
		writeDomainError(c, errReject, "reject redemption failed")
		return
	}
	respondWithStats(c, h.stats, http.StatusOK, gin.H{"redemption": redemptionJSON(redemption)})
}

// redemptionJSON renders a redemption for the admin API.
func redemptionJSON(r *models.Redemption) gin.H {
	return gin.H{
		"id":           r.ID,
		"member_id":    r.MemberID,
		"member_code":  r.MemberCode,
		"member_name":  r.MemberName,
		"points":       r.Points,
		"status":       r.Status,
		"processed_by": r.ProcessedBy,
		"requested_at": r.RequestedAt,
		"processed_at": r.ProcessedAt,
	}
}
