package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/dashboard"
	"github.com/martabak-juara/loyalty-club/internal/ledger"
	"github.com/martabak-juara/loyalty-club/internal/members"
	"github.com/martabak-juara/loyalty-club/internal/models"
	internalsettings "github.com/martabak-juara/loyalty-club/internal/settings"
)

// MemberHandler serves member lookup and point crediting for staff.
type MemberHandler struct {
	members *members.Store
	ledger  *ledger.Service
	stats   *dashboard.Aggregator
}

// NewMemberHandler constructs a MemberHandler.
func NewMemberHandler(store *members.Store, ledgerSvc *ledger.Service, stats *dashboard.Aggregator) *MemberHandler {
	return &MemberHandler{members: store, ledger: ledgerSvc, stats: stats}
}

// List returns members with optional search and paging.
func (h *MemberHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	rows, total, errList := h.members.List(c.Request.Context(), members.ListOptions{
		Query:  c.Query("q"),
		Limit:  limit,
		Offset: offset,
	})
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list members failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, memberJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"members": out, "total": total})
}

// Get returns a single member by id.
func (h *MemberHandler) Get(c *gin.Context) {
	member, errGet := h.members.Get(c.Request.Context(), c.Param("id"))
	if errGet != nil {
		writeDomainError(c, errGet, "query failed")
		return
	}
	c.JSON(http.StatusOK, memberJSON(member))
}

// ByCode looks a member up by the code on their card or QR.
func (h *MemberHandler) ByCode(c *gin.Context) {
	member, errFind := h.members.FindByCode(c.Request.Context(), c.Param("code"))
	if errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if member == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
		return
	}
	c.JSON(http.StatusOK, memberJSON(member))
}

// Entries returns the member's balance journal.
func (h *MemberHandler) Entries(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, errList := h.ledger.Entries(c.Request.Context(), c.Param("id"), limit)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	out := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		out = append(out, gin.H{
			"id":            entry.ID,
			"delta":         entry.Delta,
			"balance_after": entry.BalanceAfter,
			"reason":        entry.Reason,
			"reference_id":  entry.ReferenceID,
			"recorded_by":   entry.RecordedBy,
			"created_at":    entry.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}

// Redemptions returns one member's redemption history.
func (h *MemberHandler) Redemptions(c *gin.Context) {
	rows, errList := h.ledger.ListForMember(c.Request.Context(), c.Param("id"))
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

// Route returns a Google Maps directions link from the store to the member.
func (h *MemberHandler) Route(c *gin.Context) {
	member, errGet := h.members.Get(c.Request.Context(), c.Param("id"))
	if errGet != nil {
		writeDomainError(c, errGet, "query failed")
		return
	}
	if member.Address.IsZero() {
		c.JSON(http.StatusConflict, gin.H{"error": "member has no address"})
		return
	}
	store := internalsettings.StoreAddress()
	c.JSON(http.StatusOK, gin.H{
		"origin":      store,
		"destination": member.Address,
		"url":         members.DirectionsURL(store, member.Address),
	})
}

// addPointsRequest carries an optional explicit award.
type addPointsRequest struct {
	Points *int64 `json:"points"`
}

// AddPoints credits a member by id.
func (h *MemberHandler) AddPoints(c *gin.Context) {
	h.addPoints(c, strings.TrimSpace(c.Param("id")))
}

// AddPointsByCode credits the member whose code was scanned.
func (h *MemberHandler) AddPointsByCode(c *gin.Context) {
	member, errFind := h.members.FindByCode(c.Request.Context(), c.Param("code"))
	if errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if member == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
		return
	}
	h.addPoints(c, member.ID)
}

func (h *MemberHandler) addPoints(c *gin.Context, memberID string) {
	var body addPointsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil && !errors.Is(errBind, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	points := internalsettings.PointsPerTransaction()
	if body.Points != nil {
		points = *body.Points
	}

	balance, errAdd := h.ledger.AddPoints(actorContext(c), memberID, points)
	if errAdd != nil {
		writeDomainError(c, errAdd, "add points failed")
		return
	}
	respondWithStats(c, h.stats, http.StatusOK, gin.H{
		"member_id": memberID,
		"added":     points,
		"balance":   balance,
	})
}

// memberJSON renders a member for the admin API.
func memberJSON(member *models.Member) gin.H {
	out := gin.H{
		"id":         member.ID,
		"name":       member.Name,
		"email":      member.Email,
		"phone":      member.Phone,
		"birth_date": member.BirthDate,
		"code":       member.Code,
		"points":     member.Points,
		"created_at": member.CreatedAt,
		"updated_at": member.UpdatedAt,
	}
	if !member.Address.IsZero() {
		address := member.Address
		address.MapURL = members.MapURL(address)
		out["address"] = address
	}
	return out
}
