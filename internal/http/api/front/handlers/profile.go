package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/auth"
	"github.com/martabak-juara/loyalty-club/internal/ledger"
	"github.com/martabak-juara/loyalty-club/internal/members"
	"github.com/martabak-juara/loyalty-club/internal/models"
	"github.com/martabak-juara/loyalty-club/internal/qrcode"
	internalsettings "github.com/martabak-juara/loyalty-club/internal/settings"
	log "github.com/sirupsen/logrus"
)

// ProfileHandler handles member profile endpoints.
type ProfileHandler struct {
	members *members.Store
	ledger  *ledger.Service
	auth    *auth.Provider
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(store *members.Store, ledgerSvc *ledger.Service, provider *auth.Provider) *ProfileHandler {
	return &ProfileHandler{members: store, ledger: ledgerSvc, auth: provider}
}

// Get returns the current member's profile and redemption eligibility.
func (h *ProfileHandler) Get(c *gin.Context) {
	accountID := getAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	member, errGet := h.members.Get(c.Request.Context(), accountID)
	if errGet != nil {
		writeDomainError(c, errGet, "query failed")
		return
	}
	pending, errPending := h.ledger.HasPending(c.Request.Context(), accountID)
	if errPending != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	threshold := internalsettings.RedemptionPoints()
	c.JSON(http.StatusOK, gin.H{
		"member": memberJSON(member),
		"redemption": gin.H{
			"points":      threshold,
			"has_pending": pending,
			"eligible":    member.Points >= threshold && !pending,
		},
	})
}

// updateProfileRequest defines the editable contact fields.
type updateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Update changes the member's name and phone.
func (h *ProfileHandler) Update(c *gin.Context) {
	accountID := getAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body updateProfileRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	member, errUpdate := h.members.UpdateProfile(c.Request.Context(), accountID, body.Name, body.Phone)
	if errUpdate != nil {
		writeDomainError(c, errUpdate, "update profile failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": memberJSON(member)})
}

// UpdateAddress replaces the member's delivery address.
func (h *ProfileHandler) UpdateAddress(c *gin.Context) {
	accountID := getAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body models.Address
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	member, errUpdate := h.members.UpdateAddress(c.Request.Context(), accountID, body)
	if errUpdate != nil {
		writeDomainError(c, errUpdate, "update address failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": memberJSON(member)})
}

// changePasswordRequest defines the request body for password changes.
type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword verifies and updates the member's password.
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	accountID := getAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body changePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.OldPassword == "" || body.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing password"})
		return
	}

	if errChange := h.auth.ChangePassword(c.Request.Context(), accountID, body.OldPassword, body.NewPassword); errChange != nil {
		switch {
		case errors.Is(errChange, auth.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": errChange.Error()})
		case errors.Is(errChange, auth.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid old password"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update password failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Entries returns the member's latest balance changes.
func (h *ProfileHandler) Entries(c *gin.Context) {
	accountID := getAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	entries, errList := h.ledger.Entries(c.Request.Context(), accountID, limit)
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
			"created_at":    entry.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}

// QRCode renders the member code as a PNG for scanning at the counter.
func (h *ProfileHandler) QRCode(c *gin.Context) {
	accountID := getAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	member, errGet := h.members.Get(c.Request.Context(), accountID)
	if errGet != nil {
		writeDomainError(c, errGet, "query failed")
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(qrcode.DefaultSize)))
	png, errEncode := qrcode.PNG(member.Code, size)
	if errEncode != nil {
		log.WithError(errEncode).WithField("member_code", member.Code).Warn("front: qr encode failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qr unavailable"})
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}
