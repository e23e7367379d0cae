package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/auth"
	"gorm.io/gorm"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	db       *gorm.DB
	sessions *auth.Tracker
}

// NewHealthHandler constructs a HealthHandler. sessions may be nil.
func NewHealthHandler(db *gorm.DB, sessions *auth.Tracker) *HealthHandler {
	return &HealthHandler{db: db, sessions: sessions}
}

// Healthz checks database connectivity and returns status.
func (h *HealthHandler) Healthz(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}
	if errPing := sqlDB.PingContext(c.Request.Context()); errPing != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}
	body := gin.H{"ok": true}
	if h.sessions != nil {
		body["active_members"] = h.sessions.Active(auth.RoleMember)
	}
	c.JSON(http.StatusOK, body)
}
