package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	internalsettings "github.com/martabak-juara/loyalty-club/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettingsHandler reads and writes the store settings.
type SettingsHandler struct {
	db *gorm.DB
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

// Get returns the effective value of every setting.
func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"settings":   internalsettings.Snapshot(),
		"updated_at": internalsettings.LastRefreshed(),
	})
}

// Update stores the given keys and refreshes the in-memory snapshot.
func (h *SettingsHandler) Update(c *gin.Context) {
	var body map[string]json.RawMessage
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no settings given"})
		return
	}
	for key, raw := range body {
		if !internalsettings.IsKnownKey(key) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown setting " + key})
			return
		}
		if errValidate := internalsettings.ValidateValue(key, raw); errValidate != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errValidate.Error()})
			return
		}
	}
	if errSave := internalsettings.Save(c.Request.Context(), h.db, body); errSave != nil {
		log.WithError(errSave).Error("admin: save settings failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save settings failed"})
		return
	}
	h.Get(c)
}
