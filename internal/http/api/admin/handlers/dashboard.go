package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/dashboard"
	"github.com/martabak-juara/loyalty-club/internal/inventory"
)

// DashboardHandler serves the admin dashboard rollups.
type DashboardHandler struct {
	stats     *dashboard.Aggregator
	inventory *inventory.Service
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(stats *dashboard.Aggregator, inventorySvc *inventory.Service) *DashboardHandler {
	return &DashboardHandler{stats: stats, inventory: inventorySvc}
}

// Stats returns freshly computed totals plus the latest inventory usage.
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, errStats := h.stats.Stats(c.Request.Context())
	if errStats != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	recent, errRecent := h.inventory.RecentUsage(c.Request.Context(), inventory.DefaultRecentUsage)
	if errRecent != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	usage := make([]gin.H, 0, len(recent))
	for i := range recent {
		usage = append(usage, usageJSON(&recent[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":               stats,
		"recent_usage":        usage,
		"low_stock_threshold": dashboard.LowStockThreshold,
	})
}
