package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/dashboard"
	"github.com/martabak-juara/loyalty-club/internal/inventory"
	"github.com/martabak-juara/loyalty-club/internal/models"
	"github.com/shopspring/decimal"
)

// InventoryHandler serves stock management for staff.
type InventoryHandler struct {
	inventory *inventory.Service
	stats     *dashboard.Aggregator
}

// NewInventoryHandler constructs an InventoryHandler.
func NewInventoryHandler(svc *inventory.Service, stats *dashboard.Aggregator) *InventoryHandler {
	return &InventoryHandler{inventory: svc, stats: stats}
}

// itemRequest defines the editable item fields. Quantities accept JSON numbers or strings.
type itemRequest struct {
	Name  string          `json:"name"`
	Stock decimal.Decimal `json:"stock"`
	Unit  string          `json:"unit"`
}

// quantityRequest carries a usage or restock amount.
type quantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

// List returns all items ordered by name.
func (h *InventoryHandler) List(c *gin.Context) {
	rows, errList := h.inventory.List(c.Request.Context())
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list inventory failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, itemJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": out, "low_stock_threshold": inventory.LowStockThreshold})
}

// Create adds an item.
func (h *InventoryHandler) Create(c *gin.Context) {
	var body itemRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	item, errCreate := h.inventory.Create(c.Request.Context(), inventory.ItemInput{Name: body.Name, Stock: body.Stock, Unit: body.Unit})
	if errCreate != nil {
		writeDomainError(c, errCreate, "create item failed")
		return
	}
	respondWithStats(c, h.stats, http.StatusCreated, gin.H{"item": itemJSON(item)})
}

// Update replaces an item's name, stock and unit.
func (h *InventoryHandler) Update(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var body itemRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	item, errUpdate := h.inventory.Update(c.Request.Context(), id, inventory.ItemInput{Name: body.Name, Stock: body.Stock, Unit: body.Unit})
	if errUpdate != nil {
		writeDomainError(c, errUpdate, "update item failed")
		return
	}
	respondWithStats(c, h.stats, http.StatusOK, gin.H{"item": itemJSON(item)})
}

// Delete removes an item. Its usage log is kept.
func (h *InventoryHandler) Delete(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if errDelete := h.inventory.Delete(c.Request.Context(), id); errDelete != nil {
		writeDomainError(c, errDelete, "delete item failed")
		return
	}
	respondWithStats(c, h.stats, http.StatusOK, gin.H{"ok": true})
}

// RecordUsage takes stock out of an item.
func (h *InventoryHandler) RecordUsage(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var body quantityRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	usage, errUsage := h.inventory.RecordUsage(c.Request.Context(), id, body.Quantity)
	if errUsage != nil {
		writeDomainError(c, errUsage, "record usage failed")
		return
	}
	respondWithStats(c, h.stats, http.StatusCreated, gin.H{"usage": usageJSON(usage)})
}

// Restock adds stock to an item.
func (h *InventoryHandler) Restock(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var body quantityRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	item, errRestock := h.inventory.Restock(c.Request.Context(), id, body.Quantity)
	if errRestock != nil {
		writeDomainError(c, errRestock, "restock failed")
		return
	}
	respondWithStats(c, h.stats, http.StatusOK, gin.H{"item": itemJSON(item)})
}

// RecentUsage returns the latest usage rows.
func (h *InventoryHandler) RecentUsage(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(inventory.DefaultRecentUsage)))
	rows, errList := h.inventory.RecentUsage(c.Request.Context(), limit)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list usage failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, usageJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"usage": out})
}

func itemJSON(item *models.InventoryItem) gin.H {
	return gin.H{
		"id":         item.ID,
		"name":       item.Name,
		"stock":      item.Stock.String(),
		"unit":       item.Unit,
		"low_stock":  inventory.LowStock(item.Stock),
		"updated_at": item.UpdatedAt,
	}
}

func usageJSON(usage *models.InventoryUsage) gin.H {
	return gin.H{
		"id":        usage.ID,
		"item_id":   usage.ItemID,
		"item_name": usage.ItemName,
		"quantity":  usage.Quantity.String(),
		"unit":      usage.Unit,
		"used_at":   usage.UsedAt,
	}
}
