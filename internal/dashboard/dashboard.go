// Package dashboard computes admin rollups straight from the store on every call.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/martabak-juara/loyalty-club/internal/inventory"
	"github.com/martabak-juara/loyalty-club/internal/models"
	"gorm.io/gorm"
)

// LowStockThreshold is the stock level at or below which an item counts as low.
const LowStockThreshold = inventory.LowStockThreshold

// Stats is the admin dashboard summary.
type Stats struct {
	TotalMembers       int64 `json:"total_members"`       // Registered members.
	TotalPoints        int64 `json:"total_points"`        // Sum of all balances.
	PendingRedemptions int64 `json:"pending_redemptions"` // Requests awaiting approval.
	LowStockItems      int64 `json:"low_stock_items"`     // Items at or below LowStockThreshold.
	PointsAwardedToday int64 `json:"points_awarded_today"`
	ApprovedToday      int64 `json:"approved_today"`
}

// Aggregator reads the rollups.
type Aggregator struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAggregator constructs an Aggregator.
func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db, now: time.Now}
}

// Stats recomputes the dashboard from committed state.
func (a *Aggregator) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	conn := a.db.WithContext(ctx)

	var memberAgg struct {
		Total  int64
		Points int64
	}
	if errScan := conn.Model(&models.Member{}).
		Select("COUNT(*) AS total, COALESCE(SUM(points), 0) AS points").
		Scan(&memberAgg).Error; errScan != nil {
		return Stats{}, fmt.Errorf("dashboard: members: %w", errScan)
	}
	out.TotalMembers = memberAgg.Total
	out.TotalPoints = memberAgg.Points

	if errCount := conn.Model(&models.Redemption{}).
		Where("status = ?", models.RedemptionPending).
		Count(&out.PendingRedemptions).Error; errCount != nil {
		return Stats{}, fmt.Errorf("dashboard: pending: %w", errCount)
	}

	if errCount := conn.Model(&models.InventoryItem{}).
		Where("stock <= ?", LowStockThreshold).
		Count(&out.LowStockItems).Error; errCount != nil {
		return Stats{}, fmt.Errorf("dashboard: low stock: %w", errCount)
	}

	now := a.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if errScan := conn.Model(&models.PointEntry{}).
		Where("reason = ? AND created_at >= ?", models.PointReasonPurchase, today).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&out.PointsAwardedToday).Error; errScan != nil {
		return Stats{}, fmt.Errorf("dashboard: awarded today: %w", errScan)
	}
	if errCount := conn.Model(&models.Redemption{}).
		Where("status = ? AND processed_at >= ?", models.RedemptionApproved, today).
		Count(&out.ApprovedToday).Error; errCount != nil {
		return Stats{}, fmt.Errorf("dashboard: approved today: %w", errCount)
	}
	return out, nil
}
