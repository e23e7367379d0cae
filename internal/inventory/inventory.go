// Package inventory tracks ingredient stock and logs usage against it.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/martabak-juara/loyalty-club/internal/db"
	"github.com/martabak-juara/loyalty-club/internal/events"
	"github.com/martabak-juara/loyalty-club/internal/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LowStockThreshold flags items at or below this quantity for restocking.
const LowStockThreshold = 10

// DefaultRecentUsage is how many usage rows RecentUsage returns by default.
const DefaultRecentUsage = 5

var (
	// ErrItemNotFound is returned when no item has the given id.
	ErrItemNotFound = errors.New("inventory item not found")
	// ErrInvalidQuantity is returned for zero or negative quantities.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrInvalidItem is returned when an item is missing its name or unit, or has negative stock.
	ErrInvalidItem = errors.New("invalid inventory item")
)

// InsufficientStockError reports a usage larger than the stock on hand.
type InsufficientStockError struct {
	Item      string
	Available decimal.Decimal
	Unit      string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: only %s %s left", e.Item, e.Available.String(), e.Unit)
}

// LowStock reports whether stock is at or below LowStockThreshold.
func LowStock(stock decimal.Decimal) bool {
	return stock.LessThanOrEqual(decimal.NewFromInt(LowStockThreshold))
}

// Service manages items and usage.
type Service struct {
	db     *gorm.DB
	events events.Publisher
	now    func() time.Time
}

// NewService constructs a Service. A nil publisher discards events.
func NewService(db *gorm.DB, publisher events.Publisher) *Service {
	return &Service{db: db, events: events.OrNop(publisher), now: func() time.Time { return time.Now().UTC() }}
}

// ItemInput carries the editable item fields.
type ItemInput struct {
	Name  string
	Stock decimal.Decimal
	Unit  string
}

func (in ItemInput) normalize() (ItemInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.TrimSpace(in.Unit)
	if in.Name == "" || in.Unit == "" || in.Stock.IsNegative() {
		return ItemInput{}, ErrInvalidItem
	}
	return in, nil
}

// List returns all items ordered by name.
func (s *Service) List(ctx context.Context) ([]models.InventoryItem, error) {
	var rows []models.InventoryItem
	if errFind := s.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("inventory: list: %w", errFind)
	}
	return rows, nil
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, id uint64) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if errFind := s.db.WithContext(ctx).First(&item, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("inventory: get: %w", errFind)
	}
	return &item, nil
}

// Create adds an item.
func (s *Service) Create(ctx context.Context, in ItemInput) (*models.InventoryItem, error) {
	normalized, errInput := in.normalize()
	if errInput != nil {
		return nil, errInput
	}
	now := s.now()
	item := models.InventoryItem{Name: normalized.Name, Stock: normalized.Stock, Unit: normalized.Unit, CreatedAt: now, UpdatedAt: now}
	if errCreate := s.db.WithContext(ctx).Create(&item).Error; errCreate != nil {
		return nil, fmt.Errorf("inventory: create: %w", errCreate)
	}
	return &item, nil
}

// Update replaces the item's name, stock and unit.
func (s *Service) Update(ctx context.Context, id uint64, in ItemInput) (*models.InventoryItem, error) {
	normalized, errInput := in.normalize()
	if errInput != nil {
		return nil, errInput
	}
	res := s.db.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"name":       normalized.Name,
			"stock":      normalized.Stock,
			"unit":       normalized.Unit,
			"updated_at": s.now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("inventory: update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrItemNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes an item. Its usage log is kept.
func (s *Service) Delete(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&models.InventoryItem{}, id)
	if res.Error != nil {
		return fmt.Errorf("inventory: delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Restock adds qty to the item's stock.
func (s *Service) Restock(ctx context.Context, id uint64, qty decimal.Decimal) (*models.InventoryItem, error) {
	if !qty.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	var item models.InventoryItem
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, errLock := lockItem(tx, id)
		if errLock != nil {
			return errLock
		}
		locked.Stock = locked.Stock.Add(qty)
		locked.UpdatedAt = s.now()
		if errUpdate := tx.Model(&models.InventoryItem{}).Where("id = ?", id).
			Updates(map[string]any{"stock": locked.Stock, "updated_at": locked.UpdatedAt}).Error; errUpdate != nil {
			return errUpdate
		}
		item = *locked
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, ErrItemNotFound) {
			return nil, errTx
		}
		return nil, fmt.Errorf("inventory: restock: %w", errTx)
	}
	return &item, nil
}

// RecordUsage takes qty out of stock and logs it. It fails without changes when stock is short.
func (s *Service) RecordUsage(ctx context.Context, itemID uint64, qty decimal.Decimal) (*models.InventoryUsage, error) {
	if !qty.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	var usage models.InventoryUsage
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, errLock := lockItem(tx, itemID)
		if errLock != nil {
			return errLock
		}
		if item.Stock.LessThan(qty) {
			return &InsufficientStockError{Item: item.Name, Available: item.Stock, Unit: item.Unit}
		}
		now := s.now()
		if errUpdate := tx.Model(&models.InventoryItem{}).Where("id = ?", item.ID).
			Updates(map[string]any{"stock": item.Stock.Sub(qty), "updated_at": now}).Error; errUpdate != nil {
			return errUpdate
		}
		usage = models.InventoryUsage{
			ItemID:   item.ID,
			ItemName: item.Name,
			Quantity: qty,
			Unit:     item.Unit,
			UsedAt:   now,
		}
		return tx.Create(&usage).Error
	})
	if errTx != nil {
		var short *InsufficientStockError
		if errors.As(errTx, &short) || errors.Is(errTx, ErrItemNotFound) {
			return nil, errTx
		}
		return nil, fmt.Errorf("inventory: record usage: %w", errTx)
	}

	s.events.Publish(ctx, events.SubjectInventoryUsage, usage)
	log.WithFields(log.Fields{"item_id": itemID, "quantity": qty.String(), "unit": usage.Unit}).Info("inventory usage recorded")
	return &usage, nil
}

// RecentUsage returns the latest usage rows, newest first.
func (s *Service) RecentUsage(ctx context.Context, limit int) ([]models.InventoryUsage, error) {
	if limit <= 0 {
		limit = DefaultRecentUsage
	}
	var rows []models.InventoryUsage
	if errFind := s.db.WithContext(ctx).Order("used_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("inventory: recent usage: %w", errFind)
	}
	return rows, nil
}

func lockItem(tx *gorm.DB, id uint64) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if errFind := dbpkg.ForUpdate(tx).First(&item, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, errFind
	}
	return &item, nil
}
