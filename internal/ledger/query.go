package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/martabak-juara/loyalty-club/internal/models"
	"gorm.io/gorm"
)

// Get returns one redemption.
func (s *Service) Get(ctx context.Context, redemptionID string) (*models.Redemption, error) {
	var r models.Redemption
	if errFind := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(redemptionID)).First(&r).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("ledger: get redemption: %w", errFind)
	}
	return &r, nil
}

// ListPending returns the approval queue, oldest request first.
func (s *Service) ListPending(ctx context.Context) ([]models.Redemption, error) {
	var rows []models.Redemption
	if errFind := s.db.WithContext(ctx).
		Where("status = ?", models.RedemptionPending).
		Order("requested_at ASC").
		Order("id ASC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("ledger: list pending: %w", errFind)
	}
	return rows, nil
}

// ListFilter narrows the redemption history.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}

// List returns redemptions newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]models.Redemption, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Redemption{})
	if status := strings.ToLower(strings.TrimSpace(filter.Status)); status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("ledger: count redemptions: %w", errCount)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	var rows []models.Redemption
	if errFind := q.Order("requested_at DESC").Order("id ASC").Limit(limit).Offset(offset).Find(&rows).Error; errFind != nil {
		return nil, 0, fmt.Errorf("ledger: list redemptions: %w", errFind)
	}
	return rows, total, nil
}

// ListForMember returns one member's requests, newest first.
func (s *Service) ListForMember(ctx context.Context, memberID string) ([]models.Redemption, error) {
	var rows []models.Redemption
	if errFind := s.db.WithContext(ctx).
		Where("member_id = ?", strings.TrimSpace(memberID)).
		Order("requested_at DESC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("ledger: list member redemptions: %w", errFind)
	}
	return rows, nil
}

// HasPending reports whether the member has a request awaiting approval.
func (s *Service) HasPending(ctx context.Context, memberID string) (bool, error) {
	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.Redemption{}).
		Where("member_id = ? AND status = ?", strings.TrimSpace(memberID), models.RedemptionPending).
		Count(&count).Error; errCount != nil {
		return false, fmt.Errorf("ledger: pending check: %w", errCount)
	}
	return count > 0, nil
}

// Entries returns the member's balance journal, newest first.
func (s *Service) Entries(ctx context.Context, memberID string, limit int) ([]models.PointEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []models.PointEntry
	if errFind := s.db.WithContext(ctx).
		Where("member_id = ?", strings.TrimSpace(memberID)).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("ledger: list entries: %w", errFind)
	}
	return rows, nil
}
