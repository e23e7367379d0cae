// Package ledger applies point credits and runs the redemption approval state machine.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	dbpkg "github.com/martabak-juara/loyalty-club/internal/db"
	"github.com/martabak-juara/loyalty-club/internal/events"
	"github.com/martabak-juara/loyalty-club/internal/metrics"
	"github.com/martabak-juara/loyalty-club/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service owns every write to member balances and redemption rows.
type Service struct {
	db     *gorm.DB
	events events.Publisher
	now    func() time.Time
}

// NewService constructs a Service. A nil publisher discards events.
func NewService(db *gorm.DB, publisher events.Publisher) *Service {
	return &Service{
		db:     db,
		events: events.OrNop(publisher),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type actorKey struct{}

// WithActor records which admin performs the operations run with ctx.
func WithActor(ctx context.Context, adminID uint64) context.Context {
	return context.WithValue(ctx, actorKey{}, adminID)
}

func actorFrom(ctx context.Context) *uint64 {
	if id, ok := ctx.Value(actorKey{}).(uint64); ok && id > 0 {
		return &id
	}
	return nil
}

// PointsAdded is published after a credit commits.
type PointsAdded struct {
	MemberID   string `json:"member_id"`
	MemberCode string `json:"member_code"`
	Delta      int64  `json:"delta"`
	Balance    int64  `json:"balance"`
}

// AddPoints credits delta points to the member and returns the new balance.
func (s *Service) AddPoints(ctx context.Context, memberID string, delta int64) (int64, error) {
	if delta <= 0 {
		return 0, ErrInvalidAmount
	}
	memberID = strings.TrimSpace(memberID)
	actor := actorFrom(ctx)

	var (
		balance int64
		code    string
	)
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, errMember := lockMember(tx, memberID)
		if errMember != nil {
			return errMember
		}
		now := s.now()
		if errUpdate := tx.Model(&models.Member{}).
			Where("id = ?", member.ID).
			Updates(map[string]any{
				"points":     gorm.Expr("points + ?", delta),
				"updated_at": now,
			}).Error; errUpdate != nil {
			return errUpdate
		}
		after, errRead := readBalance(tx, member.ID)
		if errRead != nil {
			return errRead
		}
		balance = after
		code = member.Code
		return tx.Create(&models.PointEntry{
			MemberID:     member.ID,
			Delta:        delta,
			BalanceAfter: balance,
			Reason:       models.PointReasonPurchase,
			RecordedBy:   actor,
			CreatedAt:    now,
		}).Error
	})
	if errTx != nil {
		return 0, wrap("add points", errTx)
	}

	metrics.PointsAwarded(delta)
	s.events.Publish(ctx, events.SubjectPointsAdded, PointsAdded{MemberID: memberID, MemberCode: code, Delta: delta, Balance: balance})
	log.WithFields(log.Fields{"member_id": memberID, "delta": delta, "balance": balance}).Info("points added")
	return balance, nil
}

// CreateRedemption files a pending request. The balance is checked at approval, not here.
func (s *Service) CreateRedemption(ctx context.Context, memberID string, points int64) (*models.Redemption, error) {
	return s.create(ctx, memberID, points, false)
}

// RequestRedemption is the member-facing create. It refuses members whose balance is
// below points or who already have a pending request.
func (s *Service) RequestRedemption(ctx context.Context, memberID string, points int64) (*models.Redemption, error) {
	return s.create(ctx, memberID, points, true)
}

func (s *Service) create(ctx context.Context, memberID string, points int64, gate bool) (*models.Redemption, error) {
	if points <= 0 {
		return nil, ErrInvalidAmount
	}
	memberID = strings.TrimSpace(memberID)

	var redemption models.Redemption
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, errMember := lockMember(tx, memberID)
		if errMember != nil {
			return errMember
		}
		if gate {
			if member.Points < points {
				return fmt.Errorf("%w: balance %d is below %d", ErrNotEligible, member.Points, points)
			}
			var pending int64
			if errCount := tx.Model(&models.Redemption{}).
				Where("member_id = ? AND status = ?", member.ID, models.RedemptionPending).
				Count(&pending).Error; errCount != nil {
				return errCount
			}
			if pending > 0 {
				return fmt.Errorf("%w: a request is already pending", ErrNotEligible)
			}
		}
		redemption = models.Redemption{
			ID:          uuid.NewString(),
			MemberID:    member.ID,
			MemberCode:  member.Code,
			MemberName:  member.Name,
			Points:      points,
			Status:      models.RedemptionPending,
			RequestedAt: s.now(),
		}
		return tx.Create(&redemption).Error
	})
	if errTx != nil {
		return nil, wrap("create redemption", errTx)
	}

	metrics.RedemptionRequested()
	s.events.Publish(ctx, events.SubjectRedemptionRequested, redemption)
	log.WithFields(log.Fields{"redemption_id": redemption.ID, "member_id": memberID, "points": points}).Info("redemption requested")
	return &redemption, nil
}

// Approve debits the member and marks the request approved, all in one transaction.
func (s *Service) Approve(ctx context.Context, redemptionID string) (*models.Redemption, error) {
	actor := actorFrom(ctx)
	var (
		redemption models.Redemption
		balance    int64
	)
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, errLoad := lockPending(tx, redemptionID)
		if errLoad != nil {
			return errLoad
		}
		member, errMember := lockMember(tx, r.MemberID)
		if errMember != nil {
			return errMember
		}
		if member.Points < r.Points {
			return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientPoints, member.Points, r.Points)
		}

		now := s.now()
		if errDebit := debitPoints(tx, member.ID, r.Points, now); errDebit != nil {
			return errDebit
		}
		if errMark := markProcessed(tx, r, models.RedemptionApproved, now, actor); errMark != nil {
			return errMark
		}
		after, errRead := readBalance(tx, member.ID)
		if errRead != nil {
			return errRead
		}
		balance = after
		if errEntry := tx.Create(&models.PointEntry{
			MemberID:     member.ID,
			Delta:        -r.Points,
			BalanceAfter: balance,
			Reason:       models.PointReasonRedemption,
			ReferenceID:  r.ID,
			RecordedBy:   actor,
			CreatedAt:    now,
		}).Error; errEntry != nil {
			return errEntry
		}
		redemption = *r
		return nil
	})
	if errTx != nil {
		return nil, wrap("approve redemption", errTx)
	}

	metrics.RedemptionApproved(redemption.Points)
	s.events.Publish(ctx, events.SubjectRedemptionApproved, redemption)
	log.WithFields(log.Fields{"redemption_id": redemption.ID, "member_id": redemption.MemberID, "balance": balance}).Info("redemption approved")
	return &redemption, nil
}

// Reject closes a pending request without touching the balance.
func (s *Service) Reject(ctx context.Context, redemptionID string) (*models.Redemption, error) {
	actor := actorFrom(ctx)
	var redemption models.Redemption
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, errLoad := lockPending(tx, redemptionID)
		if errLoad != nil {
			return errLoad
		}
		if errMark := markProcessed(tx, r, models.RedemptionRejected, s.now(), actor); errMark != nil {
			return errMark
		}
		redemption = *r
		return nil
	})
	if errTx != nil {
		return nil, wrap("reject redemption", errTx)
	}

	metrics.RedemptionRejected()
	s.events.Publish(ctx, events.SubjectRedemptionRejected, redemption)
	log.WithFields(log.Fields{"redemption_id": redemption.ID, "member_id": redemption.MemberID}).Info("redemption rejected")
	return &redemption, nil
}

// lockMember reads a member row under a write lock.
func lockMember(tx *gorm.DB, memberID string) (*models.Member, error) {
	var member models.Member
	if errFind := dbpkg.ForUpdate(tx).Where("id = ?", memberID).First(&member).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, errFind
	}
	return &member, nil
}

func readBalance(tx *gorm.DB, memberID string) (int64, error) {
	var member models.Member
	if errFind := tx.Select("id", "points").Where("id = ?", memberID).First(&member).Error; errFind != nil {
		return 0, errFind
	}
	return member.Points, nil
}

// lockPending reads a redemption under a write lock and requires it to be pending.
func lockPending(tx *gorm.DB, redemptionID string) (*models.Redemption, error) {
	var r models.Redemption
	if errFind := dbpkg.ForUpdate(tx).Where("id = ?", strings.TrimSpace(redemptionID)).First(&r).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrRedemptionNotFound
		}
		return nil, errFind
	}
	if r.IsTerminal() {
		return nil, ErrAlreadyProcessed
	}
	return &r, nil
}

// debitPoints subtracts points only while the balance still covers them.
func debitPoints(tx *gorm.DB, memberID string, points int64, now time.Time) error {
	res := tx.Model(&models.Member{}).
		Where("id = ? AND points >= ?", memberID, points).
		Updates(map[string]any{
			"points":     gorm.Expr("points - ?", points),
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrInsufficientPoints
	}
	return nil
}

// markProcessed moves r out of pending. The status predicate makes the transition happen once.
func markProcessed(tx *gorm.DB, r *models.Redemption, status string, now time.Time, actor *uint64) error {
	res := tx.Model(&models.Redemption{}).
		Where("id = ? AND status = ?", r.ID, models.RedemptionPending).
		Updates(map[string]any{
			"status":       status,
			"processed_at": now,
			"processed_by": actor,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrAlreadyProcessed
	}
	r.Status = status
	r.ProcessedAt = &now
	r.ProcessedBy = actor
	return nil
}

// wrap keeps sentinel errors comparable and labels store failures.
func wrap(op string, err error) error {
	for _, sentinel := range []error{
		ErrMemberNotFound, ErrRedemptionNotFound, ErrAlreadyProcessed,
		ErrInsufficientPoints, ErrInvalidAmount, ErrNotEligible,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("ledger: %s: %w", op, err)
}
