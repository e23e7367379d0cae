// Package members stores loyalty member profiles and their points balances.
package members

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	dbpkg "github.com/martabak-juara/loyalty-club/internal/db"
	"github.com/martabak-juara/loyalty-club/internal/models"
	"github.com/martabak-juara/loyalty-club/internal/security"
	"gorm.io/gorm"
)

// CodePrefix starts every member code.
const CodePrefix = "MJ-"

// codeLength is the number of id characters carried into the member code.
const codeLength = 6

// maxCodeAttempts bounds id regeneration when a derived code is already taken.
const maxCodeAttempts = 5

var (
	// ErrMemberNotFound is returned when no member has the given id.
	ErrMemberNotFound = errors.New("member not found")
	// ErrEmailTaken is returned when registering with an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidAddress is returned when an address is incomplete for its type.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrInvalidInput is returned when required registration fields are missing.
	ErrInvalidInput = errors.New("invalid member input")
)

// CodeFromID derives the shareable member code from an account id.
func CodeFromID(id string) string {
	trimmed := strings.ReplaceAll(strings.TrimSpace(id), "-", "")
	if len(trimmed) > codeLength {
		trimmed = trimmed[:codeLength]
	}
	return CodePrefix + strings.ToUpper(trimmed)
}

// NormalizeCode trims and upper-cases a code typed or scanned by staff.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Store reads and writes members.
type Store struct {
	db *gorm.DB
}

// NewStore constructs a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// RegisterInput carries the sign-up form.
type RegisterInput struct {
	Name      string
	Email     string
	Phone     string
	BirthDate string
	Password  string
	Address   *models.Address
}

// Register creates the account and member rows in one transaction.
func (s *Store) Register(ctx context.Context, in RegisterInput) (*models.Member, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || !strings.Contains(email, "@") || len(in.Password) < 6 {
		return nil, ErrInvalidInput
	}
	var address models.Address
	if in.Address != nil && !in.Address.IsZero() {
		normalized, errAddr := NormalizeAddress(*in.Address)
		if errAddr != nil {
			return nil, errAddr
		}
		address = normalized
	}

	hash, errHash := security.HashPassword(in.Password)
	if errHash != nil {
		return nil, fmt.Errorf("members: hash password: %w", errHash)
	}

	var member models.Member
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if errCount := tx.Model(&models.Account{}).Where("email = ?", email).Count(&taken).Error; errCount != nil {
			return errCount
		}
		if taken > 0 {
			return ErrEmailTaken
		}

		id, code, errID := allocateID(tx)
		if errID != nil {
			return errID
		}
		now := time.Now().UTC()
		account := models.Account{ID: id, Email: email, Password: hash, CreatedAt: now, UpdatedAt: now}
		if errCreate := tx.Create(&account).Error; errCreate != nil {
			return errCreate
		}
		member = models.Member{
			ID:        id,
			Name:      name,
			Email:     email,
			Phone:     strings.TrimSpace(in.Phone),
			BirthDate: strings.TrimSpace(in.BirthDate),
			Code:      code,
			Points:    0,
			Address:   address,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Create(&member).Error
	})
	if errTx != nil {
		// A concurrent sign-up can pass the count and lose on the unique index.
		if errors.Is(errTx, ErrEmailTaken) || errors.Is(errTx, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("members: register: %w", errTx)
	}
	return &member, nil
}

// allocateID picks a fresh account id whose derived code is not in use.
func allocateID(tx *gorm.DB) (string, string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		id := uuid.NewString()
		code := CodeFromID(id)
		var count int64
		if errCount := tx.Model(&models.Member{}).Where("code = ?", code).Count(&count).Error; errCount != nil {
			return "", "", errCount
		}
		if count == 0 {
			return id, code, nil
		}
	}
	return "", "", errors.New("members: could not allocate a unique member code")
}

// Get returns the member with id.
func (s *Store) Get(ctx context.Context, id string) (*models.Member, error) {
	var member models.Member
	if errFind := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).First(&member).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("members: get: %w", errFind)
	}
	return &member, nil
}

// FindByCode looks a member up by code. A miss returns (nil, nil).
func (s *Store) FindByCode(ctx context.Context, code string) (*models.Member, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, nil
	}
	var rows []models.Member
	if errFind := s.db.WithContext(ctx).Where("code = ?", normalized).Limit(1).Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("members: find by code: %w", errFind)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// UpdateProfile changes the contact fields a member may edit.
func (s *Store) UpdateProfile(ctx context.Context, id, name, phone string) (*models.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	res := s.db.WithContext(ctx).Model(&models.Member{}).
		Where("id = ?", id).
		Updates(map[string]any{"name": name, "phone": strings.TrimSpace(phone), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, fmt.Errorf("members: update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrMemberNotFound
	}
	return s.Get(ctx, id)
}

// UpdateAddress replaces the member's delivery address.
func (s *Store) UpdateAddress(ctx context.Context, id string, address models.Address) (*models.Member, error) {
	normalized, errAddr := NormalizeAddress(address)
	if errAddr != nil {
		return nil, errAddr
	}
	res := s.db.WithContext(ctx).Model(&models.Member{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"address_type":      normalized.Type,
			"address_display":   normalized.Display,
			"address_latitude":  normalized.Latitude,
			"address_longitude": normalized.Longitude,
			"address_map_url":   normalized.MapURL,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("members: update address: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrMemberNotFound
	}
	return s.Get(ctx, id)
}

// ListOptions filters and pages the member list.
type ListOptions struct {
	Query  string
	Limit  int
	Offset int
}

// List returns members newest first, optionally filtered by name, email or code.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]models.Member, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Member{})
	if term := strings.TrimSpace(opts.Query); term != "" {
		pattern := dbpkg.ContainsPattern(s.db, term)
		q = q.Where(
			"("+dbpkg.CaseInsensitiveLikeExpr(s.db, "name")+" OR "+
				dbpkg.CaseInsensitiveLikeExpr(s.db, "email")+" OR "+
				dbpkg.CaseInsensitiveLikeExpr(s.db, "code")+")",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("members: count: %w", errCount)
	}

	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	var rows []models.Member
	if errFind := q.Order("created_at DESC").Order("id ASC").Limit(limit).Offset(offset).Find(&rows).Error; errFind != nil {
		return nil, 0, fmt.Errorf("members: list: %w", errFind)
	}
	return rows, total, nil
}
