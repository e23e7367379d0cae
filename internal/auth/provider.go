package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/martabak-juara/loyalty-club/internal/config"
	"github.com/martabak-juara/loyalty-club/internal/models"
	"github.com/martabak-juara/loyalty-club/internal/security"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is returned when the account exists but may not sign in.
	ErrAccountDisabled = errors.New("account is disabled")
	// ErrWeakPassword is returned when a new password is too short.
	ErrWeakPassword = errors.New("password must be at least 6 characters")
)

// MinPasswordLength is the shortest password accepted for members.
const MinPasswordLength = 6

// Provider signs members in with email and password and issues their tokens.
type Provider struct {
	db       *gorm.DB
	jwt      config.JWTConfig
	notifier *Notifier
}

// NewProvider constructs a Provider. notifier may be nil.
func NewProvider(db *gorm.DB, jwtCfg config.JWTConfig, notifier *Notifier) *Provider {
	return &Provider{db: db, jwt: jwtCfg, notifier: notifier}
}

// Notifier returns the notifier events are published to.
func (p *Provider) Notifier() *Notifier { return p.notifier }

// SignIn checks the credentials and returns a member token and session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (string, Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", Anonymous, ErrInvalidCredentials
	}

	var account models.Account
	if errFind := p.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			p.notifier.Publish(Event{Kind: EventSignInFailed, Session: Session{Role: RoleMember, Email: email}, Reason: "unknown email"})
			return "", Anonymous, ErrInvalidCredentials
		}
		return "", Anonymous, fmt.Errorf("auth: sign in: %w", errFind)
	}
	if account.Disabled {
		p.notifier.Publish(Event{Kind: EventSignInFailed, Session: Session{Role: RoleMember, Subject: account.ID, Email: email}, Reason: "disabled"})
		return "", Anonymous, ErrAccountDisabled
	}
	if !security.CheckPassword(account.Password, password) {
		p.notifier.Publish(Event{Kind: EventSignInFailed, Session: Session{Role: RoleMember, Subject: account.ID, Email: email}, Reason: "wrong password"})
		return "", Anonymous, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if errUpdate := p.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", account.ID).
		Update("last_sign_in_at", now).Error; errUpdate != nil {
		return "", Anonymous, fmt.Errorf("auth: sign in: %w", errUpdate)
	}

	token, session, errToken := p.issue(account.ID, account.Email)
	if errToken != nil {
		return "", Anonymous, errToken
	}
	p.notifier.Publish(Event{Kind: EventSignedIn, Session: session, At: now})
	return token, session, nil
}

// Registered issues the first token for a freshly created account.
func (p *Provider) Registered(accountID, email string) (string, Session, error) {
	token, session, err := p.issue(accountID, email)
	if err != nil {
		return "", Anonymous, err
	}
	p.notifier.Publish(Event{Kind: EventRegistered, Session: session})
	return token, session, nil
}

// SignOut announces that the session ended. Tokens are stateless and simply expire.
func (p *Provider) SignOut(s Session) {
	p.notifier.Publish(Event{Kind: EventSignedOut, Session: s})
}

// ChangePassword replaces the password after checking the current one.
func (p *Provider) ChangePassword(ctx context.Context, accountID, current, next string) error {
	if len(next) < MinPasswordLength {
		return ErrWeakPassword
	}
	var account models.Account
	if errFind := p.db.WithContext(ctx).Where("id = ?", accountID).First(&account).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("auth: change password: %w", errFind)
	}
	if !security.CheckPassword(account.Password, current) {
		return ErrInvalidCredentials
	}
	hash, errHash := security.HashPassword(next)
	if errHash != nil {
		return fmt.Errorf("auth: change password: %w", errHash)
	}
	if errUpdate := p.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{"password": hash, "updated_at": time.Now().UTC()}).Error; errUpdate != nil {
		return fmt.Errorf("auth: change password: %w", errUpdate)
	}
	p.notifier.Publish(Event{Kind: EventPasswordChanged, Session: Session{Subject: accountID, Role: RoleMember, Email: account.Email}})
	return nil
}

// ParseMember validates a bearer token and returns the member session.
func (p *Provider) ParseMember(token string) (Session, error) {
	claims, err := security.ParseMemberToken(p.jwt.Secret, token)
	if err != nil {
		return Anonymous, err
	}
	return Session{Subject: claims.AccountID, Role: ParseRole(claims.Role), Email: claims.Email}, nil
}

func (p *Provider) issue(accountID, email string) (string, Session, error) {
	token, err := security.GenerateMemberToken(p.jwt.Secret, accountID, email, p.jwt.Expiry)
	if err != nil {
		return "", Anonymous, fmt.Errorf("auth: issue token: %w", err)
	}
	return token, Session{Subject: accountID, Role: RoleMember, Email: email}, nil
}
