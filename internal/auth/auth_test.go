package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/config"
	"github.com/martabak-juara/loyalty-club/internal/db/dbtest"
	"github.com/martabak-juara/loyalty-club/internal/models"
	"github.com/martabak-juara/loyalty-club/internal/security"
)

func TestNotifierSubscribeUnsubscribe(t *testing.T) {
	n := NewNotifier()
	var (
		mu   sync.Mutex
		seen []EventKind
	)
	unsubscribe := n.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev.Kind)
	})
	if n.Subscribers() != 1 {
		t.Fatalf("expected one subscriber")
	}

	n.Publish(Event{Kind: EventSignedIn})
	unsubscribe()
	unsubscribe()
	n.Publish(Event{Kind: EventSignedOut})

	if n.Subscribers() != 0 {
		t.Fatalf("expected no subscribers after unsubscribe")
	}
	if len(seen) != 1 || seen[0] != EventSignedIn {
		t.Fatalf("unexpected events %v", seen)
	}
}

func TestTrackerFollowsEvents(t *testing.T) {
	n := NewNotifier()
	tracker := NewTracker()
	defer n.Subscribe(tracker.Handle)()

	member := Session{Subject: "acc-1", Role: RoleMember}
	n.Publish(Event{Kind: EventSignedIn, Session: member})
	n.Publish(Event{Kind: EventSignedIn, Session: Session{Subject: "root", Role: RoleAdmin}})
	if tracker.Active(RoleMember) != 1 || tracker.Active(RoleAdmin) != 1 {
		t.Fatalf("expected one member and one admin session")
	}
	n.Publish(Event{Kind: EventSignedOut, Session: member})
	if tracker.Active(RoleMember) != 0 {
		t.Fatalf("expected member session to end")
	}
}

func TestSessionContext(t *testing.T) {
	if got := FromContext(context.Background()); got.Role != RoleAnonymous {
		t.Fatalf("expected anonymous, got %v", got.Role)
	}
	ctx := WithSession(context.Background(), Session{Subject: "acc-1", Role: RoleMember})
	if !FromContext(ctx).IsMember() {
		t.Fatalf("expected member session")
	}

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if SessionFrom(c).Role != RoleAnonymous {
		t.Fatalf("expected anonymous gin session")
	}
	SetSession(c, Session{Subject: "root", Role: RoleAdmin, AdminID: 1})
	if !SessionFrom(c).IsAdmin() || !FromContext(c.Request.Context()).IsAdmin() {
		t.Fatalf("expected admin session on gin and request context")
	}
	if ParseRole("superuser") != RoleAnonymous {
		t.Fatalf("unknown role must map to anonymous")
	}
}

func TestProviderSignIn(t *testing.T) {
	conn := dbtest.Open(t)
	hash, errHash := security.HashPassword("rahasia123")
	if errHash != nil {
		t.Fatalf("hash: %v", errHash)
	}
	if errCreate := conn.Create(&models.Account{ID: "acc-1", Email: "sari@example.com", Password: hash}).Error; errCreate != nil {
		t.Fatalf("create account: %v", errCreate)
	}

	n := NewNotifier()
	var kinds []EventKind
	defer n.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })()

	p := NewProvider(conn, config.JWTConfig{Secret: "0123456789abcdef0123", Expiry: time.Hour}, n)
	if _, _, errSignIn := p.SignIn(context.Background(), "sari@example.com", "wrong"); !errors.Is(errSignIn, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", errSignIn)
	}
	token, session, errSignIn := p.SignIn(context.Background(), " SARI@example.com ", "rahasia123")
	if errSignIn != nil {
		t.Fatalf("sign in: %v", errSignIn)
	}
	if session.Subject != "acc-1" || session.Role != RoleMember {
		t.Fatalf("unexpected session %+v", session)
	}
	parsed, errParse := p.ParseMember(token)
	if errParse != nil || parsed.Subject != "acc-1" {
		t.Fatalf("parse member: %+v %v", parsed, errParse)
	}
	if len(kinds) != 2 || kinds[0] != EventSignInFailed || kinds[1] != EventSignedIn {
		t.Fatalf("unexpected events %v", kinds)
	}

	if errDisable := conn.Model(&models.Account{}).Where("id = ?", "acc-1").Update("disabled", true).Error; errDisable != nil {
		t.Fatalf("disable: %v", errDisable)
	}
	if _, _, errSignIn = p.SignIn(context.Background(), "sari@example.com", "rahasia123"); !errors.Is(errSignIn, ErrAccountDisabled) {
		t.Fatalf("expected disabled, got %v", errSignIn)
	}
}

func TestProviderChangePassword(t *testing.T) {
	conn := dbtest.Open(t)
	hash, _ := security.HashPassword("rahasia123")
	if errCreate := conn.Create(&models.Account{ID: "acc-1", Email: "sari@example.com", Password: hash}).Error; errCreate != nil {
		t.Fatalf("create account: %v", errCreate)
	}
	p := NewProvider(conn, config.JWTConfig{Secret: "0123456789abcdef0123", Expiry: time.Hour}, nil)

	if errChange := p.ChangePassword(context.Background(), "acc-1", "rahasia123", "123"); !errors.Is(errChange, ErrWeakPassword) {
		t.Fatalf("expected weak password, got %v", errChange)
	}
	if errChange := p.ChangePassword(context.Background(), "acc-1", "nope", "barubaru1"); !errors.Is(errChange, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", errChange)
	}
	if errChange := p.ChangePassword(context.Background(), "acc-1", "rahasia123", "barubaru1"); errChange != nil {
		t.Fatalf("change: %v", errChange)
	}
	if _, _, errSignIn := p.SignIn(context.Background(), "sari@example.com", "barubaru1"); errSignIn != nil {
		t.Fatalf("sign in with new password: %v", errSignIn)
	}
}
