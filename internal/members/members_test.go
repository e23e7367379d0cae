package members

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/martabak-juara/loyalty-club/internal/db/dbtest"
	"github.com/martabak-juara/loyalty-club/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func registerMember(t *testing.T, store *Store, email string) *models.Member {
	t.Helper()
	member, err := store.Register(context.Background(), RegisterInput{
		Name:      "Sari",
		Email:     email,
		Phone:     "0812",
		BirthDate: "1995-04-01",
		Password:  "rahasia123",
	})
	require.NoError(t, err)
	return member
}

func TestCodeFromID(t *testing.T) {
	assert.Equal(t, "MJ-3F2A9C", CodeFromID("3f2a9c41-8d2b-4c55-b1e0-0a1b2c3d4e5f"))
	assert.Equal(t, "MJ-ABC", CodeFromID("abc"))
	assert.Equal(t, "MJ-ABC123", NormalizeCode("  mj-abc123 "))
}

func TestRegister(t *testing.T) {
	t.Run("creates account and member with derived code", func(t *testing.T) {
		conn := dbtest.Open(t)
		store := NewStore(conn)

		member := registerMember(t, store, "Sari@Example.com")
		assert.Equal(t, CodeFromID(member.ID), member.Code)
		assert.Equal(t, "sari@example.com", member.Email)
		assert.Zero(t, member.Points)

		var account models.Account
		require.NoError(t, conn.First(&account, "id = ?", member.ID).Error)
		assert.NotEqual(t, "rahasia123", account.Password)
	})

	t.Run("duplicate email is rejected without partial rows", func(t *testing.T) {
		conn := dbtest.Open(t)
		store := NewStore(conn)
		registerMember(t, store, "dupe@example.com")

		_, err := store.Register(context.Background(), RegisterInput{Name: "Other", Email: "DUPE@example.com", Password: "rahasia123"})
		assert.ErrorIs(t, err, ErrEmailTaken)

		var count int64
		require.NoError(t, conn.Model(&models.Member{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("missing fields", func(t *testing.T) {
		store := NewStore(dbtest.Open(t))
		_, err := store.Register(context.Background(), RegisterInput{Email: "x@example.com", Password: "rahasia123"})
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = store.Register(context.Background(), RegisterInput{Name: "X", Email: "x@example.com", Password: "123"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("optional address is normalized", func(t *testing.T) {
		store := NewStore(dbtest.Open(t))
		member, err := store.Register(context.Background(), RegisterInput{
			Name:     "Budi",
			Email:    "budi@example.com",
			Password: "rahasia123",
			Address:  &models.Address{Type: "MANUAL", Display: " Jl. Merdeka 10 "},
		})
		require.NoError(t, err)
		assert.Equal(t, models.AddressManual, member.Address.Type)
		assert.Equal(t, "Jl. Merdeka 10", member.Address.Display)
		assert.True(t, strings.HasPrefix(member.Address.MapURL, "https://www.google.com/maps?q="))
	})
}

func TestRegisterLosesUniqueIndexRace(t *testing.T) {
	conn := dbtest.Open(t)
	store := NewStore(conn)

	// A rival sign-up lands between the email count and the account insert.
	raced := false
	errHook := conn.Callback().Create().Before("gorm:create").Register("test:rival_signup", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "accounts" {
			return
		}
		raced = true
		now := time.Now().UTC()
		tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO accounts (id, email, password, disabled, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			"rival", "race@example.com", "x", false, now, now,
		)
	})
	require.NoError(t, errHook)

	_, err := store.Register(context.Background(), RegisterInput{Name: "Sari", Email: "race@example.com", Password: "rahasia123"})
	require.True(t, raced)
	assert.ErrorIs(t, err, ErrEmailTaken)

	var count int64
	require.NoError(t, conn.Model(&models.Member{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFindByCode(t *testing.T) {
	store := NewStore(dbtest.Open(t))
	member := registerMember(t, store, "code@example.com")

	upper, err := store.FindByCode(context.Background(), member.Code)
	require.NoError(t, err)
	require.NotNil(t, upper)

	lower, err := store.FindByCode(context.Background(), "  "+strings.ToLower(member.Code)+" ")
	require.NoError(t, err)
	require.NotNil(t, lower)
	assert.Equal(t, upper.ID, lower.ID)

	missing, err := store.FindByCode(context.Background(), "MJ-ZZZZZZ")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	empty, err := store.FindByCode(context.Background(), "   ")
	assert.NoError(t, err)
	assert.Nil(t, empty)
}

func TestGetUnknown(t *testing.T) {
	store := NewStore(dbtest.Open(t))
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestUpdateAddress(t *testing.T) {
	store := NewStore(dbtest.Open(t))
	member := registerMember(t, store, "addr@example.com")
	lat, lng := -6.2, 106.8

	updated, err := store.UpdateAddress(context.Background(), member.ID, models.Address{Type: models.AddressGPS, Latitude: &lat, Longitude: &lng})
	require.NoError(t, err)
	require.NotNil(t, updated.Address.Latitude)
	assert.InDelta(t, lat, *updated.Address.Latitude, 1e-9)
	assert.Contains(t, updated.Address.MapURL, "-6.200000,106.800000")

	_, err = store.UpdateAddress(context.Background(), member.ID, models.Address{Type: models.AddressGPS})
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = store.UpdateAddress(context.Background(), "missing", models.Address{Type: models.AddressManual, Display: "x"})
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestListSearch(t *testing.T) {
	store := NewStore(dbtest.Open(t))
	registerMember(t, store, "alpha@example.com")
	second := registerMember(t, store, "beta@example.com")

	rows, total, err := store.List(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, rows, 2)

	rows, total, err = store.List(context.Background(), ListOptions{Query: "BETA"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, second.ID, rows[0].ID)

	rows, _, err = store.List(context.Background(), ListOptions{Query: strings.ToLower(second.Code)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestDirectionsURL(t *testing.T) {
	origin := models.Address{Display: "Jl. Raya Martabak No. 1, Jakarta"}
	dest := models.Address{Display: "Jl. Merdeka 10"}
	got := DirectionsURL(origin, dest)
	assert.True(t, strings.HasPrefix(got, "https://www.google.com/maps/dir/?"))
	assert.Contains(t, got, "api=1")
	assert.Contains(t, got, "origin=Jl.+Raya+Martabak+No.+1%2C+Jakarta")
	assert.Contains(t, got, "destination=Jl.+Merdeka+10")
}
