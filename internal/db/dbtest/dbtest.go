// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"testing"

	dbpkg "github.com/martabak-juara/loyalty-club/internal/db"
	"gorm.io/gorm"
)

// Open returns a fresh migrated SQLite database closed at test cleanup.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	conn, errOpen := dbpkg.Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := dbpkg.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	t.Cleanup(func() {
		if sqlDB, errDB := conn.DB(); errDB == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}
