package settings

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/martabak-juara/loyalty-club/internal/db/dbtest"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn := dbtest.Open(t)
	t.Cleanup(func() { Publish(time.Time{}, nil) })
	return conn
}

func TestDefaultsWhenEmpty(t *testing.T) {
	Publish(time.Time{}, nil)

	if got := RedemptionPoints(); got != DefaultRedemptionPoints {
		t.Fatalf("expected default redemption points, got %d", got)
	}
	if got := PointsPerTransaction(); got != DefaultPointsPerTransaction {
		t.Fatalf("expected default award, got %d", got)
	}
	if got := StoreAddress().Display; got != DefaultStoreAddress {
		t.Fatalf("expected default store address, got %q", got)
	}
	if got := SiteName(); got != DefaultSiteName {
		t.Fatalf("expected default site name, got %q", got)
	}
}

func TestInvalidSnapshotValuesFallBack(t *testing.T) {
	Publish(time.Now(), map[string]json.RawMessage{
		RedemptionPointsKey:     json.RawMessage(`"lots"`),
		PointsPerTransactionKey: json.RawMessage(`-3`),
	})
	t.Cleanup(func() { Publish(time.Time{}, nil) })

	if got := RedemptionPoints(); got != DefaultRedemptionPoints {
		t.Fatalf("expected fallback, got %d", got)
	}
	if got := PointsPerTransaction(); got != DefaultPointsPerTransaction {
		t.Fatalf("expected fallback, got %d", got)
	}
}

func TestSaveRefreshesSnapshot(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	errSave := Save(ctx, conn, map[string]json.RawMessage{
		RedemptionPointsKey:     json.RawMessage(`250`),
		PointsPerTransactionKey: json.RawMessage(`10`),
		StoreAddressKey:         json.RawMessage(`{"type":"manual","display_address":"Jl. Sudirman 5, Bandung"}`),
	})
	if errSave != nil {
		t.Fatalf("save: %v", errSave)
	}
	if got := RedemptionPoints(); got != 250 {
		t.Fatalf("expected 250, got %d", got)
	}
	if got := PointsPerTransaction(); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	if got := StoreAddress().Display; got != "Jl. Sudirman 5, Bandung" {
		t.Fatalf("unexpected address %q", got)
	}

	if errSave = Save(ctx, conn, map[string]json.RawMessage{RedemptionPointsKey: json.RawMessage(`400`)}); errSave != nil {
		t.Fatalf("second save: %v", errSave)
	}
	if got := RedemptionPoints(); got != 400 {
		t.Fatalf("expected upserted 400, got %d", got)
	}
}

func TestSaveRejectsInvalidValues(t *testing.T) {
	conn := openTestDB(t)

	cases := map[string]json.RawMessage{
		RedemptionPointsKey: json.RawMessage(`0`),
		SiteNameKey:         json.RawMessage(`""`),
		StoreAddressKey:     json.RawMessage(`{"type":"manual"}`),
		"UNKNOWN":           json.RawMessage(`1`),
	}
	for key, raw := range cases {
		if errSave := Save(context.Background(), conn, map[string]json.RawMessage{key: raw}); errSave == nil {
			t.Fatalf("expected %s=%s to be rejected", key, raw)
		}
	}
	var count int64
	if errCount := conn.Table("settings").Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected no rows written, got %d", count)
	}
}

func TestPublishCopiesValues(t *testing.T) {
	t.Cleanup(func() { Publish(time.Time{}, nil) })
	refreshed := time.Date(2026, 3, 1, 8, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	raw := json.RawMessage(`300`)
	Publish(refreshed, map[string]json.RawMessage{
		" " + RedemptionPointsKey + " ": raw,
		"   ":                           json.RawMessage(`1`),
	})
	raw[0] = '9'

	if got := RedemptionPoints(); got != 300 {
		t.Fatalf("expected published copy 300, got %d", got)
	}
	if got := LastRefreshed(); !got.Equal(refreshed) || got.Location() != time.UTC {
		t.Fatalf("expected UTC refresh time, got %s", got)
	}

	first, _ := lookup(RedemptionPointsKey)
	first[0] = '1'
	if again, _ := lookup(RedemptionPointsKey); string(again) != "300" {
		t.Fatalf("lookup leaked shared bytes: %s", again)
	}
	if _, ok := lookup(""); ok {
		t.Fatalf("blank key should not be stored")
	}
}
