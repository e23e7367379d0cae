package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/martabak-juara/loyalty-club/internal/db/dbtest"
	"github.com/martabak-juara/loyalty-club/internal/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *events.Recorder) {
	t.Helper()
	rec := &events.Recorder{}
	return NewService(dbtest.Open(t), rec), rec
}

func TestRecordUsageInsufficientStock(t *testing.T) {
	svc, rec := newService(t)
	ctx := context.Background()
	item, err := svc.Create(ctx, ItemInput{Name: "Tepung", Stock: decimal.NewFromInt(5), Unit: "kg"})
	require.NoError(t, err)

	_, err = svc.RecordUsage(ctx, item.ID, decimal.NewFromInt(6))
	var short *InsufficientStockError
	require.True(t, errors.As(err, &short), "expected InsufficientStockError, got %v", err)
	assert.Equal(t, "insufficient stock for Tepung: only 5 kg left", err.Error())

	stored, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, stored.Stock.Equal(decimal.NewFromInt(5)), "stock changed to %s", stored.Stock)

	usage, err := svc.RecentUsage(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, usage)
	assert.Empty(t, rec.Subjects())
}

func TestRecordUsageDecrementsAndLogs(t *testing.T) {
	svc, rec := newService(t)
	ctx := context.Background()
	item, err := svc.Create(ctx, ItemInput{Name: "Keju", Stock: decimal.RequireFromString("12.5"), Unit: "blok"})
	require.NoError(t, err)

	usage, err := svc.RecordUsage(ctx, item.ID, decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	assert.Equal(t, "Keju", usage.ItemName)
	assert.Equal(t, "blok", usage.Unit)

	stored, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, stored.Stock.Equal(decimal.NewFromInt(10)), "stock is %s", stored.Stock)
	assert.True(t, LowStock(stored.Stock))
	assert.Equal(t, []string{events.SubjectInventoryUsage}, rec.Subjects())

	_, err = svc.RecordUsage(ctx, item.ID, decimal.NewFromInt(10))
	require.NoError(t, err, "using exactly the remaining stock is allowed")
}

func TestRecordUsageValidation(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.RecordUsage(context.Background(), 99, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrItemNotFound)
	_, err = svc.RecordUsage(context.Background(), 99, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestRecentUsageNewestFirst(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	item, err := svc.Create(ctx, ItemInput{Name: "Telur", Stock: decimal.NewFromInt(100), Unit: "pcs"})
	require.NoError(t, err)

	var last uint64
	for i := 1; i <= 7; i++ {
		usage, errUse := svc.RecordUsage(ctx, item.ID, decimal.NewFromInt(int64(i)))
		require.NoError(t, errUse)
		last = usage.ID
	}

	recent, err := svc.RecentUsage(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, DefaultRecentUsage)
	assert.Equal(t, last, recent[0].ID)
}

func TestItemCRUD(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, ItemInput{Name: " ", Stock: decimal.NewFromInt(1), Unit: "kg"})
	assert.ErrorIs(t, err, ErrInvalidItem)
	_, err = svc.Create(ctx, ItemInput{Name: "Gula", Stock: decimal.NewFromInt(-1), Unit: "kg"})
	assert.ErrorIs(t, err, ErrInvalidItem)

	gula, err := svc.Create(ctx, ItemInput{Name: "Gula", Stock: decimal.NewFromInt(20), Unit: "kg"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, ItemInput{Name: "Coklat", Stock: decimal.NewFromInt(3), Unit: "kg"})
	require.NoError(t, err)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Coklat", items[0].Name)

	updated, err := svc.Update(ctx, gula.ID, ItemInput{Name: "Gula Pasir", Stock: decimal.NewFromInt(8), Unit: "kg"})
	require.NoError(t, err)
	assert.Equal(t, "Gula Pasir", updated.Name)

	restocked, err := svc.Restock(ctx, gula.ID, decimal.NewFromInt(4))
	require.NoError(t, err)
	assert.True(t, restocked.Stock.Equal(decimal.NewFromInt(12)))

	require.NoError(t, svc.Delete(ctx, gula.ID))
	assert.ErrorIs(t, svc.Delete(ctx, gula.ID), ErrItemNotFound)
	_, err = svc.Update(ctx, gula.ID, ItemInput{Name: "x", Stock: decimal.Zero, Unit: "kg"})
	assert.ErrorIs(t, err, ErrItemNotFound)
}
