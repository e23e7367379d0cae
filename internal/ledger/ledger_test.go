package ledger

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/martabak-juara/loyalty-club/internal/db/dbtest"
	"github.com/martabak-juara/loyalty-club/internal/events"
	"github.com/martabak-juara/loyalty-club/internal/members"
	"github.com/martabak-juara/loyalty-club/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	svc    *Service
	events *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	rec := &events.Recorder{}
	svc := NewService(conn, rec)
	var mu sync.Mutex
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	return &fixture{db: conn, svc: svc, events: rec}
}

func (f *fixture) seedMember(t *testing.T, id, name string, points int64) *models.Member {
	t.Helper()
	m := &models.Member{ID: id, Name: name, Email: id + "@example.com", Code: members.CodeFromID(id), Points: points}
	require.NoError(t, f.db.Create(m).Error)
	return m
}

func (f *fixture) balance(t *testing.T, id string) int64 {
	t.Helper()
	var m models.Member
	require.NoError(t, f.db.First(&m, "id = ?", id).Error)
	return m.Points
}

func (f *fixture) status(t *testing.T, id string) string {
	t.Helper()
	var r models.Redemption
	require.NoError(t, f.db.First(&r, "id = ?", id).Error)
	return r.Status
}

func TestAddPoints(t *testing.T) {
	t.Run("credits and journals", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "a1b2c3d4", "Sari", 0)

		for i := 0; i < 3; i++ {
			_, err := f.svc.AddPoints(context.Background(), "a1b2c3d4", 5)
			require.NoError(t, err)
		}
		assert.Equal(t, int64(15), f.balance(t, "a1b2c3d4"))

		entries, err := f.svc.Entries(context.Background(), "a1b2c3d4", 0)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, int64(15), entries[0].BalanceAfter)
		assert.Equal(t, models.PointReasonPurchase, entries[0].Reason)
		assert.Equal(t, []string{events.SubjectPointsAdded, events.SubjectPointsAdded, events.SubjectPointsAdded}, f.events.Subjects())
	})

	t.Run("returns new balance", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "b1", "Budi", 1_000_000)
		balance, err := f.svc.AddPoints(context.Background(), "b1", 7)
		require.NoError(t, err)
		assert.Equal(t, int64(1_000_007), balance)
	})

	t.Run("rejects non-positive delta", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "c1", "Citra", 10)
		for _, delta := range []int64{0, -5} {
			_, err := f.svc.AddPoints(context.Background(), "c1", delta)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		}
		assert.Equal(t, int64(10), f.balance(t, "c1"))
	})

	t.Run("unknown member", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AddPoints(context.Background(), "ghost", 5)
		assert.ErrorIs(t, err, ErrMemberNotFound)
		assert.Empty(t, f.events.Subjects())
	})

	t.Run("records acting admin", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "d1", "Dewi", 0)
		_, err := f.svc.AddPoints(WithActor(context.Background(), 9), "d1", 5)
		require.NoError(t, err)
		entries, err := f.svc.Entries(context.Background(), "d1", 1)
		require.NoError(t, err)
		require.NotNil(t, entries[0].RecordedBy)
		assert.Equal(t, uint64(9), *entries[0].RecordedBy)
	})
}

func TestCreateRedemptionDoesNotCheckBalance(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, "m1", "Sari", 0)

	r, err := f.svc.CreateRedemption(context.Background(), "m1", 300)
	require.NoError(t, err)
	assert.Equal(t, models.RedemptionPending, r.Status)
	assert.False(t, r.RequestedAt.IsZero())
	assert.Nil(t, r.ProcessedAt)
	assert.Equal(t, int64(0), f.balance(t, "m1"))

	_, err = f.svc.CreateRedemption(context.Background(), "m1", 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.svc.CreateRedemption(context.Background(), "ghost", 10)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestRequestRedemptionEligibility(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, "m1", "Sari", 300)

	_, err := f.svc.RequestRedemption(context.Background(), "m1", 301)
	assert.ErrorIs(t, err, ErrNotEligible)

	_, err = f.svc.RequestRedemption(context.Background(), "m1", 300)
	require.NoError(t, err)

	_, err = f.svc.RequestRedemption(context.Background(), "m1", 300)
	assert.ErrorIs(t, err, ErrNotEligible, "second request while one is pending")

	pending, err := f.svc.HasPending(context.Background(), "m1")
	require.NoError(t, err)
	assert.True(t, pending)
}

func TestApprove(t *testing.T) {
	t.Run("insufficient balance leaves state unchanged", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "m1", "Sari", 100)
		r, err := f.svc.CreateRedemption(context.Background(), "m1", 300)
		require.NoError(t, err)

		_, err = f.svc.Approve(context.Background(), r.ID)
		assert.ErrorIs(t, err, ErrInsufficientPoints)
		assert.Equal(t, int64(100), f.balance(t, "m1"))
		assert.Equal(t, models.RedemptionPending, f.status(t, r.ID))
	})

	t.Run("second approve fails and debits once", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "m1", "Sari", 700)
		r, err := f.svc.CreateRedemption(context.Background(), "m1", 300)
		require.NoError(t, err)

		approved, err := f.svc.Approve(context.Background(), r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RedemptionApproved, approved.Status)
		require.NotNil(t, approved.ProcessedAt)

		_, err = f.svc.Approve(context.Background(), r.ID)
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
		_, err = f.svc.Reject(context.Background(), r.ID)
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
		assert.Equal(t, int64(400), f.balance(t, "m1"))
	})

	t.Run("unknown redemption", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Approve(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrRedemptionNotFound)
		_, err = f.svc.Reject(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrRedemptionNotFound)
	})

	t.Run("member removed after request", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "m1", "Sari", 500)
		r, err := f.svc.CreateRedemption(context.Background(), "m1", 300)
		require.NoError(t, err)
		require.NoError(t, f.db.Delete(&models.Member{}, "id = ?", "m1").Error)

		_, err = f.svc.Approve(context.Background(), r.ID)
		assert.ErrorIs(t, err, ErrMemberNotFound)
		assert.Equal(t, models.RedemptionPending, f.status(t, r.ID))
	})

	t.Run("writes a debit entry", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "m1", "Sari", 350)
		r, err := f.svc.CreateRedemption(context.Background(), "m1", 300)
		require.NoError(t, err)
		_, err = f.svc.Approve(WithActor(context.Background(), 3), r.ID)
		require.NoError(t, err)

		entries, err := f.svc.Entries(context.Background(), "m1", 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(-300), entries[0].Delta)
		assert.Equal(t, int64(50), entries[0].BalanceAfter)
		assert.Equal(t, r.ID, entries[0].ReferenceID)

		stored, err := f.svc.Get(context.Background(), r.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.ProcessedBy)
		assert.Equal(t, uint64(3), *stored.ProcessedBy)
	})
}

func TestRejectNeverChangesBalance(t *testing.T) {
	for _, amount := range []int64{1, 300, 5_000} {
		f := newFixture(t)
		f.seedMember(t, "m1", "Sari", 300)
		r, err := f.svc.CreateRedemption(context.Background(), "m1", amount)
		require.NoError(t, err)

		rejected, err := f.svc.Reject(context.Background(), r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RedemptionRejected, rejected.Status)
		assert.Equal(t, int64(300), f.balance(t, "m1"))
	}
}

func TestSnapshotIsNotResynced(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, "m1", "Sari", 300)
	r, err := f.svc.CreateRedemption(context.Background(), "m1", 300)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.Member{}).Where("id = ?", "m1").Update("name", "Sari Wulandari").Error)
	_, err = f.svc.Approve(context.Background(), r.ID)
	require.NoError(t, err)

	stored, err := f.svc.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sari", stored.MemberName)
	assert.Equal(t, members.CodeFromID("m1"), stored.MemberCode)
}

func TestConcurrentApprovalsDebitOnce(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, "m1", "Sari", 1_000)
	r, err := f.svc.CreateRedemption(context.Background(), "m1", 300)
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		processed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errApprove := f.svc.Approve(context.Background(), r.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errApprove == nil:
				successes++
			case errors.Is(errApprove, ErrAlreadyProcessed):
				processed++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, processed)
	assert.Equal(t, int64(700), f.balance(t, "m1"))
}

func TestMarkProcessedRefusesStaleRedemption(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, "m1", "Sari", 1_000)
	r, err := f.svc.CreateRedemption(context.Background(), "m1", 300)
	require.NoError(t, err)

	stale := *r
	_, err = f.svc.Reject(context.Background(), r.ID)
	require.NoError(t, err)

	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	errMark := markProcessed(f.db, &stale, models.RedemptionApproved, now, nil)
	assert.ErrorIs(t, errMark, ErrAlreadyProcessed)
	assert.Equal(t, models.RedemptionPending, stale.Status)
	assert.Equal(t, models.RedemptionRejected, f.status(t, r.ID))
}

func TestDebitPointsRefusesShortBalance(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, "m1", "Sari", 200)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	assert.ErrorIs(t, debitPoints(f.db, "m1", 300, now), ErrInsufficientPoints)
	assert.Equal(t, int64(200), f.balance(t, "m1"))

	require.NoError(t, debitPoints(f.db, "m1", 200, now))
	assert.Equal(t, int64(0), f.balance(t, "m1"))
	assert.ErrorIs(t, debitPoints(f.db, "m1", 1, now), ErrInsufficientPoints)
}

func TestBalanceNeverNegative(t *testing.T) {
	f := newFixture(t)
	ids := []string{"m1", "m2", "m3"}
	for _, id := range ids {
		f.seedMember(t, id, "Member "+id, 0)
	}
	rng := rand.New(rand.NewSource(42))
	var open []string

	for step := 0; step < 200; step++ {
		id := ids[rng.Intn(len(ids))]
		switch rng.Intn(4) {
		case 0:
			_, err := f.svc.AddPoints(context.Background(), id, int64(rng.Intn(50)+1))
			require.NoError(t, err)
		case 1:
			r, err := f.svc.CreateRedemption(context.Background(), id, int64(rng.Intn(120)+1))
			require.NoError(t, err)
			open = append(open, r.ID)
		case 2:
			if len(open) > 0 {
				_, _ = f.svc.Approve(context.Background(), open[rng.Intn(len(open))])
			}
		case 3:
			if len(open) > 0 {
				_, _ = f.svc.Reject(context.Background(), open[rng.Intn(len(open))])
			}
		}
		for _, memberID := range ids {
			require.GreaterOrEqual(t, f.balance(t, memberID), int64(0))
		}
	}

	for _, memberID := range ids {
		entries, err := f.svc.Entries(context.Background(), memberID, 500)
		require.NoError(t, err)
		var sum int64
		for _, e := range entries {
			sum += e.Delta
		}
		assert.Equal(t, f.balance(t, memberID), sum, "journal must add up to the balance of %s", memberID)
	}
}

func TestRedemptionScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedMember(t, "m1", "Sari", 0)

	for i := 0; i < 3; i++ {
		_, err := f.svc.AddPoints(ctx, "m1", 5)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(15), f.balance(t, "m1"))

	_, err := f.svc.RequestRedemption(ctx, "m1", 300)
	assert.ErrorIs(t, err, ErrNotEligible)

	for f.balance(t, "m1") < 300 {
		_, err = f.svc.AddPoints(ctx, "m1", 5)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(300), f.balance(t, "m1"))

	r, err := f.svc.RequestRedemption(ctx, "m1", 300)
	require.NoError(t, err)
	assert.Equal(t, models.RedemptionPending, r.Status)
	assert.Equal(t, int64(300), f.balance(t, "m1"))

	_, err = f.svc.Approve(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.balance(t, "m1"))
	assert.Equal(t, models.RedemptionApproved, f.status(t, r.ID))

	_, err = f.svc.Approve(ctx, r.ID)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, int64(0), f.balance(t, "m1"))
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedMember(t, "m1", "Sari", 1_000)
	f.seedMember(t, "m2", "Budi", 1_000)

	first, err := f.svc.CreateRedemption(ctx, "m1", 100)
	require.NoError(t, err)
	second, err := f.svc.CreateRedemption(ctx, "m2", 100)
	require.NoError(t, err)
	third, err := f.svc.CreateRedemption(ctx, "m1", 100)
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, second.ID)
	require.NoError(t, err)

	pending, err := f.svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, third.ID, pending[1].ID)

	all, total, err := f.svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, third.ID, all[0].ID)

	rejected, total, err := f.svc.List(ctx, ListFilter{Status: "REJECTED"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, second.ID, rejected[0].ID)

	mine, err := f.svc.ListForMember(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, third.ID, mine[0].ID)
}
