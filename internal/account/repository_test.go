package account

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trade-governor/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRepository(t *testing.T, clock *fakeClock) *Repository {
	t.Helper()

	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	rollover := NewRollover(time.UTC, 0)
	rollover.Now = clock.Now

	repo, err := NewRepository(st, DefaultDefaults(), rollover, nil)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	return repo
}

func TestEnsureCreatesDefaultAccountOnce(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	repo := newTestRepository(t, clock)
	ctx := context.Background()

	first, err := repo.Ensure(ctx)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if first.Balance != 10000 || first.MaxDailyLoss != 300 || first.MaxTradesPerDay != 5 {
		t.Fatalf("unexpected defaults: %+v", first)
	}
	if first.LastResetDate != "2026-03-02" {
		t.Fatalf("expected reset date 2026-03-02, got %s", first.LastResetDate)
	}

	second, err := repo.Ensure(ctx)
	if err != nil {
		t.Fatalf("Ensure again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same account, got %d and %d", first.ID, second.ID)
	}
}

func TestGetMissingAccount(t *testing.T) {
	clock := &fakeClock{now: time.Now().UTC()}
	repo := newTestRepository(t, clock)

	if _, err := repo.Get(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.Primary(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before Ensure, got %v", err)
	}
}

func TestRolloverResetsCountersOncePerDay(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC)}
	repo := newTestRepository(t, clock)
	ctx := context.Background()

	var hookCalls int
	var previousLoss float64
	repo.SetRolloverHook(func(_ context.Context, previous Account, day string) {
		hookCalls++
		previousLoss = previous.CurrentDailyLoss
		if day != "2026-03-03" {
			t.Errorf("unexpected trading day %s", day)
		}
	})

	acct, err := repo.Ensure(ctx)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	acct.CurrentDailyLoss = 120
	acct.TradesTodayCount = 4
	if err := repo.Save(ctx, acct); err != nil {
		t.Fatalf("Save: %v", err)
	}

	clock.Advance(1 * time.Hour)
	same, err := repo.Get(ctx, acct.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if same.CurrentDailyLoss != 120 || same.TradesTodayCount != 4 {
		t.Fatalf("counters reset within the same day: %+v", same)
	}

	clock.Advance(2 * time.Hour)
	next, err := repo.Get(ctx, acct.ID)
	if err != nil {
		t.Fatalf("Get next day: %v", err)
	}
	if next.CurrentDailyLoss != 0 || next.TradesTodayCount != 0 {
		t.Fatalf("expected counters reset, got %+v", next)
	}
	if next.Balance != acct.Balance {
		t.Fatalf("rollover must not touch balance")
	}

	if _, err := repo.Get(ctx, acct.ID); err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if hookCalls != 1 {
		t.Fatalf("expected one rollover, got %d", hookCalls)
	}
	if previousLoss != 120 {
		t.Fatalf("hook should receive previous state, got loss %v", previousLoss)
	}
}

func TestTradingDayRespectsResetHourAndTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	r := NewRollover(loc, 6)

	cases := []struct {
		ts   time.Time
		want string
	}{
		{time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC), "2026-03-02"}, // 05:00 local on 3rd, before reset
		{time.Date(2026, 3, 2, 22, 30, 0, 0, time.UTC), "2026-03-03"},
		{time.Date(2026, 3, 3, 3, 0, 0, 0, time.UTC), "2026-03-03"},
	}
	for _, tc := range cases {
		if got := r.TradingDay(tc.ts); got != tc.want {
			t.Errorf("TradingDay(%s) = %s, want %s", tc.ts, got, tc.want)
		}
	}
}

func TestSetLockedAndResetDay(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	repo := newTestRepository(t, clock)
	ctx := context.Background()

	acct, err := repo.Ensure(ctx)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	locked, err := repo.SetLocked(ctx, acct.ID, true)
	if err != nil {
		t.Fatalf("SetLocked: %v", err)
	}
	if !locked.Locked || locked.LastViolationTime == nil {
		t.Fatalf("expected locked account with violation time, got %+v", locked)
	}

	unlocked, err := repo.SetLocked(ctx, acct.ID, false)
	if err != nil {
		t.Fatalf("SetLocked false: %v", err)
	}
	if unlocked.Locked {
		t.Fatalf("expected unlocked account")
	}

	acct = unlocked
	acct.CurrentDailyLoss = 50
	acct.TradesTodayCount = 2
	if err := repo.Save(ctx, acct); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reset, err := repo.ResetDay(ctx, acct.ID)
	if err != nil {
		t.Fatalf("ResetDay: %v", err)
	}
	if reset.CurrentDailyLoss != 0 || reset.TradesTodayCount != 0 {
		t.Fatalf("expected cleared counters, got %+v", reset)
	}
}

func TestLockSerializesPerAccount(t *testing.T) {
	clock := &fakeClock{now: time.Now().UTC()}
	repo := newTestRepository(t, clock)

	var (
		wg      sync.WaitGroup
		active  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := repo.Lock(1)
			defer unlock()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected exclusive access, saw %d concurrent holders", maxSeen)
	}
}
