package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"trade-governor/internal/config"
	"trade-governor/internal/exchange"
	"trade-governor/internal/monitor"
	"trade-governor/internal/store"
)

type stubGateway struct {
	balances map[string]float64
}

func (s *stubGateway) Enabled() bool { return s.balances != nil }

func (s *stubGateway) MarkPrice(context.Context, string) float64 { return 100 }

func (s *stubGateway) PlaceOrder(context.Context, exchange.OrderRequest) (exchange.OrderResult, error) {
	return exchange.OrderResult{}, exchange.ErrNotConfigured
}

func (s *stubGateway) WalletBalances(context.Context) (map[string]float64, error) {
	return s.balances, nil
}

func newTestApp(t *testing.T, gw exchange.Gateway) (*App, *store.Store) {
	t.Helper()

	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	a, err := build(cfg, nil, st, gw)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return a, st
}

func TestStatusSyncsFirstBalance(t *testing.T) {
	a, _ := newTestApp(t, &stubGateway{balances: map[string]float64{"USD": 4}})

	view, err := a.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !view.Synced || view.Balance != 4 || view.CurrentDailyLoss != 0 {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.MaxDailyLoss != 1.0 || view.RunwayDays != 4.0 {
		t.Fatalf("expected adaptive limit 1.0 and runway 4.0, got %v/%v", view.MaxDailyLoss, view.RunwayDays)
	}
}

func TestLockUnlockAndResetDay(t *testing.T) {
	a, _ := newTestApp(t, &stubGateway{})
	ctx := context.Background()

	locked, err := a.SetLocked(ctx, true, "cli")
	if err != nil {
		t.Fatalf("SetLocked: %v", err)
	}
	if !locked.Locked || locked.LastViolationTime == nil {
		t.Fatalf("expected locked account with violation time, got %+v", locked)
	}

	unlocked, err := a.SetLocked(ctx, false, "cli")
	if err != nil {
		t.Fatalf("SetLocked: %v", err)
	}
	if unlocked.Locked {
		t.Fatalf("expected unlocked account")
	}

	events, err := a.monitor.ListEvents(ctx, monitor.EventLock, 10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 lock events, got %d", len(events))
	}

	reset, err := a.ResetDay(ctx)
	if err != nil {
		t.Fatalf("ResetDay: %v", err)
	}
	if reset.TradesTodayCount != 0 || reset.CurrentDailyLoss != 0 {
		t.Fatalf("unexpected counters %+v", reset)
	}
}

func TestRolloverHookAudits(t *testing.T) {
	a, st := newTestApp(t, &stubGateway{})
	ctx := context.Background()

	acct, err := a.accounts.Ensure(ctx)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if _, err := st.DB().ExecContext(ctx,
		`UPDATE accounts SET last_reset_date = ?, trades_today_count = 3, current_daily_loss = 42 WHERE id = ?`,
		"2000-01-01", acct.ID); err != nil {
		t.Fatalf("seed: %v", err)
	}

	view, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if view.TradesTodayCount != 0 || view.CurrentDailyLoss != 0 {
		t.Fatalf("expected counters reset, got %+v", view.Account)
	}

	events, err := a.monitor.ListEvents(ctx, monitor.EventRollover, 10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one rollover event, got %d", len(events))
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	a, _ := newTestApp(t, &stubGateway{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}
