package status

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"trade-governor/internal/account"
	"trade-governor/internal/exchange"
	"trade-governor/internal/journal"
	"trade-governor/internal/metrics"
	"trade-governor/internal/reconcile"
)

type stubSync struct {
	result reconcile.Result
	err    error
}

func (s stubSync) Sync(context.Context, int64) (reconcile.Result, error) {
	return s.result, s.err
}

type stubMood struct {
	mood journal.Mood
	err  error
}

func (s stubMood) MoodTrend(context.Context, int64) (journal.Mood, error) {
	return s.mood, s.err
}

type stubPnL []float64

func (s stubPnL) ClosedPnL(context.Context, int64) ([]float64, error) {
	return s, nil
}

func defaultSettings() Settings {
	return Settings{
		RiskPerTradePct:    1,
		FallbackWinRate:    0.5,
		FallbackRewardRisk: 2,
		MinClosedTrades:    10,
	}
}

func seededAccount() account.Account {
	return account.Account{ID: 1, Balance: 10000, MaxDailyLoss: 300, MaxTradesPerDay: 5}
}

func TestReadFallbackEdge(t *testing.T) {
	collector := metrics.NewCollector()
	svc, err := NewService(
		stubSync{result: reconcile.Result{Account: seededAccount()}},
		stubMood{mood: journal.Mood{Score: -0.25, Samples: 3}},
		stubPnL(nil),
		defaultSettings(), collector, nil,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	view, err := svc.Read(context.Background(), 1)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if view.RunwayDays != 33.3 {
		t.Fatalf("runway = %v, want 33.3", view.RunwayDays)
	}
	if view.RuinProbability != 0.17 {
		t.Fatalf("ruin = %v, want 0.17", view.RuinProbability)
	}
	if view.Edge.FromHistory {
		t.Fatalf("expected fallback edge")
	}
	if view.MoodScore != -0.25 || view.MoodSamples != 3 {
		t.Fatalf("unexpected mood %v/%d", view.MoodScore, view.MoodSamples)
	}
	if view.SyncWarning != "" {
		t.Fatalf("unexpected warning %q", view.SyncWarning)
	}

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "governor_account_runway_days 33.3") {
		t.Fatalf("runway gauge not exported")
	}
}

func TestReadEdgeFromHistory(t *testing.T) {
	history := stubPnL{20, -10, 20, -10, 20, -10, 20, -10, 20, 20}
	svc, err := NewService(stubSync{result: reconcile.Result{Account: seededAccount()}}, stubMood{}, history, defaultSettings(), nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	view, err := svc.Read(context.Background(), 1)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !view.Edge.FromHistory || view.Edge.WinRate != 0.6 || view.Edge.RewardRisk != 2 {
		t.Fatalf("unexpected edge %+v", view.Edge)
	}
	if view.RuinProbability != 0 {
		t.Fatalf("ruin = %v, want 0", view.RuinProbability)
	}
}

func TestReadSurfacesSyncWarning(t *testing.T) {
	warning := &exchange.SyncError{Op: "fetch_balance", Err: errors.New("timeout")}
	svc, err := NewService(
		stubSync{result: reconcile.Result{Account: seededAccount(), Warning: warning}},
		stubMood{}, stubPnL(nil), defaultSettings(), nil, nil,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	view, err := svc.Read(context.Background(), 1)
	if err != nil {
		t.Fatalf("warning must not fail the read: %v", err)
	}
	if view.SyncWarning == "" || view.Synced {
		t.Fatalf("expected sync warning, got %+v", view)
	}
	if view.Balance != 10000 {
		t.Fatalf("account must be returned unchanged")
	}
}

func TestReadPropagatesErrors(t *testing.T) {
	svc, _ := NewService(stubSync{err: account.ErrNotFound}, stubMood{}, stubPnL(nil), defaultSettings(), nil, nil)
	if _, err := svc.Read(context.Background(), 1); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	boom := errors.New("db down")
	svc, _ = NewService(stubSync{result: reconcile.Result{Account: seededAccount()}}, stubMood{err: boom}, stubPnL(nil), defaultSettings(), nil, nil)
	if _, err := svc.Read(context.Background(), 1); !errors.Is(err, boom) {
		t.Fatalf("expected mood error, got %v", err)
	}
}

func TestReadInfiniteRunway(t *testing.T) {
	acct := seededAccount()
	acct.MaxDailyLoss = 0
	svc, _ := NewService(stubSync{result: reconcile.Result{Account: acct}}, stubMood{}, stubPnL(nil), defaultSettings(), nil, nil)

	view, err := svc.Read(context.Background(), 1)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if view.RunwayDays != 999.0 {
		t.Fatalf("runway = %v, want 999", view.RunwayDays)
	}
}
