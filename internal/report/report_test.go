package report

import (
	"bytes"
	"math"
	"testing"
	"time"

	"trade-governor/internal/account"
	"trade-governor/internal/trade"
)

func closedTrade(id int64, pnl, r float64) trade.Trade {
	exit := 100.0
	return trade.Trade{
		ID:         id,
		Symbol:     "BTCUSDT",
		Side:       trade.SideLong,
		Quantity:   1,
		EntryPrice: 100,
		ExitPrice:  &exit,
		PnL:        &pnl,
		RMultiple:  &r,
		Status:     trade.StatusClosed,
		EntryTime:  time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
	}
}

func TestStats(t *testing.T) {
	trades := []trade.Trade{
		closedTrade(1, 30, 3),
		closedTrade(2, -10, -1),
		closedTrade(3, -20, -2),
		closedTrade(4, 10, 1),
		{ID: 5, Symbol: "ETHUSD", Side: trade.SideShort, Status: trade.StatusOpen},
	}

	s := Stats(trades)
	if s.TotalTrades != 5 || s.OpenTrades != 1 || s.ClosedTrades != 4 {
		t.Fatalf("unexpected counts %+v", s)
	}
	if s.Wins != 2 || s.Losses != 2 || s.WinRate != 0.5 {
		t.Fatalf("unexpected win stats %+v", s)
	}
	if s.TotalPnL != 10 {
		t.Fatalf("expected total pnl 10, got %v", s.TotalPnL)
	}
	if s.AverageWin != 20 || s.AverageLoss != 15 {
		t.Fatalf("unexpected averages %+v", s)
	}
	if math.Abs(s.RewardRisk-20.0/15.0) > 1e-9 {
		t.Fatalf("unexpected reward risk %v", s.RewardRisk)
	}
	// curve: 30, 20, 0, 10 -> drawdown 30 from the peak.
	if s.MaxDrawdown != 30 {
		t.Fatalf("expected drawdown 30, got %v", s.MaxDrawdown)
	}
	if s.ConsecutiveMax != 2 || s.LargestLoss != -20 || s.LargestWin != 30 {
		t.Fatalf("unexpected extremes %+v", s)
	}
	if s.AverageR != 0.25 {
		t.Fatalf("expected average r 0.25, got %v", s.AverageR)
	}
}

func TestStatsFollowsExitOrder(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	exitAt := func(tr trade.Trade, minutes int) trade.Trade {
		ts := base.Add(time.Duration(minutes) * time.Minute)
		tr.ExitTime = &ts
		return tr
	}

	// 按入场顺序给出，平仓顺序为 2, 3, 1。
	trades := []trade.Trade{
		exitAt(closedTrade(1, -10, -1), 30),
		exitAt(closedTrade(2, 40, 4), 10),
		exitAt(closedTrade(3, -10, -1), 20),
	}

	s := Stats(trades)
	// exit-ordered curve: 40, 30, 20 -> drawdown 20; entry order would give 10.
	if s.MaxDrawdown != 20 {
		t.Fatalf("expected drawdown 20, got %v", s.MaxDrawdown)
	}
	if s.ConsecutiveMax != 2 {
		t.Fatalf("expected two consecutive losses, got %d", s.ConsecutiveMax)
	}
	if trades[0].ID != 1 {
		t.Fatalf("input slice must not be reordered")
	}
}

func TestStatsEmpty(t *testing.T) {
	s := Stats(nil)
	if s.TotalTrades != 0 || s.WinRate != 0 || s.MaxDrawdown != 0 {
		t.Fatalf("unexpected empty stats %+v", s)
	}
}

func TestRenderPDF(t *testing.T) {
	acct := account.Account{ID: 1, Balance: 4, CurrentDailyLoss: 0.5}
	trades := []trade.Trade{closedTrade(1, 2.5, 1)}

	var buf bytes.Buffer
	if err := RenderPDF(&buf, acct, trades); err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF")
	}
}
