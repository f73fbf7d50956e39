package risk

import "testing"

func TestRunwayDays(t *testing.T) {
	cases := []struct {
		balance, maxLoss, want float64
	}{
		{10000, 300, 33.3},
		{10000, 100, 100},
		{250, 100, 2.5},
		{1000, 0, 999.0},
		{1000, -5, 999.0},
		{4, 1, 4.0},
		{0, 300, 0},
	}
	for _, tc := range cases {
		if got := RunwayDays(tc.balance, tc.maxLoss); got != tc.want {
			t.Errorf("RunwayDays(%v, %v) = %v, want %v", tc.balance, tc.maxLoss, got, tc.want)
		}
	}
}

func TestRuinProbability(t *testing.T) {
	cases := []struct {
		name        string
		winRate, rr float64
		want        float64
	}{
		{"negative edge", 0.3, 1.0, 1.0},
		{"placeholder inputs", 0.5, 2.0, 0.17},
		{"large edge floors at zero", 0.9, 2.0, 0},
		{"sixty percent at two to one", 0.6, 2.0, 0},
		{"breakeven", 0.5, 1.0, 1.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RuinProbability(tc.winRate, tc.rr, 1.0); got != tc.want {
				t.Fatalf("RuinProbability(%v, %v) = %v, want %v", tc.winRate, tc.rr, got, tc.want)
			}
		})
	}
}

func TestRuinProbabilityIgnoresRiskPerTrade(t *testing.T) {
	a := RuinProbability(0.55, 1.5, 0.5)
	b := RuinProbability(0.55, 1.5, 5)
	if a != b {
		t.Fatalf("expected identical results, got %v and %v", a, b)
	}
}

func TestEdgeFromHistory(t *testing.T) {
	edge := EdgeFromHistory([]float64{10, -5}, 10, 0.5, 2.0)
	if edge.FromHistory || edge.WinRate != 0.5 || edge.RewardRisk != 2.0 {
		t.Fatalf("expected fallback edge, got %+v", edge)
	}

	pnl := []float64{20, 20, 20, 20, -10, -10, -10, -10, -10, -10}
	edge = EdgeFromHistory(pnl, 10, 0.5, 2.0)
	if !edge.FromHistory {
		t.Fatalf("expected edge from history")
	}
	if edge.WinRate != 0.4 || edge.RewardRisk != 2.0 || edge.Samples != 10 {
		t.Fatalf("unexpected edge %+v", edge)
	}
}
