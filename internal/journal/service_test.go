package journal

import (
	"context"
	"errors"
	"math"
	"testing"

	"trade-governor/internal/account"
	"trade-governor/internal/ai"
	"trade-governor/internal/config"
	"trade-governor/internal/store"
)

type scriptedCoach struct {
	results []ai.Result
	calls   int
	last    ai.AccountContext
}

func (c *scriptedCoach) Analyze(_ context.Context, _ string, acct ai.AccountContext) ai.Result {
	c.last = acct
	res := c.results[c.calls%len(c.results)]
	c.calls++
	return res
}

func newTestService(t *testing.T, coach analyzer) *Service {
	t.Helper()
	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(st, coach, config.JournalConfig{ListLimit: 50, MoodWindow: 20, MoodEMAPeriod: 3}, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func aiResult(score float64) ai.Result {
	return ai.Result{
		Analysis: ai.Analysis{SentimentScore: score, EmotionalTags: []string{"calm"}, Feedback: "ok"},
		Source:   ai.SourceAI,
	}
}

func TestCreateAndList(t *testing.T) {
	coach := &scriptedCoach{results: []ai.Result{aiResult(0.4)}}
	svc := newTestService(t, coach)
	ctx := context.Background()
	acct := account.Account{ID: 1, Balance: 950, CurrentDailyLoss: 50}

	entry, err := svc.Create(ctx, acct, "  sticking to the plan  ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if entry.ID == 0 || entry.Content != "sticking to the plan" || entry.Source != "ai" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if coach.last.Balance != 950 || coach.last.DailyLoss != 50 {
		t.Fatalf("coach did not receive account context: %+v", coach.last)
	}

	if _, err := svc.Create(ctx, acct, "second"); err != nil {
		t.Fatalf("Create second: %v", err)
	}

	entries, err := svc.List(ctx, 1, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Content != "second" {
		t.Fatalf("expected newest first, got %+v", entries)
	}
	if entries[1].EmotionalTags[0] != "calm" {
		t.Fatalf("tags not persisted: %+v", entries[1])
	}
}

func TestCreateRejectsEmptyContent(t *testing.T) {
	svc := newTestService(t, &scriptedCoach{results: []ai.Result{aiResult(0)}})
	if _, err := svc.Create(context.Background(), account.Account{ID: 1}, "   "); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestMoodTrendSkipsOfflineEntries(t *testing.T) {
	coach := &scriptedCoach{results: []ai.Result{
		aiResult(-0.5),
		{Analysis: ai.Analysis{SentimentScore: 0, EmotionalTags: []string{"no_ai_key"}}, Source: ai.SourceOffline},
		aiResult(-0.5),
		aiResult(0.4),
	}}
	svc := newTestService(t, coach)
	ctx := context.Background()
	acct := account.Account{ID: 1}

	for i := 0; i < 4; i++ {
		if _, err := svc.Create(ctx, acct, "entry"); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	mood, err := svc.MoodTrend(ctx, 1)
	if err != nil {
		t.Fatalf("MoodTrend: %v", err)
	}
	if mood.Samples != 3 || !mood.Ready {
		t.Fatalf("unexpected mood %+v", mood)
	}
	// Seed is the mean of the first period values.
	want := (-0.5 - 0.5 + 0.4) / 3
	if math.Abs(mood.Score-want) > 1e-9 {
		t.Fatalf("mood score = %v, want %v", mood.Score, want)
	}
}

func TestMoodFromScoresShortSeries(t *testing.T) {
	mood := moodFromScores([]float64{0.5, -0.1}, 5)
	if mood.Ready {
		t.Fatalf("short series must not be ready")
	}
	if math.Abs(mood.Score-0.2) > 1e-9 {
		t.Fatalf("expected mean 0.2, got %v", mood.Score)
	}

	if empty := moodFromScores(nil, 5); empty.Samples != 0 || empty.Score != 0 {
		t.Fatalf("unexpected empty mood %+v", empty)
	}
}

func TestMoodFromScoresTracksRecentValues(t *testing.T) {
	scores := []float64{0, 0, 0, -1, -1, -1, -1}
	mood := moodFromScores(scores, 3)
	if !mood.Ready || mood.Score >= -0.5 {
		t.Fatalf("expected mood to follow recent negative entries, got %+v", mood)
	}
}
