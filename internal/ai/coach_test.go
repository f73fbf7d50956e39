package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"trade-governor/internal/config"
)

type mockChat struct {
	reply   string
	err     error
	prompts []string
}

func (m *mockChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.prompts = append(m.prompts, req.Messages[0].Content)
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: m.reply}},
		},
	}, nil
}

func newMockCoach(chat *mockChat) *Coach {
	c := NewCoach(config.OpenAIConfig{Model: "test-model"}, nil)
	c.sdk = chat
	return c
}

func TestAnalyzeOfflineWithoutKey(t *testing.T) {
	c := NewCoach(config.OpenAIConfig{Model: "m"}, nil)
	if c.Enabled() {
		t.Fatalf("coach without key must be offline")
	}

	res := c.Analyze(context.Background(), "anything", AccountContext{})
	if res.Source != SourceOffline {
		t.Fatalf("expected offline source, got %s", res.Source)
	}
	if res.Analysis.Feedback != "I am offline (API Key Missing)." || res.Analysis.EmotionalTags[0] != "no_ai_key" {
		t.Fatalf("unexpected offline analysis %+v", res.Analysis)
	}
}

func TestAnalyzeParsesFencedJSON(t *testing.T) {
	chat := &mockChat{reply: "```json\n{\"sentiment_score\": -2.5, \"emotional_tags\": [\"revenge\"], \"feedback\": \"Step away.\"}\n```"}
	c := newMockCoach(chat)

	res := c.Analyze(context.Background(), "I want it back now", AccountContext{Balance: 950, DailyLoss: 50, HasStats: true})
	if res.Source != SourceAI || res.Err != nil {
		t.Fatalf("expected ai source, got %+v", res)
	}
	if res.Analysis.SentimentScore != -1 {
		t.Fatalf("expected clamped score -1, got %v", res.Analysis.SentimentScore)
	}
	if res.Analysis.Feedback != "Step away." {
		t.Fatalf("unexpected feedback %q", res.Analysis.Feedback)
	}
	if !strings.Contains(chat.prompts[0], "Stats: Bal $950, DL $50") {
		t.Fatalf("prompt missing account stats: %s", chat.prompts[0])
	}
}

func TestAnalyzeFallsBackOnError(t *testing.T) {
	cases := []struct {
		content string
		score   float64
		tag     string
	}{
		{"I am scared of another loss", -0.5, "fear"},
		{"Easy profit today", 0.5, "greed"},
		{"Waiting for the open", 0, "neutral"},
	}

	for _, tc := range cases {
		c := newMockCoach(&mockChat{err: errors.New("429 quota")})
		res := c.Analyze(context.Background(), tc.content, AccountContext{})
		if res.Source != SourceFallback || res.Err == nil {
			t.Fatalf("expected fallback for %q, got %+v", tc.content, res)
		}
		if res.Analysis.SentimentScore != tc.score || res.Analysis.EmotionalTags[0] != tc.tag {
			t.Fatalf("unexpected analysis for %q: %+v", tc.content, res.Analysis)
		}
		if !strings.HasPrefix(res.Analysis.Feedback, connectivityNotice) {
			t.Fatalf("fallback feedback missing notice: %q", res.Analysis.Feedback)
		}
	}
}

func TestAnalyzeFallsBackOnGarbage(t *testing.T) {
	c := newMockCoach(&mockChat{reply: "sorry, no json here"})
	res := c.Analyze(context.Background(), "lost again", AccountContext{})
	if res.Source != SourceFallback {
		t.Fatalf("expected fallback, got %s", res.Source)
	}
}

func TestHeuristicFearTakesPrecedence(t *testing.T) {
	got := Heuristic("won big but afraid to lose it")
	if got.EmotionalTags[0] != "fear" {
		t.Fatalf("expected fear bucket, got %v", got.EmotionalTags)
	}
}

func TestParseAnalysisDefaultsFeedback(t *testing.T) {
	a, err := parseAnalysis(`{"sentiment_score": 0.2}`)
	if err != nil {
		t.Fatalf("parseAnalysis: %v", err)
	}
	if a.Feedback != "No feedback generated." || a.EmotionalTags == nil {
		t.Fatalf("unexpected defaults %+v", a)
	}
}
