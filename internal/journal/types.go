package journal

import "time"

// Entry 为一条交易日记及其情绪分析。
type Entry struct {
	ID             int64     `json:"id"`
	AccountID      int64     `json:"account_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	SentimentScore float64   `json:"sentiment_score"`
	EmotionalTags  []string  `json:"emotional_tags"`
	AIFeedback     string    `json:"ai_feedback"`
	Source         string    `json:"source"`
}

// Mood 为近期情绪的指数移动平均。
type Mood struct {
	Score   float64 `json:"score"`
	Samples int     `json:"samples"`
	Ready   bool    `json:"ready"`
}
