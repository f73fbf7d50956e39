package ai

import "strings"

const connectivityNotice = "I'm having trouble connecting to the neural network (Quota), but I'm still here. "

var (
	fearWords  = []string{"fear", "scared", "afraid", "loss", "lost", "break"}
	greedWords = []string{"greed", "win", "won", "profit", "easy"}
)

// Heuristic 在模型不可用时按关键词给出情绪判断，恐惧优先于贪婪。
func Heuristic(content string) Analysis {
	lower := strings.ToLower(content)

	switch {
	case containsAny(lower, fearWords):
		return Analysis{
			SentimentScore: -0.5,
			EmotionalTags:  []string{"fear", "anxiety"},
			Feedback:       connectivityNotice + "It sounds like you're under pressure. Remember: stick to your plan. Stop trading if you are emotional.",
		}
	case containsAny(lower, greedWords):
		return Analysis{
			SentimentScore: 0.5,
			EmotionalTags:  []string{"greed", "overconfidence"},
			Feedback:       connectivityNotice + "Great result, but stay humble. Don't give it back. Lock in your profits.",
		}
	default:
		return Analysis{
			SentimentScore: 0,
			EmotionalTags:  []string{"neutral"},
			Feedback:       connectivityNotice + "Keep journaling. Tracking your state is the first step to mastery. What's your next move?",
		}
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
