package ai

import (
	"bytes"
	"fmt"
	"text/template"
)

const coachTemplate = `Act as a Trading Coach.{{ if .HasStats }} Stats: Bal ${{ printf "%.0f" .Balance }}, DL ${{ printf "%.0f" .DailyLoss }}{{ end }}
User: "{{ .Content }}"
Reply JSON: { "sentiment_score": float between -1 and 1, "emotional_tags": [str], "feedback": "short supportive tip" }
`

var tmpl = template.Must(template.New("coach").Parse(coachTemplate))

// AccountContext 为提示词附带的账户概况。
type AccountContext struct {
	Balance   float64
	DailyLoss float64
	HasStats  bool
}

type promptContext struct {
	AccountContext
	Content string
}

// BuildPrompt 渲染教练提示词。
func BuildPrompt(content string, acct AccountContext) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, promptContext{AccountContext: acct, Content: content}); err != nil {
		return "", fmt.Errorf("渲染提示词失败: %w", err)
	}
	return buf.String(), nil
}
