package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"trade-governor/internal/config"
)

// Source 标识分析结果来源。
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
	SourceOffline  Source = "offline"
)

const (
	offlineFeedback = "I am offline (API Key Missing)."
	emptyFeedback   = "No feedback generated."
)

// Analysis 为日记情绪分析。
type Analysis struct {
	SentimentScore float64  `json:"sentiment_score"`
	EmotionalTags  []string `json:"emotional_tags"`
	Feedback       string   `json:"feedback"`
}

// Result 包含分析、来源及回退原因。Analyze 从不返回错误，Err 仅用于记录。
type Result struct {
	Analysis Analysis
	Source   Source
	Err      error
}

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Coach 调用兼容 OpenAI 协议的大模型分析交易日记。
type Coach struct {
	cfg    config.OpenAIConfig
	logger *zap.Logger
	sdk    chatClient
}

// NewCoach 创建教练；未配置 api_key 时进入离线模式。
func NewCoach(cfg config.OpenAIConfig, logger *zap.Logger) *Coach {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := &Coach{cfg: cfg, logger: logger}
	if cfg.APIKey == "" {
		logger.Warn("未配置大模型 api_key，日记分析将使用离线模式")
		return c
	}

	sdkConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		sdkConfig.BaseURL = cfg.BaseURL
	}
	sdkConfig.HTTPClient = &http.Client{
		Timeout: cfg.Timeout + 5*time.Second,
	}
	c.sdk = openai.NewClientWithConfig(sdkConfig)

	return c
}

// Enabled 判断是否可调用模型。
func (c *Coach) Enabled() bool {
	return c.sdk != nil
}

// Analyze 分析日记内容，模型失败时回退到本地关键词规则。
func (c *Coach) Analyze(ctx context.Context, content string, acct AccountContext) Result {
	if c.sdk == nil {
		return Result{
			Analysis: Analysis{
				SentimentScore: 0,
				EmotionalTags:  []string{"no_ai_key"},
				Feedback:       offlineFeedback,
			},
			Source: SourceOffline,
		}
	}

	analysis, err := c.complete(ctx, content, acct)
	if err != nil {
		c.logger.Warn("大模型分析失败，使用本地规则", zap.Error(err))
		return Result{
			Analysis: Heuristic(content),
			Source:   SourceFallback,
			Err:      err,
		}
	}

	return Result{Analysis: analysis, Source: SourceAI}
}

func (c *Coach) complete(ctx context.Context, content string, acct AccountContext) (Analysis, error) {
	if c.cfg.Model == "" {
		return Analysis{}, errors.New("ai: model 不能为空")
	}

	prompt, err := BuildPrompt(content, acct)
	if err != nil {
		return Analysis{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	response, err := c.sdk.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("ai: 调用大模型失败: %w", err)
	}

	if len(response.Choices) == 0 {
		return Analysis{}, errors.New("ai: 大模型返回结果为空")
	}

	rawContent := strings.TrimSpace(response.Choices[0].Message.Content)
	if rawContent == "" {
		return Analysis{}, errors.New("ai: 大模型返回内容为空")
	}

	analysis, err := parseAnalysis(rawContent)
	if err != nil {
		c.logger.Debug("解析教练回复失败", zap.String("raw_content", rawContent), zap.Error(err))
		return Analysis{}, err
	}

	c.logger.Info("日记分析完成",
		zap.Float64("sentiment_score", analysis.SentimentScore),
		zap.Strings("emotional_tags", analysis.EmotionalTags),
	)

	return analysis, nil
}

func parseAnalysis(content string) (Analysis, error) {
	payload, err := extractJSON(content)
	if err != nil {
		return Analysis{}, err
	}

	var raw struct {
		SentimentScore float64  `json:"sentiment_score"`
		EmotionalTags  []string `json:"emotional_tags"`
		Feedback       string   `json:"feedback"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Analysis{}, fmt.Errorf("ai: 解析回复JSON失败: %w", err)
	}

	analysis := Analysis{
		SentimentScore: clamp(raw.SentimentScore, -1, 1),
		EmotionalTags:  raw.EmotionalTags,
		Feedback:       strings.TrimSpace(raw.Feedback),
	}
	if analysis.EmotionalTags == nil {
		analysis.EmotionalTags = []string{}
	}
	if analysis.Feedback == "" {
		analysis.Feedback = emptyFeedback
	}
	return analysis, nil
}

func extractJSON(content string) ([]byte, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")

	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("ai: 模型输出未找到有效JSON: %s", content)
	}

	return []byte(content[start : end+1]), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
