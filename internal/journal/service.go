package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/markcheno/go-talib"
	"go.uber.org/zap"

	"trade-governor/internal/account"
	"trade-governor/internal/ai"
	"trade-governor/internal/config"
	"trade-governor/internal/metrics"
	"trade-governor/internal/monitor"
	"trade-governor/internal/store"
)

// ErrEmptyContent 表示日记内容为空。
var ErrEmptyContent = errors.New("journal: 日记内容不能为空")

type analyzer interface {
	Analyze(ctx context.Context, content string, acct ai.AccountContext) ai.Result
}

// Service 管理交易日记与情绪趋势。
type Service struct {
	db      *sql.DB
	coach   analyzer
	cfg     config.JournalConfig
	monitor *monitor.Service
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewService 创建日记服务并初始化表结构。
func NewService(st *store.Store, coach analyzer, cfg config.JournalConfig, mon *monitor.Service, collector *metrics.Collector, logger *zap.Logger) (*Service, error) {
	if st == nil {
		return nil, errors.New("journal: store 不能为空")
	}
	if coach == nil {
		return nil, errors.New("journal: coach 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 50
	}
	if cfg.MoodEMAPeriod < 2 {
		cfg.MoodEMAPeriod = 5
	}
	if cfg.MoodWindow < cfg.MoodEMAPeriod {
		cfg.MoodWindow = cfg.MoodEMAPeriod * 4
	}

	s := &Service{
		db:      st.DB(),
		coach:   coach,
		cfg:     cfg,
		monitor: mon,
		metrics: collector,
		logger:  logger,
	}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS journal_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id INTEGER NOT NULL,
	content TEXT NOT NULL,
	created_at TEXT NOT NULL,
	sentiment_score REAL NOT NULL DEFAULT 0,
	emotional_tags TEXT NOT NULL DEFAULT '[]',
	ai_feedback TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_journal_account ON journal_entries(account_id, id);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("journal: 初始化表失败: %w", err)
	}
	return nil
}

// Create 分析并保存一条日记。
func (s *Service) Create(ctx context.Context, acct account.Account, content string) (Entry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Entry{}, ErrEmptyContent
	}

	result := s.coach.Analyze(ctx, content, ai.AccountContext{
		Balance:   acct.Balance,
		DailyLoss: acct.CurrentDailyLoss,
		HasStats:  true,
	})

	entry := Entry{
		AccountID:      acct.ID,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
		SentimentScore: result.Analysis.SentimentScore,
		EmotionalTags:  result.Analysis.EmotionalTags,
		AIFeedback:     result.Analysis.Feedback,
		Source:         string(result.Source),
	}
	if entry.EmotionalTags == nil {
		entry.EmotionalTags = []string{}
	}

	tags, err := json.Marshal(entry.EmotionalTags)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: 序列化标签失败: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO journal_entries (account_id, content, created_at, sentiment_score, emotional_tags, ai_feedback, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.AccountID, entry.Content, entry.CreatedAt.Format(time.RFC3339Nano), entry.SentimentScore,
		string(tags), entry.AIFeedback, entry.Source,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: 写入日记失败: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return Entry{}, fmt.Errorf("journal: 获取日记ID失败: %w", err)
	}

	if result.Err != nil {
		s.monitor.RecordError(ctx, "日记分析回退到本地规则", result.Err, map[string]interface{}{"entry_id": entry.ID})
	}
	s.monitor.RecordJournal(ctx, monitor.JournalPayload{
		AccountID:      entry.AccountID,
		EntryID:        entry.ID,
		SentimentScore: entry.SentimentScore,
		EmotionalTags:  entry.EmotionalTags,
		Source:         entry.Source,
	})
	s.metrics.ObserveJournal(entry.Source)

	return entry, nil
}

// List 返回最近的日记，新的在前。
func (s *Service) List(ctx context.Context, accountID int64, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.cfg.ListLimit {
		limit = s.cfg.ListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, content, created_at, sentiment_score, emotional_tags, ai_feedback, source
		 FROM journal_entries WHERE account_id = ? ORDER BY id DESC LIMIT ?`,
		accountID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: 查询日记失败: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e       Entry
			created string
			tags    string
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Content, &created, &e.SentimentScore, &tags, &e.AIFeedback, &e.Source); err != nil {
			return nil, fmt.Errorf("journal: 解析日记失败: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = ts
		}
		if err := json.Unmarshal([]byte(tags), &e.EmotionalTags); err != nil || e.EmotionalTags == nil {
			e.EmotionalTags = []string{}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: 读取日记失败: %w", err)
	}

	return entries, nil
}

// MoodTrend 计算最近情绪分数的 EMA，离线条目不计入。
func (s *Service) MoodTrend(ctx context.Context, accountID int64) (Mood, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sentiment_score FROM journal_entries WHERE account_id = ? AND source != ? ORDER BY id DESC LIMIT ?`,
		accountID, string(ai.SourceOffline), s.cfg.MoodWindow,
	)
	if err != nil {
		return Mood{}, fmt.Errorf("journal: 查询情绪分数失败: %w", err)
	}
	defer rows.Close()

	newestFirst := make([]float64, 0, s.cfg.MoodWindow)
	for rows.Next() {
		var score float64
		if err := rows.Scan(&score); err != nil {
			return Mood{}, fmt.Errorf("journal: 解析情绪分数失败: %w", err)
		}
		newestFirst = append(newestFirst, score)
	}
	if err := rows.Err(); err != nil {
		return Mood{}, fmt.Errorf("journal: 读取情绪分数失败: %w", err)
	}

	scores := make([]float64, len(newestFirst))
	for i, v := range newestFirst {
		scores[len(newestFirst)-1-i] = v
	}

	return moodFromScores(scores, s.cfg.MoodEMAPeriod), nil
}

func moodFromScores(scores []float64, period int) Mood {
	mood := Mood{Samples: len(scores)}
	if len(scores) == 0 {
		return mood
	}

	if len(scores) < period {
		var sum float64
		for _, v := range scores {
			sum += v
		}
		mood.Score = sum / float64(len(scores))
		return mood
	}

	ema := talib.Ema(scores, period)
	mood.Score = ema[len(ema)-1]
	mood.Ready = true
	return mood
}
