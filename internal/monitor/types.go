package monitor

import "time"

// EventType 表示审计事件类型。
type EventType string

const (
	EventValidation       EventType = "validation"
	EventExecution        EventType = "execution"
	EventExecutionFailure EventType = "execution_failure"
	EventSync             EventType = "sync"
	EventSyncWarning      EventType = "sync_warning"
	EventRollover         EventType = "rollover"
	EventLock             EventType = "lock"
	EventJournal          EventType = "journal"
	EventError            EventType = "error"
)

// Event 封装通用审计事件。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ValidationPayload 记录一次交易前校验。
type ValidationPayload struct {
	AccountID  int64   `json:"account_id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Quantity   float64 `json:"quantity"`
	EntryPrice float64 `json:"entry_price"`
	StopLoss   float64 `json:"stop_loss"`
	RiskAmount float64 `json:"risk_amount"`
	Valid      bool    `json:"valid"`
	Reason     string  `json:"reason"`
	DryRun     bool    `json:"dry_run"`
}

// ExecutionPayload 记录订单执行结果。
type ExecutionPayload struct {
	AccountID     int64   `json:"account_id"`
	TradeID       int64   `json:"trade_id,omitempty"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	OrderType     string  `json:"order_type"`
	Size          float64 `json:"size"`
	Price         float64 `json:"price"`
	OrderID       string  `json:"order_id,omitempty"`
	ClientOrderID string  `json:"client_order_id"`
	Error         string  `json:"error,omitempty"`
}

// SyncPayload 记录余额同步。
type SyncPayload struct {
	AccountID       int64   `json:"account_id"`
	PreviousBalance float64 `json:"previous_balance"`
	Balance         float64 `json:"balance"`
	DailyLoss       float64 `json:"daily_loss"`
	MaxDailyLoss    float64 `json:"max_daily_loss"`
	FirstSync       bool    `json:"first_sync"`
	Clamped         bool    `json:"clamped"`
	LimitAdjusted   bool    `json:"limit_adjusted"`
	Warning         string  `json:"warning,omitempty"`
}

// RolloverPayload 记录交易日切换。
type RolloverPayload struct {
	AccountID   int64   `json:"account_id"`
	PreviousDay string  `json:"previous_day"`
	TradingDay  string  `json:"trading_day"`
	DailyLoss   float64 `json:"daily_loss"`
	TradesToday int     `json:"trades_today"`
}

// LockPayload 记录账户锁定状态变化。
type LockPayload struct {
	AccountID int64  `json:"account_id"`
	Locked    bool   `json:"locked"`
	Source    string `json:"source"`
}

// JournalPayload 记录日记分析结果。
type JournalPayload struct {
	AccountID      int64    `json:"account_id"`
	EntryID        int64    `json:"entry_id"`
	SentimentScore float64  `json:"sentiment_score"`
	EmotionalTags  []string `json:"emotional_tags"`
	Source         string   `json:"source"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
