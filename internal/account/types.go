package account

import (
	"errors"
	"time"
)

// ErrNotFound 表示账户不存在。
var ErrNotFound = errors.New("account: 账户不存在")

// Account 是单一交易账户的风控状态。
type Account struct {
	ID                int64      `json:"id"`
	Balance           float64    `json:"balance"`
	MaxDailyLoss      float64    `json:"max_daily_loss"`
	MaxTradesPerDay   int        `json:"max_trades_per_day"`
	CurrentDailyLoss  float64    `json:"current_daily_loss"`
	TradesTodayCount  int        `json:"trades_today_count"`
	Locked            bool       `json:"locked"`
	LastResetDate     string     `json:"last_reset_date"`
	LastViolationTime *time.Time `json:"last_violation_time"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// RemainingBuffer 返回当日剩余可亏损额度，可能为负。
func (a Account) RemainingBuffer() float64 {
	return a.MaxDailyLoss - a.CurrentDailyLoss
}

// Defaults 为新建账户的初始值。
type Defaults struct {
	Balance         float64
	MaxDailyLoss    float64
	MaxTradesPerDay int
}

// DefaultDefaults 返回内置默认值。
func DefaultDefaults() Defaults {
	return Defaults{
		Balance:         10000,
		MaxDailyLoss:    300,
		MaxTradesPerDay: 5,
	}
}
