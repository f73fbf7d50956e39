package trade

import (
	"errors"
	"time"
)

var (
	// ErrNotFound 表示交易记录不存在。
	ErrNotFound = errors.New("trade: 交易记录不存在")
	// ErrNotOpen 表示交易已平仓或不可平仓。
	ErrNotOpen = errors.New("trade: 交易不是持仓状态")
	// ErrInvalidExit 表示平仓价格非法。
	ErrInvalidExit = errors.New("trade: 平仓价格必须大于0")
)

// Side 为交易方向。
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Direction 返回方向符号，多头为 1，空头为 -1。
func (s Side) Direction() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// Valid 判断方向是否合法。
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// OrderType 为下单类型。
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// Status 为交易状态。
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusClosed   Status = "CLOSED"
	StatusRejected Status = "REJECTED"
)

// Trade 为已成交交易记录。
type Trade struct {
	ID            int64      `json:"id"`
	AccountID     int64      `json:"account_id"`
	Symbol        string     `json:"symbol"`
	Side          Side       `json:"side"`
	OrderType     OrderType  `json:"order_type"`
	Quantity      float64    `json:"quantity"`
	EntryPrice    float64    `json:"entry_price"`
	StopLoss      float64    `json:"stop_loss"`
	TakeProfit    float64    `json:"take_profit"`
	RiskAmount    float64    `json:"risk_amount"`
	ExitPrice     *float64   `json:"exit_price"`
	PnL           *float64   `json:"pnl"`
	RMultiple     *float64   `json:"r_multiple"`
	EntryTime     time.Time  `json:"entry_time"`
	ExitTime      *time.Time `json:"exit_time"`
	Status        Status     `json:"status"`
	Tags          []string   `json:"tags"`
	OrderID       string     `json:"order_id"`
	ClientOrderID string     `json:"client_order_id"`
}
