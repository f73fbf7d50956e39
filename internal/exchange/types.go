package exchange

import (
	"context"
	"time"
)

// Side 为交易所下单方向。
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType 为交易所订单类型。
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderRequest 描述一笔待提交委托。
type OrderRequest struct {
	Symbol        string
	Side          Side
	Type          OrderType
	Amount        float64
	Price         float64
	ClientOrderID string
}

// OrderResult 为交易所确认的委托回报。
type OrderResult struct {
	ID            string    `json:"id"`
	ClientOrderID string    `json:"client_order_id"`
	Status        string    `json:"status"`
	Filled        float64   `json:"filled"`
	Average       float64   `json:"average"`
	Timestamp     time.Time `json:"timestamp"`
}

// Gateway 为系统依赖的交易所能力集合。
type Gateway interface {
	Enabled() bool
	MarkPrice(ctx context.Context, symbol string) float64
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	WalletBalances(ctx context.Context) (map[string]float64, error)
}
