package execution

import (
	"errors"
	"fmt"
	"strings"

	"trade-governor/internal/risk"
	"trade-governor/internal/trade"
)

const (
	reasonPriceUnknown = "Could not determine Entry Price (Market Closed?)"
	reasonZeroSize     = "Order size rounds to zero contracts"
)

var (
	// ErrInvalidRequest 表示请求参数不合法。
	ErrInvalidRequest = errors.New("invalid trade request")
	// ErrPriceUnavailable 表示无法获得用于校验的价格。
	ErrPriceUnavailable = errors.New("execution: 无法获取执行价格")
)

// RejectionError 表示风控拒绝，携带完整校验结果。
type RejectionError struct {
	Result risk.ValidationResult
}

func (e *RejectionError) Error() string {
	return e.Result.Reason
}

// Request 为下单或校验请求。
type Request struct {
	Symbol     string   `json:"symbol"`
	Side       string   `json:"side"`
	Quantity   float64  `json:"quantity"`
	LimitPrice *float64 `json:"limit_price,omitempty"`
	SLPercent  float64  `json:"sl_percent"`
	TPPercent  float64  `json:"tp_percent"`
	OrderType  string   `json:"order_type,omitempty"`
}

// normalize 校验字段并补全默认下单类型。
func (r Request) normalize(defaultType trade.OrderType) (Request, error) {
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	r.Side = strings.ToUpper(strings.TrimSpace(r.Side))
	r.OrderType = strings.ToUpper(strings.TrimSpace(r.OrderType))
	if r.OrderType == "" {
		r.OrderType = string(defaultType)
	}

	switch {
	case r.Symbol == "":
		return r, fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	case !trade.Side(r.Side).Valid():
		return r, fmt.Errorf("%w: side must be LONG or SHORT", ErrInvalidRequest)
	case r.Quantity <= 0:
		return r, fmt.Errorf("%w: quantity must be greater than 0", ErrInvalidRequest)
	case r.SLPercent <= 0:
		return r, fmt.Errorf("%w: sl_percent must be greater than 0", ErrInvalidRequest)
	case r.TPPercent <= 0:
		return r, fmt.Errorf("%w: tp_percent must be greater than 0", ErrInvalidRequest)
	case r.OrderType != string(trade.OrderTypeMarket) && r.OrderType != string(trade.OrderTypeLimit):
		return r, fmt.Errorf("%w: order_type must be MARKET or LIMIT", ErrInvalidRequest)
	}

	return r, nil
}

func (r Request) limitPrice() float64 {
	if r.LimitPrice == nil {
		return 0
	}
	return *r.LimitPrice
}

// protectionPrices 按方向把百分比止损止盈换算为价格。
func protectionPrices(side trade.Side, price, slPercent, tpPercent float64) (stop, take float64) {
	if side == trade.SideShort {
		return price * (1 + slPercent/100), price * (1 - tpPercent/100)
	}
	return price * (1 - slPercent/100), price * (1 + tpPercent/100)
}
