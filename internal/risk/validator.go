package risk

import (
	"fmt"
	"math"
	"strings"

	"trade-governor/internal/account"
)

const (
	reasonNotFound   = "Account not found"
	reasonLocked     = "ACCOUNT LOCKED: Rule Violation"
	reasonLossLimit  = "Daily Loss Limit Hit"
	reasonApproved   = "Trade Approved"
	reasonTradeLimit = "Daily Trade Limit Reached (%d)"
	reasonTooTight   = "SL too tight (%.2f%%)."
	reasonOverBuffer = "Risk (%.2f) exceeds remaining daily buffer"
)

// Validator 按固定顺序执行交易前校验，不产生任何副作用。
type Validator struct {
	rules Rules
}

// NewValidator 创建校验器，负阈值回退为默认值，0 表示关闭对应项。
func NewValidator(rules Rules) *Validator {
	def := DefaultRules()
	if rules.MinStopDistance < 0 {
		rules.MinStopDistance = def.MinStopDistance
	}
	if rules.FeeRate < 0 {
		rules.FeeRate = def.FeeRate
	}
	return &Validator{rules: rules}
}

// Rules 返回当前阈值。
func (v *Validator) Rules() Rules {
	return v.rules
}

// ValidateTrade 使用默认阈值校验交易。
func ValidateTrade(acct *account.Account, symbol string, entryPrice, stopLoss, quantity float64) ValidationResult {
	return NewValidator(DefaultRules()).Validate(acct, symbol, entryPrice, stopLoss, quantity)
}

// Validate 依次检查账户、锁定、次数、亏损、止损距离与剩余额度，首个失败即返回。
// entryPrice 必须为正，由调用方保证。
func (v *Validator) Validate(acct *account.Account, symbol string, entryPrice, stopLoss, quantity float64) ValidationResult {
	if acct == nil {
		return reject(reasonNotFound)
	}
	if acct.Locked {
		return reject(reasonLocked)
	}
	if acct.TradesTodayCount >= acct.MaxTradesPerDay {
		return reject(fmt.Sprintf(reasonTradeLimit, acct.MaxTradesPerDay))
	}
	if acct.CurrentDailyLoss >= acct.MaxDailyLoss {
		return reject(reasonLossLimit)
	}

	impact := v.rules.RiskImpact(symbol, entryPrice, stopLoss, quantity)
	if impact.StopPct < v.rules.MinStopDistance {
		return reject(fmt.Sprintf(reasonTooTight, impact.StopPct*100))
	}

	if acct.CurrentDailyLoss+impact.Total > acct.MaxDailyLoss {
		return reject(fmt.Sprintf(reasonOverBuffer, impact.Total))
	}

	return ValidationResult{Valid: true, CanExecute: true, Reason: reasonApproved}
}

// RiskImpact 计算止损触发时的亏损与手续费预留。
func (r Rules) RiskImpact(symbol string, entryPrice, stopLoss, quantity float64) Impact {
	distance := math.Abs(entryPrice - stopLoss)
	impact := Impact{
		Contract: ClassifyContract(symbol),
		StopPct:  distance / entryPrice,
	}

	switch impact.Contract {
	case Inverse:
		impact.BaseRisk = quantity * impact.StopPct
		impact.Fee = quantity * r.FeeRate
	default:
		impact.BaseRisk = distance * quantity
		impact.Fee = entryPrice * quantity * r.FeeRate
	}
	impact.Total = impact.BaseRisk + impact.Fee

	return impact
}

// ClassifyContract 以 USD 结尾且非 USDT 结尾的交易对视为反向合约。
func ClassifyContract(symbol string) ContractType {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.HasSuffix(s, "USD") && !strings.HasSuffix(s, "USDT") {
		return Inverse
	}
	return Linear
}

func reject(reason string) ValidationResult {
	return ValidationResult{Valid: false, CanExecute: false, Reason: reason}
}
