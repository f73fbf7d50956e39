package reconcile

import (
	"math"

	"trade-governor/internal/account"
)

// Rules 控制余额同步的归因规则。
type Rules struct {
	QuoteAssets           []string
	DefaultBalance        float64
	DefaultMaxDailyLoss   float64
	LossClampThreshold    float64
	SmallAccountThreshold float64
	SmallAccountLossRatio float64
	MinDailyLossFloor     float64
}

// DefaultRules 返回默认同步规则。
func DefaultRules() Rules {
	return Rules{
		QuoteAssets:           []string{"USD", "USDT"},
		DefaultBalance:        10000,
		DefaultMaxDailyLoss:   300,
		LossClampThreshold:    5000,
		SmallAccountThreshold: 500,
		SmallAccountLossRatio: 0.10,
		MinDailyLossFloor:     1.0,
	}
}

// Change 描述一次余额归因的细节。
type Change struct {
	PreviousBalance float64
	Delta           float64
	FirstSync       bool
	Clamped         bool
	LimitAdjusted   bool
}

// PickBalance 按配置顺序选择第一个存在的计价资产余额。
func PickBalance(balances map[string]float64, quoteAssets []string) (string, float64, bool) {
	for _, asset := range quoteAssets {
		if v, ok := balances[asset]; ok {
			return asset, v, true
		}
	}
	return "", 0, false
}

// ApplyWalletBalance 将交易所余额应用到账户上，返回新状态与归因细节。
func ApplyWalletBalance(acct account.Account, newBalance float64, rules Rules) (account.Account, Change) {
	change := Change{PreviousBalance: acct.Balance}

	if acct.Balance == rules.DefaultBalance && acct.CurrentDailyLoss == 0 {
		change.FirstSync = true
	} else {
		change.Delta = acct.Balance - newBalance
		acct.CurrentDailyLoss += change.Delta
	}

	acct.Balance = newBalance

	if acct.CurrentDailyLoss > rules.LossClampThreshold {
		acct.CurrentDailyLoss = 0
		change.Clamped = true
	}

	if acct.MaxDailyLoss == rules.DefaultMaxDailyLoss && acct.Balance < rules.SmallAccountThreshold {
		acct.MaxDailyLoss = math.Max(acct.Balance*rules.SmallAccountLossRatio, rules.MinDailyLossFloor)
		change.LimitAdjusted = true
	}

	return acct, change
}
