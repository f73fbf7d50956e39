package trade

import "trade-governor/internal/risk"

// RealizedPnL 计算以计价货币表示的已实现盈亏。
// 反向合约: qty*(1/entry-1/exit)*dir 得到币本位盈亏，再乘以平仓价折算。
func RealizedPnL(symbol string, side Side, quantity, entry, exit float64) float64 {
	dir := side.Direction()
	if risk.ClassifyContract(symbol) == risk.Inverse {
		if entry <= 0 || exit <= 0 {
			return 0
		}
		return quantity * (1/entry - 1/exit) * dir * exit
	}
	return (exit - entry) * quantity * dir
}

// RMultiple 返回盈亏相对入场风险的倍数，风险非正时返回 false。
func RMultiple(pnl, riskAmount float64) (float64, bool) {
	if riskAmount <= 0 {
		return 0, false
	}
	return pnl / riskAmount, true
}
