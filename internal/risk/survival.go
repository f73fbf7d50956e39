package risk

import "math"

// InfiniteRunway 为日亏损上限非正时的跑道天数哨兵值。
const InfiniteRunway = 999.0

// RunwayDays 返回按最坏日亏损计算账户可支撑的天数，保留一位小数。
func RunwayDays(balance, maxDailyLoss float64) float64 {
	if maxDailyLoss <= 0 {
		return InfiniteRunway
	}
	return round(balance/maxDailyLoss, 1)
}

// RuinProbability 为破产概率的启发式估计：
// 胜率低于盈亏平衡胜率时视为必然破产，否则按超出部分线性衰减。
// riskPerTradePct 保留在签名中但不参与计算。
func RuinProbability(winRate, rewardRiskRatio, riskPerTradePct float64) float64 {
	_ = riskPerTradePct

	required := 1 / (1 + rewardRiskRatio)
	if winRate < required {
		return 1.0
	}

	buffer := winRate - required
	return round(math.Max(0, 1-buffer*5), 2)
}

// Edge 描述交易优势参数。
type Edge struct {
	WinRate     float64 `json:"win_rate"`
	RewardRisk  float64 `json:"reward_risk"`
	Samples     int     `json:"samples"`
	FromHistory bool    `json:"from_history"`
}

// EdgeFromHistory 从已平仓盈亏推导胜率与盈亏比，样本不足时使用回退值。
func EdgeFromHistory(closedPnL []float64, minSample int, fallbackWinRate, fallbackRewardRisk float64) Edge {
	fallback := Edge{
		WinRate:    fallbackWinRate,
		RewardRisk: fallbackRewardRisk,
		Samples:    len(closedPnL),
	}
	if len(closedPnL) == 0 || len(closedPnL) < minSample {
		return fallback
	}

	var (
		wins, losses    int
		sumWin, sumLoss float64
	)
	for _, pnl := range closedPnL {
		switch {
		case pnl > 0:
			wins++
			sumWin += pnl
		case pnl < 0:
			losses++
			sumLoss += -pnl
		}
	}

	if wins == 0 || losses == 0 {
		// 单边样本无法估计盈亏比，胜率仍取实际值
		fallback.WinRate = float64(wins) / float64(len(closedPnL))
		fallback.FromHistory = true
		return fallback
	}

	avgWin := sumWin / float64(wins)
	avgLoss := sumLoss / float64(losses)

	return Edge{
		WinRate:     float64(wins) / float64(len(closedPnL)),
		RewardRisk:  avgWin / avgLoss,
		Samples:     len(closedPnL),
		FromHistory: true,
	}
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
