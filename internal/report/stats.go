package report

import (
	"math"
	"sort"
	"time"

	"trade-governor/internal/trade"
)

// Summary 为交易统计。
type Summary struct {
	TotalTrades    int     `json:"total_trades"`
	OpenTrades     int     `json:"open_trades"`
	ClosedTrades   int     `json:"closed_trades"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	WinRate        float64 `json:"win_rate"`
	TotalPnL       float64 `json:"total_pnl"`
	AverageWin     float64 `json:"average_win"`
	AverageLoss    float64 `json:"average_loss"`
	RewardRisk     float64 `json:"reward_risk"`
	AverageR       float64 `json:"average_r"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	LargestWin     float64 `json:"largest_win"`
	LargestLoss    float64 `json:"largest_loss"`
	ConsecutiveMax int     `json:"max_consecutive_losses"`
}

// Stats 汇总交易列表，胜率基于已平仓交易。
// 盈亏曲线、回撤与连亏按平仓时间排序，与输入顺序无关。
func Stats(trades []trade.Trade) Summary {
	s := Summary{TotalTrades: len(trades)}

	var (
		sumWin, sumLoss float64
		sumR            float64
		rCount          int
		streak          int
		cumulative      float64
	)
	curve := make([]float64, 0, len(trades))

	closed := make([]trade.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Status == trade.StatusOpen {
			s.OpenTrades++
		}
		if t.Status == trade.StatusClosed && t.PnL != nil {
			closed = append(closed, t)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		ei, ej := exitTime(closed[i]), exitTime(closed[j])
		if !ei.Equal(ej) {
			return ei.Before(ej)
		}
		return closed[i].ID < closed[j].ID
	})

	for _, t := range closed {
		pnl := *t.PnL
		s.ClosedTrades++
		s.TotalPnL += pnl
		cumulative += pnl
		curve = append(curve, cumulative)

		switch {
		case pnl > 0:
			s.Wins++
			sumWin += pnl
			streak = 0
			s.LargestWin = math.Max(s.LargestWin, pnl)
		case pnl < 0:
			s.Losses++
			sumLoss += -pnl
			streak++
			if streak > s.ConsecutiveMax {
				s.ConsecutiveMax = streak
			}
			s.LargestLoss = math.Min(s.LargestLoss, pnl)
		}

		if t.RMultiple != nil {
			sumR += *t.RMultiple
			rCount++
		}
	}

	if s.ClosedTrades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.ClosedTrades)
	}
	if s.Wins > 0 {
		s.AverageWin = sumWin / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AverageLoss = sumLoss / float64(s.Losses)
	}
	if s.AverageLoss > 0 {
		s.RewardRisk = s.AverageWin / s.AverageLoss
	}
	if rCount > 0 {
		s.AverageR = sumR / float64(rCount)
	}
	s.MaxDrawdown = computeDrawdown(curve)

	return s
}

func exitTime(t trade.Trade) time.Time {
	if t.ExitTime == nil {
		return time.Time{}
	}
	return *t.ExitTime
}

// computeDrawdown 返回累计盈亏曲线自峰值（含起点 0）的最大回撤金额。
func computeDrawdown(curve []float64) float64 {
	var peak, maxDD float64
	for _, v := range curve {
		if v > peak {
			peak = v
		}
		if dd := peak - v; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
