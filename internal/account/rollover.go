package account

import "time"

// Rollover 计算交易日边界。
type Rollover struct {
	Location  *time.Location
	ResetHour int
	Now       func() time.Time
}

// NewRollover 创建交易日计算器，loc 为空时使用 UTC。
func NewRollover(loc *time.Location, resetHour int) Rollover {
	if loc == nil {
		loc = time.UTC
	}
	if resetHour < 0 || resetHour > 23 {
		resetHour = 0
	}
	return Rollover{Location: loc, ResetHour: resetHour, Now: time.Now}
}

// Today 返回当前所在交易日。
func (r Rollover) Today() string {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return r.TradingDay(now())
}

// TradingDay 返回 ts 所属的交易日（YYYY-MM-DD），按重置小时向前平移。
func (r Rollover) TradingDay(ts time.Time) string {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	local := ts.In(loc)
	shifted := local.Add(-time.Duration(r.ResetHour) * time.Hour)
	day := time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, loc)
	return day.Format("2006-01-02")
}
