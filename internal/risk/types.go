package risk

// ValidationResult 为风控校验结论。
type ValidationResult struct {
	Valid      bool   `json:"valid"`
	CanExecute bool   `json:"can_execute"`
	Reason     string `json:"reason"`
}

// ContractType 区分线性与反向合约。
type ContractType int

const (
	// Linear 以计价货币结算（如 BTCUSDT）。
	Linear ContractType = iota
	// Inverse 以合约面值计价（如 BTCUSD）。
	Inverse
)

func (c ContractType) String() string {
	if c == Inverse {
		return "inverse"
	}
	return "linear"
}

// Impact 描述一笔交易的风险占用。
type Impact struct {
	Contract ContractType `json:"contract"`
	StopPct  float64      `json:"stop_pct"`
	BaseRisk float64      `json:"base_risk"`
	Fee      float64      `json:"fee"`
	Total    float64      `json:"total"`
}

// Rules 为风控阈值。
type Rules struct {
	// MinStopDistance 为止损距离占入场价比例的下限。
	MinStopDistance float64
	// FeeRate 为手续费与滑点预留比例。
	FeeRate float64
}

// DefaultRules 返回默认阈值。
func DefaultRules() Rules {
	return Rules{
		MinStopDistance: 0.0001,
		FeeRate:         0.00075,
	}
}
