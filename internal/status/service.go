package status

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trade-governor/internal/account"
	"trade-governor/internal/journal"
	"trade-governor/internal/metrics"
	"trade-governor/internal/reconcile"
	"trade-governor/internal/risk"
)

type syncer interface {
	Sync(ctx context.Context, accountID int64) (reconcile.Result, error)
}

type moodSource interface {
	MoodTrend(ctx context.Context, accountID int64) (journal.Mood, error)
}

type pnlSource interface {
	ClosedPnL(ctx context.Context, accountID int64) ([]float64, error)
}

// Settings 控制生存指标的推导参数。
type Settings struct {
	RiskPerTradePct    float64
	FallbackWinRate    float64
	FallbackRewardRisk float64
	MinClosedTrades    int
}

// View 为账户状态视图，在账户字段之外附带生存指标。
type View struct {
	account.Account
	RunwayDays      float64   `json:"runway_days"`
	RuinProbability float64   `json:"ruin_probability"`
	MoodScore       float64   `json:"mood_score"`
	MoodSamples     int       `json:"mood_samples"`
	Edge            risk.Edge `json:"edge"`
	Synced          bool      `json:"synced"`
	SyncWarning     string    `json:"sync_warning,omitempty"`
}

// Service 组合余额同步、情绪趋势与交易优势，生成账户状态。
type Service struct {
	sync     syncer
	mood     moodSource
	trades   pnlSource
	settings Settings
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewService 创建状态服务。
func NewService(sync syncer, mood moodSource, trades pnlSource, settings Settings, collector *metrics.Collector, logger *zap.Logger) (*Service, error) {
	switch {
	case sync == nil:
		return nil, errors.New("status: 同步器不能为空")
	case mood == nil:
		return nil, errors.New("status: 日记服务不能为空")
	case trades == nil:
		return nil, errors.New("status: 交易仓储不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sync:     sync,
		mood:     mood,
		trades:   trades,
		settings: settings,
		metrics:  collector,
		logger:   logger,
	}, nil
}

// Read 先同步余额，再并行计算情绪与交易优势。
// 同步失败只体现在 SyncWarning 中。
func (s *Service) Read(ctx context.Context, accountID int64) (View, error) {
	res, err := s.sync.Sync(ctx, accountID)
	if err != nil {
		return View{}, err
	}

	var (
		mood      journal.Mood
		closedPnL []float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.mood.MoodTrend(gctx, accountID)
		if err != nil {
			return err
		}
		mood = m
		return nil
	})
	g.Go(func() error {
		pnl, err := s.trades.ClosedPnL(gctx, accountID)
		if err != nil {
			return err
		}
		closedPnL = pnl
		return nil
	})
	if err := g.Wait(); err != nil {
		return View{}, err
	}

	acct := res.Account
	edge := risk.EdgeFromHistory(closedPnL, s.settings.MinClosedTrades, s.settings.FallbackWinRate, s.settings.FallbackRewardRisk)
	view := View{
		Account:         acct,
		RunwayDays:      risk.RunwayDays(acct.Balance, acct.MaxDailyLoss),
		RuinProbability: risk.RuinProbability(edge.WinRate, edge.RewardRisk, s.settings.RiskPerTradePct),
		MoodScore:       mood.Score,
		MoodSamples:     mood.Samples,
		Edge:            edge,
		Synced:          res.Synced,
	}
	if res.Warning != nil {
		view.SyncWarning = res.Warning.Error()
	}

	s.metrics.SetAccount(acct.Balance, acct.CurrentDailyLoss, acct.TradesTodayCount, view.RunwayDays, view.RuinProbability)
	s.logger.Debug("账户状态",
		zap.Int64("account_id", acct.ID),
		zap.Float64("runway_days", view.RunwayDays),
		zap.Float64("ruin_probability", view.RuinProbability),
		zap.Float64("mood", view.MoodScore),
	)

	return view, nil
}
