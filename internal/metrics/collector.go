package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "governor"

// Collector 汇总风控、执行与 HTTP 指标，使用独立 Registry。
// 所有方法对 nil 接收者安全。
type Collector struct {
	registry *prometheus.Registry

	validations      *prometheus.CounterVec
	executions       *prometheus.CounterVec
	executionLatency prometheus.Histogram
	syncs            *prometheus.CounterVec
	journalEntries   *prometheus.CounterVec
	rollovers        prometheus.Counter

	balance      prometheus.Gauge
	dailyLoss    prometheus.Gauge
	runwayDays   prometheus.Gauge
	ruinProb     prometheus.Gauge
	tradesToday  prometheus.Gauge
	riskPerTrade prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector 创建指标采集器。
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Trade validations by outcome",
		}, []string{"outcome"}),
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Order placements by result",
		}, []string{"result"}),
		executionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Time spent placing orders on the exchange",
			Buckets:   prometheus.DefBuckets,
		}),
		syncs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_syncs_total",
			Help:      "Account balance syncs by result",
		}, []string{"result"}),
		journalEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_entries_total",
			Help:      "Journal entries by analysis source",
		}, []string{"source"}),
		rollovers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "daily_rollovers_total",
			Help:      "Daily counter resets",
		}),
		balance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "account_balance",
			Help:      "Current account balance",
		}),
		dailyLoss: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "account_daily_loss",
			Help:      "Current daily loss",
		}),
		runwayDays: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "account_runway_days",
			Help:      "Worst-case loss days until the balance is exhausted",
		}),
		ruinProb: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "account_ruin_probability",
			Help:      "Heuristic ruin probability",
		}),
		tradesToday: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "account_trades_today",
			Help:      "Trades executed in the current trading day",
		}),
		riskPerTrade: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trade_risk_amount",
			Help:      "Risk impact of approved trades in quote units",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"route", "method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// ObserveValidation 记录校验结果，通过时记录风险占用。
func (c *Collector) ObserveValidation(approved bool, riskAmount float64) {
	if c == nil {
		return
	}
	if approved {
		c.validations.WithLabelValues("approved").Inc()
		c.riskPerTrade.Observe(riskAmount)
		return
	}
	c.validations.WithLabelValues("rejected").Inc()
}

// ObserveExecution 记录下单结果与耗时。
func (c *Collector) ObserveExecution(success bool, duration time.Duration) {
	if c == nil {
		return
	}
	result := "failed"
	if success {
		result = "filled"
	}
	c.executions.WithLabelValues(result).Inc()
	c.executionLatency.Observe(duration.Seconds())
}

// ObserveSync 记录余额同步结果。
func (c *Collector) ObserveSync(success bool) {
	if c == nil {
		return
	}
	if success {
		c.syncs.WithLabelValues("ok").Inc()
		return
	}
	c.syncs.WithLabelValues("warning").Inc()
}

// ObserveJournal 记录日记分析来源。
func (c *Collector) ObserveJournal(source string) {
	if c == nil {
		return
	}
	c.journalEntries.WithLabelValues(source).Inc()
}

// ObserveRollover 记录交易日切换。
func (c *Collector) ObserveRollover() {
	if c == nil {
		return
	}
	c.rollovers.Inc()
}

// SetAccount 更新账户健康度指标。
func (c *Collector) SetAccount(balance, dailyLoss float64, tradesToday int, runway, ruin float64) {
	if c == nil {
		return
	}
	c.balance.Set(balance)
	c.dailyLoss.Set(dailyLoss)
	c.tradesToday.Set(float64(tradesToday))
	c.runwayDays.Set(runway)
	c.ruinProb.Set(ruin)
}

// ObserveHTTP 记录单次 HTTP 请求。
func (c *Collector) ObserveHTTP(route, method string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// Registry 返回底层 Registry。
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回 Prometheus 抓取端点。
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
