package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/easayliu/tg-file-renamer/internal/application/contracts"
)

const namespace = "renamer"

var _ contracts.RenameMetrics = (*Metrics)(nil)

// Metrics 重命名相关指标，使用独立 Registry
type Metrics struct {
	registry *prometheus.Registry

	renamesTotal    *prometheus.CounterVec
	renameDuration  *prometheus.HistogramVec
	bytesTotal      *prometheus.CounterVec
	sessionsCreated prometheus.Counter
	sessionsExpired prometheus.Counter
	updatesTotal    *prometheus.CounterVec
	janitorRemoved  prometheus.Counter
}

// New 创建并注册所有指标
// activeSessions 用于采集当前会话数，可为 nil
func New(activeSessions func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		renamesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renames_total",
			Help:      "Rename runs by outcome and upload shape.",
		}, []string{"outcome", "shape"}),
		renameDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rename_duration_seconds",
			Help:      "Duration of rename runs.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),
		bytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_bytes_total",
			Help:      "Bytes transferred from and to Telegram.",
		}, []string{"direction"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Rename sessions created.",
		}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Rename sessions removed by timeout.",
		}),
		updatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_updates_total",
			Help:      "Telegram updates handled by kind.",
		}, []string{"kind"}),
		janitorRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "janitor_removed_total",
			Help:      "Orphaned work entries removed by the janitor.",
		}),
	}

	m.registry.MustRegister(
		m.renamesTotal,
		m.renameDuration,
		m.bytesTotal,
		m.sessionsCreated,
		m.sessionsExpired,
		m.updatesTotal,
		m.janitorRemoved,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if activeSessions != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Rename sessions currently held in memory.",
		}, func() float64 {
			return float64(activeSessions())
		}))
	}
	return m
}

func (m *Metrics) ObserveOutcome(outcome string, shape string, duration time.Duration) {
	if shape == "" {
		shape = "none"
	}
	m.renamesTotal.WithLabelValues(outcome, shape).Inc()
	m.renameDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Metrics) AddBytes(direction string, n int64) {
	if n <= 0 {
		return
	}
	m.bytesTotal.WithLabelValues(direction).Add(float64(n))
}

func (m *Metrics) SessionCreated() {
	m.sessionsCreated.Inc()
}

func (m *Metrics) SessionExpired() {
	m.sessionsExpired.Inc()
}

// UpdateHandled 记录处理的 Telegram 更新
func (m *Metrics) UpdateHandled(kind string) {
	m.updatesTotal.WithLabelValues(kind).Inc()
}

// JanitorRemoved 记录清理任务删除的条目数
func (m *Metrics) JanitorRemoved(n int) {
	m.janitorRemoved.Add(float64(n))
}

// Registry 返回内部 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 暴露 /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
