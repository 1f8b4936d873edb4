package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopify_insights"

// Metrics groups the pipeline's collectors. All methods are safe on a nil receiver.
type Metrics struct {
	webhooks      *prometheus.CounterVec
	reconciles    *prometheus.CounterVec
	pollRecords   *prometheus.CounterVec
	syncRuns      *prometheus.CounterVec
	syncDuration  prometheus.Histogram
	sessions      prometheus.Gauge
	droppedEvents prometheus.Counter
	gatherer      prometheus.Gatherer
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		webhooks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Webhook deliveries by topic and HTTP outcome.",
		}, []string{"topic", "result"}),
		reconciles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Reconciliation outcomes by topic, status and action.",
		}, []string{"topic", "status", "action"}),
		pollRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_new_records_total",
			Help:      "Records discovered by the polling fallback.",
		}, []string{"entity"}),
		syncRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Sync passes by final status.",
		}, []string{"status"}),
		syncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of completed or failed sync passes.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_sessions",
			Help:      "Connected real-time sessions.",
		}),
		droppedEvents: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_dropped_events_total",
			Help:      "Events dropped because a session buffer was full.",
		}),
		gatherer: reg,
	}
}

func (m *Metrics) Webhook(topic, result string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(topic, result).Inc()
}

func (m *Metrics) Reconciled(topic, status, action string) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(topic, status, action).Inc()
}

func (m *Metrics) PollRecords(entity string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.pollRecords.WithLabelValues(entity).Add(float64(n))
}

func (m *Metrics) SyncRun(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(status).Inc()
	if d > 0 {
		m.syncDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) Sessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

func (m *Metrics) DroppedEvent() {
	if m == nil {
		return
	}
	m.droppedEvents.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
