package worker

import (
	"feedcrawler/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus metrics for the ingestion cycle. It embeds
// the shared ConfigMetrics so config-loading fallbacks are observable
// alongside cycle behavior under one "worker" component label.
type Metrics struct {
	*config.ConfigMetrics

	CycleRunsTotal         *prometheus.CounterVec
	CycleDurationSeconds   prometheus.Histogram
	ArticlesProcessedTotal prometheus.Counter
	CycleLastSuccessStamp  prometheus.Gauge
}

// NewMetrics creates and registers the worker's Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		CycleRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cycle_runs_total",
			Help: "Total number of ingestion cycles by outcome (success/failure/skipped)",
		}, []string{"outcome"}),

		CycleDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_cycle_duration_seconds",
			Help:    "Duration of a full ingestion cycle in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		ArticlesProcessedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_articles_processed_total",
			Help: "Total number of articles that completed evaluation across all cycles",
		}),

		CycleLastSuccessStamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_cycle_last_success_timestamp",
			Help: "Unix timestamp of the last ingestion cycle that completed without error",
		}),
	}
}

func (m *Metrics) recordCycle(outcome string, seconds float64) {
	m.CycleRunsTotal.WithLabelValues(outcome).Inc()
	m.CycleDurationSeconds.Observe(seconds)
}
