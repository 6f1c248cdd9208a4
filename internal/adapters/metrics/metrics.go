package metrics

import (
	"github.com/Badsnus/outage-alerts/pkg/logger/types"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "outage_alerts"

// Metrics holds the Prometheus collectors for the outage pipeline.
type Metrics struct {
	Runs             *prometheus.CounterVec // labels: status={succeeded,aborted,failed}
	RunDuration      prometheus.Histogram
	FetchAttempts    *prometheus.CounterVec // labels: outcome={success,error}
	OutagesStored    prometheus.Gauge
	GeocodeRequests  *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache     *prometheus.CounterVec // labels: result={hit,miss}
	EmailsSent       *prometheus.CounterVec // labels: outcome={success,error}
	NotificationsLog prometheus.Counter
	LogEntries       *prometheus.CounterVec // labels: level
}

func build() *Metrics {
	return &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline cycles by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "Duration of a full fetch-store-match-notify cycle.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetch_attempts_total",
			Help:      "Outage page fetch attempts by outcome.",
		}, []string{"outcome"}),
		OutagesStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outages_stored",
			Help:      "Outages stored by the last successful replacement.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding lookups by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_emails_total",
			Help:      "Digest emails by outcome.",
		}, []string{"outcome"}),
		NotificationsLog: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_records_total",
			Help:      "Notification ledger records written.",
		}),
		LogEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_entries_total",
			Help:      "Log entries by level.",
		}, []string{"level"}),
	}
}

// NewMetrics creates all collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := build()
	reg.MustRegister(
		m.Runs,
		m.RunDuration,
		m.FetchAttempts,
		m.OutagesStored,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.EmailsSent,
		m.NotificationsLog,
		m.LogEntries,
	)
	return m
}

// NewMetricsForTesting creates unregistered collectors so tests can build as
// many as they need.
func NewMetricsForTesting() *Metrics {
	return build()
}

// LogHook counts every log entry by level.
func (m *Metrics) LogHook() types.LogHook {
	return func(log types.Log) {
		m.LogEntries.WithLabelValues(log.Level.String()).Inc()
	}
}
