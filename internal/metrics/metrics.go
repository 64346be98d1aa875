// Package metrics records credential sync runs as Prometheus metrics.
//
// keysync is a short-lived CLI, so metrics live on a private registry and are
// pushed to a Pushgateway at the end of a run when one is configured.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "keysync"

// DefaultJob is the Pushgateway job name used when none is configured
const DefaultJob = "keysync"

// SyncMetrics holds the collectors for one process.
type SyncMetrics struct {
	registry *prometheus.Registry

	syncStarted   *prometheus.CounterVec
	syncCompleted *prometheus.CounterVec
	storeWrites   *prometheus.CounterVec
	syncDuration  *prometheus.HistogramVec
	lastSuccess   *prometheus.GaugeVec
}

// New creates the collectors on a fresh registry.
func New() *SyncMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &SyncMetrics{
		registry: reg,
		syncStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_started_total",
				Help:      "Total number of credential sync runs started",
			},
			[]string{"service"},
		),
		syncCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_completed_total",
				Help:      "Total number of credential sync runs by terminal state",
			},
			[]string{"service", "state"},
		),
		storeWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_writes_total",
				Help:      "Secret store writes by action and result",
			},
			[]string{"service", "action", "result"},
		),
		syncDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_duration_seconds",
				Help:      "Duration of credential sync runs in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"service"},
		),
		lastSuccess: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful sync",
			},
			[]string{"service"},
		),
	}
}

// Registry exposes the underlying registry.
func (m *SyncMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordSyncStarted records the start of a run.
func (m *SyncMetrics) RecordSyncStarted(service string) {
	m.syncStarted.WithLabelValues(service).Inc()
}

// RecordStoreWrite records a create or update attempt.
func (m *SyncMetrics) RecordStoreWrite(service, action string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	m.storeWrites.WithLabelValues(service, action, result).Inc()
}

// RecordSyncCompleted records the terminal state and duration of a run.
func (m *SyncMetrics) RecordSyncCompleted(service, state string, success bool, duration time.Duration) {
	m.syncCompleted.WithLabelValues(service, state).Inc()
	m.syncDuration.WithLabelValues(service).Observe(duration.Seconds())
	if success {
		m.lastSuccess.WithLabelValues(service).SetToCurrentTime()
	}
}

// Push sends the registry to a Pushgateway, replacing the job's previous group.
func (m *SyncMetrics) Push(ctx context.Context, url, job string) error {
	if job == "" {
		job = DefaultJob
	}
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
