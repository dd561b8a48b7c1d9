package events

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Label names used by the operation metrics.
const (
	DatabaseLabel = "database"
	OpLabel       = "op"
	OutcomeLabel  = "outcome"
)

// Outcome label values.
const (
	Succeeded = "succeeded"
	Failed    = "failed"
)

// Metrics records handle operations as Prometheus collectors.
//
// It implements Notifier; register it on the handle and expose the
// registry through promhttp or push it to a Pushgateway.
type Metrics struct {
	reg prometheus.Gatherer

	operations *prometheus.CounterVec   // neosqlite_operations_total
	rows       *prometheus.CounterVec   // neosqlite_rows_affected_total
	duration   *prometheus.HistogramVec // neosqlite_operation_duration_seconds
}

// NewMetrics creates the operation collectors and registers them on reg.
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	operations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neosqlite",
			Name:      "operations_total",
			Help:      "Mutating handle operations, partitioned by database, op and outcome.",
		},
		[]string{DatabaseLabel, OpLabel, OutcomeLabel},
	)
	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neosqlite",
			Name:      "rows_affected_total",
			Help:      "Rows affected by successful operations.",
		},
		[]string{DatabaseLabel, OpLabel},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "neosqlite",
			Name:      "operation_duration_seconds",
			Help:      "Wall time of handle operations in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{DatabaseLabel, OpLabel},
	)

	collectors := []prometheus.Collector{operations, rows, duration}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			for _, done := range collectors[:i] {
				reg.Unregister(done)
			}
			return nil, fmt.Errorf("events: register collector %d: %w", i, err)
		}
	}

	return &Metrics{
		reg:        reg,
		operations: operations,
		rows:       rows,
		duration:   duration,
	}, nil
}

// Notify records one event.
func (m *Metrics) Notify(e Event) {
	op := string(e.Op)

	outcome := Succeeded
	if e.Failed() {
		outcome = Failed
	}
	m.operations.WithLabelValues(e.Database, op, outcome).Inc()
	m.duration.WithLabelValues(e.Database, op).Observe(e.Duration.Seconds())

	if !e.Failed() && e.Rows > 0 {
		m.rows.WithLabelValues(e.Database, op).Add(float64(e.Rows))
	}
}

// Push sends the current metric values to a Prometheus Pushgateway under
// the given job name. Used by short-lived CLI commands that are never scraped.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	if gatewayURL == "" {
		return fmt.Errorf("events: pushgateway URL is required")
	}
	if err := push.New(gatewayURL, job).Gatherer(m.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("events: push to %s: %w", gatewayURL, err)
	}
	return nil
}
