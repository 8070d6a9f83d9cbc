package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Row outcomes recorded by the dedup pass.
const (
	OutcomeMigrated = "migrated"
	OutcomeReused   = "reused"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// MigrationMetrics records progress of a pim image migration run.
type MigrationMetrics struct {
	rows     *prometheus.CounterVec
	phases   *prometheus.HistogramVec
	flushes  prometheus.Counter
	gatherer prometheus.Gatherer
}

// NewMigrationMetrics registers the migration metrics on the provided registry.
// A nil registry yields a recorder whose methods are no-ops.
func NewMigrationMetrics(reg *prometheus.Registry) *MigrationMetrics {
	if reg == nil {
		return &MigrationMetrics{}
	}
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pimimage_rows_total",
		Help: "Legacy pim image rows processed, by outcome.",
	}, []string{"outcome"})
	phases := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pimimage_phase_duration_seconds",
		Help:    "Duration of each migration phase in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.05, 4, 8),
	}, []string{"phase"})
	flushes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pimimage_statement_flushes_total",
		Help: "Batched statement flushes applied.",
	})
	reg.MustRegister(rows, phases, flushes)
	return &MigrationMetrics{
		rows:     rows,
		phases:   phases,
		flushes:  flushes,
		gatherer: reg,
	}
}

// IncRow counts one processed legacy row.
func (m *MigrationMetrics) IncRow(outcome string) {
	if m == nil || m.rows == nil {
		return
	}
	m.rows.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObservePhase records how long a phase took.
func (m *MigrationMetrics) ObservePhase(phase string, duration time.Duration) {
	if m == nil || m.phases == nil {
		return
	}
	m.phases.WithLabelValues(normalizeLabel(phase)).Observe(duration.Seconds())
}

// IncFlush counts one statement queue flush.
func (m *MigrationMetrics) IncFlush() {
	if m == nil || m.flushes == nil {
		return
	}
	m.flushes.Inc()
}

// Push sends the collected metrics to a Pushgateway. An empty URL is a no-op.
func (m *MigrationMetrics) Push(ctx context.Context, url, job string) error {
	if m == nil || m.gatherer == nil || url == "" {
		return nil
	}
	if job == "" {
		job = "pimimage_migration"
	}
	if err := push.New(url, job).Gatherer(m.gatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
