// Package metrics exposes validation run measurements as Prometheus
// collectors on a private registry.
//
// The CLI is a batch process, so nothing is scraped: at the end of a run
// the registry is written in text exposition format for a node_exporter
// textfile collector (see WriteTextfile).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sdtmcheck"

// Metrics holds Prometheus metrics for validation runs.
// Safe for concurrent use; the engine records from worker goroutines.
type Metrics struct {
	registry *prometheus.Registry

	// Rule evaluation
	rulesTotal   *prometheus.CounterVec
	ruleDuration *prometheus.HistogramVec

	// Violations
	violationsTotal *prometheus.CounterVec

	// Runs
	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram
}

// New creates metrics registered on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.rulesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rules_evaluated_total",
			Help:      "Total number of rules processed, by domain and outcome",
		},
		[]string{"domain", "outcome"},
	)
	m.ruleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rule_evaluation_duration_seconds",
			Help:      "Time spent evaluating one rule mask",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"outcome"},
	)
	m.violationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Total number of violations produced, by severity",
		},
		[]string{"severity"},
	)
	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of validation runs, by status",
		},
		[]string{"status"},
	)
	m.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a validation run",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)

	m.registry.MustRegister(m.rulesTotal, m.ruleDuration, m.violationsTotal, m.runsTotal, m.runDuration)
	return m
}

// Registry returns the registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRule records one rule outcome. Outcomes decided without
// evaluating a mask (missing domain or variable) carry zero elapsed time
// and are not added to the duration histogram.
func (m *Metrics) ObserveRule(domain, outcome string, elapsed time.Duration) {
	m.rulesTotal.WithLabelValues(domain, outcome).Inc()
	if elapsed > 0 {
		m.ruleDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	}
}

// AddViolations adds n violations of the given severity.
func (m *Metrics) AddViolations(severity string, n int) {
	if n <= 0 {
		return
	}
	m.violationsTotal.WithLabelValues(severity).Add(float64(n))
}

// ObserveRun records the end of a run with status "success" or "error".
func (m *Metrics) ObserveRun(status string, elapsed time.Duration) {
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}

// WriteTextfile writes every collector to path in text exposition format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
