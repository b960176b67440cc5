// Package metrics exposes prometheus instrumentation for the pause batch.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Config struct {
	ServiceName string
	Environment string
}

// BatchMetrics instruments pause batch runs and per-window outcomes.
type BatchMetrics struct {
	labels prometheus.Labels

	runs         *prometheus.CounterVec
	runErrors    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	windows      *prometheus.CounterVec
	creditAmount *prometheus.HistogramVec
	lockWait     *prometheus.HistogramVec
}

var (
	batchOnce    sync.Once
	batchMetrics *BatchMetrics
)

// Batch returns the process-wide batch metrics, registering them on first
// use.
func Batch() *BatchMetrics {
	BatchWithConfig(Config{ServiceName: "revroute", Environment: "development"})
	return batchMetrics
}

func BatchWithConfig(cfg Config) {
	batchOnce.Do(func() {
		batchMetrics = newBatchMetrics(prometheus.DefaultRegisterer, cfg)
	})
}

// ResetBatchMetricsForTest clears the singleton so tests can install a fresh
// registry.
func ResetBatchMetricsForTest() {
	batchOnce = sync.Once{}
	batchMetrics = nil
}

func newBatchMetrics(registry prometheus.Registerer, cfg Config) *BatchMetrics {
	constLabels := prometheus.Labels{
		"service": cfg.ServiceName,
		"env":     cfg.Environment,
	}
	factory := promauto.With(registry)

	return &BatchMetrics{
		labels: constLabels,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "revroute_pause_batch_runs_total",
			Help:        "Pause batch runs by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		runErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "revroute_pause_batch_run_errors_total",
			Help:        "Per-window errors recorded during batch runs.",
			ConstLabels: constLabels,
		}, []string{"phase"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "revroute_pause_batch_run_duration_seconds",
			Help:        "Wall time of one batch run.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{}),
		windows: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "revroute_pause_batch_windows_total",
			Help:        "Windows processed by phase and outcome.",
			ConstLabels: constLabels,
		}, []string{"phase", "outcome"}),
		creditAmount: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "revroute_pause_credit_amount",
			Help:        "Credit amounts applied, in major currency units.",
			ConstLabels: constLabels,
			Buckets:     []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}, []string{}),
		lockWait: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "revroute_pause_batch_lock_wait_seconds",
			Help:        "Time spent acquiring the batch run lock.",
			ConstLabels: constLabels,
			Buckets:     []float64{.001, .005, .01, .05, .1, .5, 1},
		}, []string{}),
	}
}

func (m *BatchMetrics) IncRun(result string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
}

func (m *BatchMetrics) IncWindowError(phase string) {
	if m == nil {
		return
	}
	m.runErrors.WithLabelValues(phase).Inc()
}

func (m *BatchMetrics) ObserveRunDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues().Observe(d.Seconds())
}

func (m *BatchMetrics) IncWindow(phase, outcome string) {
	if m == nil {
		return
	}
	m.windows.WithLabelValues(phase, outcome).Inc()
}

func (m *BatchMetrics) ObserveCreditAmount(amount float64) {
	if m == nil {
		return
	}
	m.creditAmount.WithLabelValues().Observe(amount)
}

func (m *BatchMetrics) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues().Observe(d.Seconds())
}
