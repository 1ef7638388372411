// Package metrics provides Prometheus metrics recording for internal packages.
// This package exists to avoid import cycles between the registry, filter,
// reasoner and middleware packages.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// registrySaves tracks execution snapshots stored, by status
	registrySaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xray_registry_saves_total",
			Help: "Total number of execution snapshots saved",
		},
		[]string{"status"},
	)

	// registryExecutions tracks the number of executions held
	registryExecutions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "xray_registry_executions",
			Help: "Number of executions held in the trace registry",
		},
	)

	// registrySubscribers tracks the number of registered listeners
	registrySubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "xray_registry_subscribers",
			Help: "Number of trace registry subscribers",
		},
	)

	// executionsFinished tracks executions reaching a terminal status
	executionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xray_executions_finished_total",
			Help: "Total number of executions reaching a terminal status",
		},
		[]string{"workflow", "status"},
	)

	// executionDuration tracks end-to-end pipeline duration
	executionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xray_execution_duration_seconds",
			Help:    "Pipeline execution duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"workflow"},
	)

	// filterItems tracks items entering and surviving the filter
	filterItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xray_filter_items_total",
			Help: "Total number of items seen by the dynamic filter",
		},
		[]string{"result"},
	)

	// filterRules tracks rules applied by the dynamic filter
	filterRules = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xray_filter_rules_total",
			Help: "Total number of generated filter rules applied",
		},
	)

	// reasonerDuration tracks reasoner call duration in seconds
	reasonerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xray_reasoner_duration_seconds",
			Help:    "Reasoner call duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"backend"},
	)

	// reasonerErrors tracks failed reasoner calls
	reasonerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xray_reasoner_errors_total",
			Help: "Total number of failed reasoner calls",
		},
		[]string{"backend"},
	)

	// reasonerCache tracks reasoner cache lookups
	reasonerCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xray_reasoner_cache_total",
			Help: "Total number of reasoner cache lookups",
		},
		[]string{"result"},
	)
)

// RecordSave records an execution snapshot stored in the registry
func RecordSave(status string, executions int) {
	registrySaves.WithLabelValues(status).Inc()
	registryExecutions.Set(float64(executions))
}

// SetSubscribers records the current subscriber count
func SetSubscribers(n int) {
	registrySubscribers.Set(float64(n))
}

// RecordExecution records a finished pipeline execution
func RecordExecution(workflow, status string, duration time.Duration) {
	executionsFinished.WithLabelValues(workflow, status).Inc()
	executionDuration.WithLabelValues(workflow).Observe(duration.Seconds())
}

// RecordFilter records one filter pass
func RecordFilter(in, kept, rules int) {
	filterItems.WithLabelValues("kept").Add(float64(kept))
	filterItems.WithLabelValues("dropped").Add(float64(in - kept))
	filterRules.Add(float64(rules))
}

// RecordReasonerCall records a reasoner call
func RecordReasonerCall(backend string, duration time.Duration, err error) {
	reasonerDuration.WithLabelValues(backend).Observe(duration.Seconds())
	if err != nil {
		reasonerErrors.WithLabelValues(backend).Inc()
	}
}

// RecordCacheLookup records a reasoner cache hit or miss
func RecordCacheLookup(hit bool) {
	if hit {
		reasonerCache.WithLabelValues("hit").Inc()
		return
	}
	reasonerCache.WithLabelValues("miss").Inc()
}
