// Package metrics holds the Prometheus collectors exported by the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Core computation metrics
var (
	// ComputationsTotal counts core invocations by component and outcome
	ComputationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockintel_computations_total",
		Help: "Total number of inventory intelligence computations",
	}, []string{"component", "outcome"}) // outcome: ok, insufficient_data, invalid, error

	// ComputationDuration tracks how long each component takes per call
	ComputationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stockintel_computation_duration_seconds",
		Help:    "Duration of inventory intelligence computations in seconds",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"component"})

	// SimulationTrialsTotal counts Monte Carlo trials executed
	SimulationTrialsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockintel_simulation_trials_total",
		Help: "Total number of stockout simulation trials executed",
	})
)

// Cache and pipeline metrics
var (
	// CacheRequestsTotal counts result cache lookups
	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockintel_cache_requests_total",
		Help: "Result cache lookups by result",
	}, []string{"result"}) // result: hit, miss, error

	// PipelineSKUsTotal counts SKUs processed by the batch runner
	PipelineSKUsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockintel_pipeline_skus_total",
		Help: "SKUs processed by the evaluation pipeline",
	}, []string{"status"}) // status: completed, partial, failed

	// PipelineWorkersActive is the number of busy pipeline workers
	PipelineWorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stockintel_pipeline_workers_active",
		Help: "Number of pipeline workers currently evaluating a SKU",
	})
)

// ObserveComputation records one computation for component with the given outcome.
func ObserveComputation(component, outcome string, started time.Time) {
	ComputationsTotal.WithLabelValues(component, outcome).Inc()
	ComputationDuration.WithLabelValues(component).Observe(time.Since(started).Seconds())
}
