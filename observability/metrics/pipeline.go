// Package metrics exposes prometheus instrumentation for the pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type PipelineMetrics struct {
	simulations     *prometheus.CounterVec
	simulationHits  prometheus.Counter
	simulationGas   prometheus.Histogram
	broadcasts      *prometheus.CounterVec
	broadcastErrors *prometheus.CounterVec
	invalidations   *prometheus.CounterVec
	batchesBuilt    *prometheus.CounterVec
	sandwichWrapped prometheus.Counter
}

var (
	pipelineOnce     sync.Once
	pipelineRegistry *PipelineMetrics
)

// Pipeline returns the process-wide pipeline metrics, registering them on
// first use.
func Pipeline() *PipelineMetrics {
	pipelineOnce.Do(func() {
		pipelineRegistry = &PipelineMetrics{
			simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "txpipe_simulations_total",
				Help: "Count of dry-runs performed against the chain by result.",
			}, []string{"chain", "result"}),
			simulationHits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "txpipe_simulation_cache_hits_total",
				Help: "Count of simulations answered from the content-keyed cache.",
			}),
			simulationGas: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "txpipe_simulation_gas_used",
				Help:    "Gas used reported by successful dry-runs.",
				Buckets: prometheus.ExponentialBuckets(50_000, 2, 8),
			}),
			broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "txpipe_broadcasts_total",
				Help: "Count of broadcast attempts by outcome.",
			}, []string{"chain", "outcome"}),
			broadcastErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "txpipe_broadcast_errors_total",
				Help: "Count of failed broadcasts by user-facing category.",
			}, []string{"category"}),
			invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "txpipe_cache_invalidations_total",
				Help: "Count of scope invalidations triggered by settlement.",
			}, []string{"scope"}),
			batchesBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "txpipe_batches_built_total",
				Help: "Count of non-empty batches produced per action.",
			}, []string{"action"}),
			sandwichWrapped: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "txpipe_sandwich_wraps_total",
				Help: "Count of batches wrapped with vote removal/re-add pairs.",
			}),
		}
		prometheus.MustRegister(
			pipelineRegistry.simulations,
			pipelineRegistry.simulationHits,
			pipelineRegistry.simulationGas,
			pipelineRegistry.broadcasts,
			pipelineRegistry.broadcastErrors,
			pipelineRegistry.invalidations,
			pipelineRegistry.batchesBuilt,
			pipelineRegistry.sandwichWrapped,
		)
	})
	return pipelineRegistry
}

func (m *PipelineMetrics) ObserveSimulation(chain string, passed bool, gasUsed uint64) {
	result := "ok"
	if passed {
		m.simulationGas.Observe(float64(gasUsed))
	} else {
		result = "failed"
	}
	m.simulations.WithLabelValues(chain, result).Inc()
}

func (m *PipelineMetrics) ObserveSimulationCacheHit() {
	m.simulationHits.Inc()
}

func (m *PipelineMetrics) ObserveBroadcast(chain string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.broadcasts.WithLabelValues(chain, outcome).Inc()
}

func (m *PipelineMetrics) ObserveBroadcastError(category string) {
	m.broadcastErrors.WithLabelValues(category).Inc()
}

func (m *PipelineMetrics) ObserveInvalidation(scope string) {
	m.invalidations.WithLabelValues(scope).Inc()
}

func (m *PipelineMetrics) ObserveBatchBuilt(action string) {
	m.batchesBuilt.WithLabelValues(action).Inc()
}

func (m *PipelineMetrics) ObserveSandwichWrap() {
	m.sandwichWrapped.Inc()
}
