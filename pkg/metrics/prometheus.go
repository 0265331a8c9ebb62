// Package metrics provides Prometheus metrics for the screening analysis service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Curve fitting
	fitsTotal      *prometheus.CounterVec
	fitFailures    *prometheus.CounterVec
	fitDurationMs  prometheus.Histogram
	fitR2          prometheus.Histogram
	modelSelected  *prometheus.CounterVec

	// ZIP bootstrap
	bootstrapRuns        prometheus.Counter
	bootstrapDurationMs  prometheus.Histogram
	degenerateMarginals  prometheus.Counter
	bootstrapIterations  prometheus.Histogram

	// Spectral LSH
	spectraIndexed   prometheus.Counter
	lshBuckets       prometheus.Gauge
	lshCandidates    prometheus.Counter
	similarityEdges  prometheus.Counter

	// Knowledge graph
	graphNodes prometheus.Gauge
	graphEdges prometheus.Gauge

	// Queue / worker pool
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueRejects     prometheus.Counter
	workerCount      prometheus.Gauge
	workerLatencyMs  prometheus.Histogram
	workerErrors     prometheus.Counter
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "screen",
		subsystem:        "analysis",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.fitsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fits_total",
		Help:      "Total dose-response fits performed, labeled by model",
	}, []string{"model"})

	m.fitFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fit_failures_total",
		Help:      "Total dose-response fit failures, labeled by kind",
	}, []string{"kind"})

	m.fitDurationMs = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fit_duration_ms",
		Help:      "Curve fit duration in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250},
	})

	m.fitR2 = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fit_r2",
		Help:      "Goodness of fit (R squared) of completed fits",
		Buckets:   []float64{0.5, 0.8, 0.9, 0.95, 0.99, 0.999},
	})

	m.modelSelected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_selected_total",
		Help:      "Model chosen by AIC-based selection, labeled by model",
	}, []string{"model"})

	m.bootstrapRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bootstrap_runs_total",
		Help:      "Total ZIP bootstrap estimations run",
	})

	m.bootstrapDurationMs = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bootstrap_duration_ms",
		Help:      "ZIP bootstrap duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	m.degenerateMarginals = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "degenerate_marginals_total",
		Help:      "Bootstrap iterations scored zero for lack of single-agent points",
	})

	m.bootstrapIterations = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bootstrap_iterations",
		Help:      "Iterations per bootstrap run",
		Buckets:   []float64{10, 50, 100, 250, 500, 1000},
	})

	m.spectraIndexed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "spectra_indexed_total",
		Help:      "Spectra added to the LSH index",
	})

	m.lshBuckets = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "lsh_buckets",
		Help:      "Precursor buckets in the most recent LSH pass",
	})

	m.lshCandidates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "lsh_candidate_pairs_total",
		Help:      "Candidate pairs produced by banded LSH",
	})

	m.similarityEdges = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "similarity_edges_total",
		Help:      "Candidate pairs confirmed by cosine scoring and recorded as edges",
	})

	m.graphNodes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "graph_nodes",
		Help:      "Nodes in the knowledge graph",
	})

	m.graphEdges = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "graph_edges",
		Help:      "Edges in the knowledge graph",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Fit jobs currently queued",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Configured fit queue capacity",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization",
		Help:      "Fit queue utilization ratio (0-1)",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueues_total",
		Help:      "Fit jobs accepted by the queue",
	})

	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeues_total",
		Help:      "Fit jobs handed to workers",
	})

	m.queueRejects = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_rejects_total",
		Help:      "Fit jobs rejected because the queue was full or closed",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Fit workers currently running",
	})

	m.workerLatencyMs = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_latency_ms",
		Help:      "Per-job processing latency in milliseconds",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500},
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Fit jobs that ended in an error",
	})
}

// RecordFit counts a completed fit for the given model kind.
func RecordFit(model string) {
	globalManager.fitsTotal.WithLabelValues(model).Inc()
}

// RecordFitFailure counts a failed fit by failure kind.
func RecordFitFailure(kind string) {
	globalManager.fitFailures.WithLabelValues(kind).Inc()
}

// RecordFitDuration records fit duration in milliseconds.
func RecordFitDuration(ms float64) {
	globalManager.fitDurationMs.Observe(ms)
}

// RecordFitR2 records the R squared of a completed fit.
func RecordFitR2(r2 float64) {
	globalManager.fitR2.Observe(r2)
}

// RecordModelSelected counts the model chosen by auto selection.
func RecordModelSelected(model string) {
	globalManager.modelSelected.WithLabelValues(model).Inc()
}

// RecordBootstrapRun counts a completed bootstrap estimation.
func RecordBootstrapRun() {
	globalManager.bootstrapRuns.Inc()
}

// RecordBootstrapDuration records bootstrap duration in milliseconds.
func RecordBootstrapDuration(ms float64) {
	globalManager.bootstrapDurationMs.Observe(ms)
}

// RecordDegenerateMarginals counts zero-scored bootstrap iterations.
func RecordDegenerateMarginals(n int) {
	globalManager.degenerateMarginals.Add(float64(n))
}

// RecordBootstrapIterations records the iteration count of a run.
func RecordBootstrapIterations(n int) {
	globalManager.bootstrapIterations.Observe(float64(n))
}

// RecordSpectraIndexed counts spectra added to the LSH index.
func RecordSpectraIndexed(n int) {
	globalManager.spectraIndexed.Add(float64(n))
}

// UpdateLSHBuckets sets the bucket count of the most recent LSH pass.
func UpdateLSHBuckets(n int) {
	globalManager.lshBuckets.Set(float64(n))
}

// RecordLSHCandidates counts candidate pairs produced by banding.
func RecordLSHCandidates(n int) {
	globalManager.lshCandidates.Add(float64(n))
}

// RecordSimilarityEdge counts a confirmed similarity edge.
func RecordSimilarityEdge() {
	globalManager.similarityEdges.Inc()
}

// UpdateGraphNodes sets the node count of the knowledge graph.
func UpdateGraphNodes(n int) {
	globalManager.graphNodes.Set(float64(n))
}

// UpdateGraphEdges sets the edge count of the knowledge graph.
func UpdateGraphEdges(n int) {
	globalManager.graphEdges.Set(float64(n))
}

// UpdateQueueSize sets the current fit queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an accepted fit job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueues.Inc()
}

// RecordQueueDequeue counts a dequeued fit job.
func RecordQueueDequeue() {
	globalManager.queueDequeues.Inc()
}

// RecordQueueReject counts a rejected fit job.
func RecordQueueReject() {
	globalManager.queueRejects.Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerLatency records per-job worker latency in milliseconds.
func RecordWorkerLatency(ms float64) {
	globalManager.workerLatencyMs.Observe(ms)
}

// RecordWorkerError counts a failed fit job.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
