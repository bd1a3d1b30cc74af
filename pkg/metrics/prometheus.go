// Package metrics provides Prometheus metrics for the cuerank service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Engine
	challengeResolutions  *prometheus.CounterVec
	placementAllocations  *prometheus.CounterVec
	tournamentsFinalized  prometheus.Counter
	tournamentsDuplicate  prometheus.Counter
	recomputes            *prometheus.CounterVec
	recomputeLatency      prometheus.Histogram
	recomputeErrors       prometheus.Counter
	standingsSize         prometheus.Histogram
	rankMovements         *prometheus.CounterVec
	recommendationLatency *prometheus.HistogramVec

	// Locking
	lockWaitLatency prometheus.Histogram
	lockErrors      prometheus.Counter

	// Repository
	repositoryResultsTotal  prometheus.Gauge
	repositoryScopesTotal   prometheus.Gauge
	repositorySnapshotSwaps prometheus.Counter
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter
	workerRetries           prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     *prometheus.CounterVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton backing the package-level recorders

// customRegistry keeps Go runtime collectors out of the exposition.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cuerank",
		subsystem:        "engine",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	ms := m.histogramBuckets

	m.challengeResolutions = m.counterVec("challenge_resolutions_total", "Wager resolutions by outcome", "outcome")
	m.placementAllocations = m.counterVec("placement_allocations_total", "Placement point allocations by tournament tier", "tier")
	m.tournamentsFinalized = m.counter("tournaments_finalized_total", "Tournaments finalized and persisted")
	m.tournamentsDuplicate = m.counter("tournaments_duplicate_total", "Finalize requests for already finalized tournaments")
	m.recomputes = m.counterVec("standings_recomputes_total", "Standings recomputations by scope kind", "scope_kind")
	m.recomputeLatency = m.histogram("standings_recompute_latency_milliseconds", "Latency of a full scope recomputation", ms)
	m.recomputeErrors = m.counter("standings_recompute_errors_total", "Failed standings recomputations")
	m.standingsSize = m.histogram("standings_rows", "Rows written per standings snapshot",
		[]float64{1, 10, 50, 100, 500, 1000, 5000, 10000, 50000})
	m.rankMovements = m.counterVec("standings_rank_movements_total", "Players by movement between snapshots", "direction")
	m.recommendationLatency = m.histogramVec("recommendation_latency_milliseconds", "Latency of ranking recommendation candidates", "kind")

	m.lockWaitLatency = m.histogram("lock_wait_milliseconds", "Time spent waiting for a scope lock", ms)
	m.lockErrors = m.counter("lock_errors_total", "Scope lock acquire or release failures")

	m.repositoryResultsTotal = m.gauge("repository_results_total", "Match results held by the store")
	m.repositoryScopesTotal = m.gauge("repository_scopes_total", "Scopes with a published standings snapshot")
	m.repositorySnapshotSwaps = m.counter("repository_snapshot_swaps_total", "Standings snapshots replaced")
	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds", "Latency of store writes", ms)
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Latency of store reads", ms)

	m.queueSize = m.gauge("queue_size", "Recompute jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the recompute queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Jobs rejected by the queue")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Time a job spent queued", ms)

	m.workerCount = m.gauge("worker_count", "Configured workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently running a job")
	m.workerIdleCount = m.gauge("worker_idle_count", "Workers waiting for a job")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Job processing latency", ms)
	m.workerErrors = m.counter("worker_errors_total", "Jobs that failed after all retries")
	m.workerRetries = m.counter("worker_retries_total", "Job retries after a retryable failure")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")
	m.httpRateLimited = m.counterVec("http_rate_limited_total", "Requests rejected by the rate limiter", "endpoint")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordChallengeResolution counts one wager resolution by outcome
// ("ok", "invalid_argument", "not_found").
func RecordChallengeResolution(outcome string) {
	globalManager.challengeResolutions.WithLabelValues(outcome).Inc()
}

// RecordPlacementAllocation counts one allocation for tier.
func RecordPlacementAllocation(tier string) {
	globalManager.placementAllocations.WithLabelValues(tier).Inc()
}

// RecordTournamentFinalized counts a persisted tournament.
func RecordTournamentFinalized() { globalManager.tournamentsFinalized.Inc() }

// RecordTournamentDuplicate counts a repeated finalize request.
func RecordTournamentDuplicate() { globalManager.tournamentsDuplicate.Inc() }

// RecordRecompute counts a completed recomputation.
func RecordRecompute(scopeKind string) {
	globalManager.recomputes.WithLabelValues(scopeKind).Inc()
}

// RecordRecomputeLatency observes a recomputation's duration.
func RecordRecomputeLatency(latencyMs float64) { globalManager.recomputeLatency.Observe(latencyMs) }

// RecordRecomputeError counts a failed recomputation.
func RecordRecomputeError() { globalManager.recomputeErrors.Inc() }

// RecordStandingsSize observes the size of a written snapshot.
func RecordStandingsSize(rows int) { globalManager.standingsSize.Observe(float64(rows)) }

// RecordRankMovements adds movement counts of one recomputation.
func RecordRankMovements(added, dropped, up, down int) {
	globalManager.rankMovements.WithLabelValues("added").Add(float64(added))
	globalManager.rankMovements.WithLabelValues("dropped").Add(float64(dropped))
	globalManager.rankMovements.WithLabelValues("up").Add(float64(up))
	globalManager.rankMovements.WithLabelValues("down").Add(float64(down))
}

// RecordRecommendationLatency observes ranking latency for kind ("clubs", "tournaments").
func RecordRecommendationLatency(kind string, latencyMs float64) {
	globalManager.recommendationLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordLockWait observes time spent acquiring a scope lock.
func RecordLockWait(latencyMs float64) { globalManager.lockWaitLatency.Observe(latencyMs) }

// RecordLockError counts a lock failure.
func RecordLockError() { globalManager.lockErrors.Inc() }

// UpdateRepositoryResultsTotal sets the number of stored results.
func UpdateRepositoryResultsTotal(count int) {
	globalManager.repositoryResultsTotal.Set(float64(count))
}

// UpdateRepositoryScopesTotal sets the number of published scopes.
func UpdateRepositoryScopesTotal(count int) { globalManager.repositoryScopesTotal.Set(float64(count)) }

// IncrementRepositorySnapshotSwaps counts a replaced snapshot.
func IncrementRepositorySnapshotSwaps() { globalManager.repositorySnapshotSwaps.Inc() }

// RecordRepositoryUpdateLatency observes a store write.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency observes a store read.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the queue backlog.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets size/capacity.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue counts an enqueued job.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue counts a dequeued job.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// RecordQueueProcessingLatency observes time spent queued.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerActiveCount sets the busy worker count.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// UpdateWorkerIdleCount sets the idle worker count.
func UpdateWorkerIdleCount(count int) { globalManager.workerIdleCount.Set(float64(count)) }

// RecordWorkerProcessingLatency observes one job.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a job that gave up.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordWorkerRetry counts a retry.
func RecordWorkerRetry() { globalManager.workerRetries.Inc() }

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request's duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPRateLimited counts a request rejected by the limiter.
func RecordHTTPRateLimited(endpoint string) {
	globalManager.httpRateLimited.WithLabelValues(endpoint).Inc()
}

// RecordErrorByComponent counts an error.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap bytes in use.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the registry behind the package-level recorders.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
