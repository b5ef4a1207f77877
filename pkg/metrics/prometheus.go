// Package metrics provides Prometheus metrics for the evaluation session engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Evaluation flow metrics
	sessionsStarted  prometheus.Counter
	sessionsRestored *prometheus.CounterVec
	sessionsActive   prometheus.Gauge
	decisions        *prometheus.CounterVec
	gradesFinalized  *prometheus.CounterVec
	reevaluations    prometheus.Counter
	duplicateSubmits prometheus.Counter

	// Durability scheduler metrics
	dirtyMarks       prometheus.Counter
	saveTriggers     *prometheus.CounterVec
	intervalChanges  prometheus.Counter
	autosaveInterval prometheus.Gauge

	// Write pipeline metrics
	saves          *prometheus.CounterVec
	saveDuration   prometheus.Histogram
	saveRetries    prometheus.Counter
	retryQueueDepth prometheus.Gauge
	queueFlushes   *prometheus.CounterVec
	historySize    prometheus.Gauge

	// Store metrics
	storeOps      *prometheus.CounterVec
	storeLatency  prometheus.Histogram
	storeBytes    prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorsByEndpoint *prometheus.CounterVec
	errorsByType     *prometheus.CounterVec
	errorLatency     *prometheus.HistogramVec
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
		namespace:        "fitrep",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // metric families are declared in one place
	auto := promauto.With(m.registry)

	// Evaluation flow
	m.sessionsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_started_total",
		Help:      "Total number of evaluation sessions created",
	})

	m.sessionsRestored = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "sessions_opened_total",
			Help:      "Total number of session opens by outcome (restored or fresh)",
		},
		[]string{"outcome"},
	)

	m.sessionsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_active",
		Help:      "Number of sessions currently held by the engine",
	})

	m.decisions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "decisions_total",
			Help:      "Total number of ladder decisions by kind",
		},
		[]string{"decision"},
	)

	m.gradesFinalized = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "grades_finalized_total",
			Help:      "Total number of finalized trait grades by grade letter",
		},
		[]string{"grade"},
	)

	m.reevaluations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reevaluations_total",
		Help:      "Total number of re-evaluation overrides started",
	})

	m.duplicateSubmits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_submissions_total",
		Help:      "Total number of replayed submissions dropped by idempotency keys",
	})

	// Durability scheduler
	m.dirtyMarks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dirty_marks_total",
		Help:      "Total number of tracked mutations marking session state dirty",
	})

	m.saveTriggers = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "save_triggers_total",
			Help:      "Total number of save triggers by origin (debounce, periodic, manual, flush)",
		},
		[]string{"trigger"},
	)

	m.intervalChanges = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "autosave_interval_changes_total",
		Help:      "Total number of adaptive autosave interval recomputations that changed the interval",
	})

	m.autosaveInterval = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "autosave_interval_seconds",
		Help:      "Current adaptive autosave interval in seconds",
	})

	// Write pipeline
	m.saves = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "saves_total",
			Help:      "Total number of snapshot save attempts by mode (full, compact) and result (ok, quota, failure)",
		},
		[]string{"mode", "result"},
	)

	m.saveDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "save_duration_milliseconds",
		Help:      "Histogram of snapshot save durations in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.saveRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "save_retries_total",
		Help:      "Total number of save attempts beyond the first within a retry cycle",
	})

	m.retryQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "retry_queue_depth",
		Help:      "Number of compact snapshots waiting in the persisted retry queue",
	})

	m.queueFlushes = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "retry_queue_flush_total",
			Help:      "Total number of retry-queue entries processed during flushes by result (flushed, requeued)",
		},
		[]string{"result"},
	)

	m.historySize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_entries",
		Help:      "Number of entries in the rolling session history window",
	})

	// Store
	m.storeOps = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_operations_total",
			Help:      "Total number of durable store operations by op (put, get, delete) and result (ok, quota, failure, miss)",
		},
		[]string{"op", "result"},
	)

	m.storeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_latency_milliseconds",
		Help:      "Histogram of durable store operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeBytes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_bytes_used",
		Help:      "Approximate bytes held by the durable store against its quota budget",
	})

	// HTTP
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "Histogram of HTTP request durations in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Errors
	m.errorsByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Total number of errors by endpoint",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorsByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_type_total",
			Help:      "Total number of errors by type",
		},
		[]string{"error_type", "severity"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "error_latency_milliseconds",
			Help:      "Latency of operations that resulted in errors",
			Buckets:   m.histogramBuckets,
		},
		[]string{"component", "error_type"},
	)
}

// Evaluation flow functions.

// RecordSessionStarted increments the created-sessions counter.
func RecordSessionStarted() {
	globalManager.sessionsStarted.Inc()
}

// RecordSessionOpened records a session open with its outcome ("restored" or "fresh").
func RecordSessionOpened(outcome string) {
	globalManager.sessionsRestored.WithLabelValues(outcome).Inc()
}

// UpdateSessionsActive sets the number of live sessions.
func UpdateSessionsActive(count int) {
	globalManager.sessionsActive.Set(float64(count))
}

// RecordDecision increments the decision counter for one decision kind.
func RecordDecision(decision string) {
	globalManager.decisions.WithLabelValues(decision).Inc()
}

// RecordGradeFinalized increments the finalized-grade counter for a grade letter.
func RecordGradeFinalized(grade string) {
	globalManager.gradesFinalized.WithLabelValues(grade).Inc()
}

// RecordReevaluation increments the re-evaluation counter.
func RecordReevaluation() {
	globalManager.reevaluations.Inc()
}

// RecordDuplicateSubmission increments the idempotency-replay counter.
func RecordDuplicateSubmission() {
	globalManager.duplicateSubmits.Inc()
}

// Durability scheduler functions.

// RecordDirtyMark increments the tracked-mutation counter.
func RecordDirtyMark() {
	globalManager.dirtyMarks.Inc()
}

// RecordSaveTrigger increments the save-trigger counter for one origin.
func RecordSaveTrigger(trigger string) {
	globalManager.saveTriggers.WithLabelValues(trigger).Inc()
}

// RecordIntervalChange increments the adaptive-interval change counter.
func RecordIntervalChange() {
	globalManager.intervalChanges.Inc()
}

// UpdateAutosaveInterval sets the current adaptive interval in seconds.
func UpdateAutosaveInterval(seconds float64) {
	globalManager.autosaveInterval.Set(seconds)
}

// Write pipeline functions.

// RecordSave increments the save counter for a mode/result pair.
func RecordSave(mode, result string) {
	globalManager.saves.WithLabelValues(mode, result).Inc()
}

// RecordSaveDuration records one save attempt's duration in milliseconds.
func RecordSaveDuration(latencyMs float64) {
	globalManager.saveDuration.Observe(latencyMs)
}

// RecordSaveRetry increments the retry counter.
func RecordSaveRetry() {
	globalManager.saveRetries.Inc()
}

// UpdateRetryQueueDepth sets the persisted retry queue depth.
func UpdateRetryQueueDepth(depth int) {
	globalManager.retryQueueDepth.Set(float64(depth))
}

// RecordQueueFlush records one processed queue entry by result ("flushed" or "requeued").
func RecordQueueFlush(result string) {
	globalManager.queueFlushes.WithLabelValues(result).Inc()
}

// UpdateHistorySize sets the rolling history window size.
func UpdateHistorySize(size int) {
	globalManager.historySize.Set(float64(size))
}

// Store functions.

// RecordStoreOp increments the store operation counter.
func RecordStoreOp(op, result string) {
	globalManager.storeOps.WithLabelValues(op, result).Inc()
}

// RecordStoreLatency records a store operation's latency in milliseconds.
func RecordStoreLatency(latencyMs float64) {
	globalManager.storeLatency.Observe(latencyMs)
}

// UpdateStoreBytes sets the approximate store usage in bytes.
func UpdateStoreBytes(bytes int64) {
	globalManager.storeBytes.Set(float64(bytes))
}

// HTTP functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error functions.

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
