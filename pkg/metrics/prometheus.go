// Package metrics provides Prometheus metrics for the upshot screenshot proxy.
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

// Fetch outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Manager manages all Prometheus metrics for the proxy.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Proxy metrics
	hitsRecorded   prometheus.Counter
	hitsFailed     prometheus.Counter
	invalidKeys    prometheus.Counter
	imagesServed   prometheus.Counter
	imagesNotFound prometheus.Counter
	fetchAttempts  *prometheus.CounterVec
	fetchRetries   prometheus.Counter
	fetchLatency   *prometheus.HistogramVec
	bytesServed    prometheus.Counter

	// Counter store metrics
	storeKeys      prometheus.Gauge
	storeHits      prometheus.Gauge
	storeLatency   *prometheus.HistogramVec
	writerQueueLen prometheus.Gauge
	writerQueueCap prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "upshot",
		subsystem:        "proxy",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval reports how often gauge updaters should run.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.hitsRecorded = m.counter("hits_recorded_total", "Total number of hits persisted to the counter store")
	m.hitsFailed = m.counter("hits_failed_total", "Total number of hits that could not be persisted")
	m.invalidKeys = m.counter("invalid_keys_total", "Total number of requests rejected for an invalid image key")
	m.imagesServed = m.counter("images_served_total", "Total number of images streamed to clients")
	m.imagesNotFound = m.counter("images_not_found_total", "Total number of requests answered with Image not found")
	m.fetchAttempts = m.counterVec("fetch_attempts_total", "Remote fetch attempts by outcome", "outcome")
	m.fetchRetries = m.counter("fetch_retries_total", "Total number of fetches retried after a failed first attempt")
	m.fetchLatency = m.histogramVec("fetch_latency_milliseconds", "Latency of a single remote fetch attempt in milliseconds", "outcome")
	m.bytesServed = m.counter("bytes_served_total", "Total number of image bytes written to clients")

	m.storeKeys = m.gauge("store_keys", "Number of distinct image keys in the counter store")
	m.storeHits = m.gauge("store_hits", "Sum of all hit counts in the counter store")
	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Counter store operation latency in milliseconds", "operation")
	m.writerQueueLen = m.gauge("writer_queue_size", "Current number of increments waiting for the writer")
	m.writerQueueCap = m.gauge("writer_queue_capacity", "Maximum writer queue capacity")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component",
		"component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Total number of errors by type",
		"error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint",
		"endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of operations that resulted in errors",
		"component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordHit increments the persisted hits counter.
func RecordHit() {
	if globalManager.enabled {
		globalManager.hitsRecorded.Inc()
	}
}

// RecordHitFailure increments the failed hits counter.
func RecordHitFailure() {
	if globalManager.enabled {
		globalManager.hitsFailed.Inc()
	}
}

// RecordInvalidKey increments the invalid key counter.
func RecordInvalidKey() {
	if globalManager.enabled {
		globalManager.invalidKeys.Inc()
	}
}

// RecordImageServed records a successful response and its size.
func RecordImageServed(bytes int) {
	if globalManager.enabled {
		globalManager.imagesServed.Inc()
		globalManager.bytesServed.Add(float64(bytes))
	}
}

// RecordImageNotFound increments the not-found counter.
func RecordImageNotFound() {
	if globalManager.enabled {
		globalManager.imagesNotFound.Inc()
	}
}

// RecordFetchAttempt records one remote fetch attempt with its outcome and latency.
func RecordFetchAttempt(outcome string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.fetchAttempts.WithLabelValues(outcome).Inc()
		globalManager.fetchLatency.WithLabelValues(outcome).Observe(latencyMs)
	}
}

// RecordFetchRetry increments the retry counter.
func RecordFetchRetry() {
	if globalManager.enabled {
		globalManager.fetchRetries.Inc()
	}
}

// UpdateStoreTotals sets the key and hit gauges.
func UpdateStoreTotals(keys int, hits int64) {
	if globalManager.enabled {
		globalManager.storeKeys.Set(float64(keys))
		globalManager.storeHits.Set(float64(hits))
	}
}

// RecordStoreLatency records a counter store operation latency.
func RecordStoreLatency(operation string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
	}
}

// UpdateWriterQueueSize sets the current writer queue length.
func UpdateWriterQueueSize(size int) {
	if globalManager.enabled {
		globalManager.writerQueueLen.Set(float64(size))
	}
}

// UpdateWriterQueueCapacity sets the writer queue capacity.
func UpdateWriterQueueCapacity(capacity int) {
	if globalManager.enabled {
		globalManager.writerQueueCap.Set(float64(capacity))
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if globalManager.enabled {
		globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
	}
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval reports how often the global manager's gauges should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// SetEnabled toggles recording on the global manager.
func SetEnabled(enabled bool) {
	globalManager.enabled = enabled
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
