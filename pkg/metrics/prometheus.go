// Package metrics provides Prometheus metrics for the peer evaluation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default HTTP latency buckets in milliseconds.
var defaultHTTPBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000} //nolint:gochecknoglobals // read-only defaults

// Manager owns every collector exposed by the service.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Passcode gate
	codesIssued        prometheus.Counter
	deliveryFailures   prometheus.Counter
	issuanceThrottled  prometheus.Counter
	verifications      *prometheus.CounterVec
	authenticatedCount prometheus.Counter

	// Submissions
	submissions       *prometheus.CounterVec
	reconcileDuration prometheus.Histogram
	storeReadFallback prometheus.Counter
	writeQuirks       prometheus.Counter
	datasetRows       prometheus.Gauge
	rosterSize        prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before any recorder or GetRegistry call
// whose result is kept.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "peereval",
		histogramBuckets: defaultHTTPBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
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
		Namespace:   m.namespace,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.codesIssued = m.counter("codes_issued_total", "Passcodes generated and bound to a session")
	m.deliveryFailures = m.counter("code_delivery_failures_total", "Passcodes that could not be delivered")
	m.issuanceThrottled = m.counter("code_issuance_throttled_total", "Passcode requests rejected by the send throttle")
	m.authenticatedCount = m.counter("sessions_authenticated_total", "Sessions promoted to an authenticated identity")
	m.storeReadFallback = m.counter("store_read_fallback_total", "Dataset reads that failed and were treated as empty")
	m.writeQuirks = m.counter("store_write_quirk_total", "Dataset write errors reclassified as success")

	m.verifications = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "verifications_total",
		Help:        "Passcode verification attempts by result",
		ConstLabels: m.customLabels,
	}, []string{"result"})

	m.submissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "submissions_total",
		Help:        "Evaluation submissions by result",
		ConstLabels: m.customLabels,
	}, []string{"result"})

	m.reconcileDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Name:        "reconcile_duration_milliseconds",
		Help:        "Wall time of a full read-merge-overwrite cycle",
		Buckets:     []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		ConstLabels: m.customLabels,
	})

	m.datasetRows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Name:        "dataset_rows",
		Help:        "Rows written by the last successful reconcile",
		ConstLabels: m.customLabels,
	})

	m.rosterSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Name:        "roster_participants",
		Help:        "Participants loaded from the roster",
		ConstLabels: m.customLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "errors_by_endpoint_total",
		Help:        "HTTP errors by endpoint",
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "errors_by_type_total",
		Help:        "HTTP errors by type and severity",
		ConstLabels: m.customLabels,
	}, []string{"error_type", "severity"})
}

// RecordCodeIssued counts a generated passcode.
func RecordCodeIssued() {
	if globalManager.enabled {
		globalManager.codesIssued.Inc()
	}
}

// RecordDeliveryFailure counts a passcode that could not be dispatched.
func RecordDeliveryFailure() {
	if globalManager.enabled {
		globalManager.deliveryFailures.Inc()
	}
}

// RecordIssuanceThrottled counts a rejected passcode request.
func RecordIssuanceThrottled() {
	if globalManager.enabled {
		globalManager.issuanceThrottled.Inc()
	}
}

// RecordVerification counts a verification attempt; result is e.g. "ok", "mismatch".
func RecordVerification(result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.verifications.WithLabelValues(result).Inc()
	if result == "ok" {
		globalManager.authenticatedCount.Inc()
	}
}

// RecordSubmission counts a submission outcome ("saved", "failed", "invalid").
func RecordSubmission(result string) {
	if globalManager.enabled {
		globalManager.submissions.WithLabelValues(result).Inc()
	}
}

// RecordReconcileDuration records one reconcile cycle.
func RecordReconcileDuration(d time.Duration) {
	if globalManager.enabled {
		globalManager.reconcileDuration.Observe(float64(d.Milliseconds()))
	}
}

// RecordStoreReadFallback counts a failed read treated as an empty dataset.
func RecordStoreReadFallback() {
	if globalManager.enabled {
		globalManager.storeReadFallback.Inc()
	}
}

// RecordWriteQuirk counts a write error reclassified as success.
func RecordWriteQuirk() {
	if globalManager.enabled {
		globalManager.writeQuirks.Inc()
	}
}

// UpdateDatasetRows sets the row count of the last written dataset.
func UpdateDatasetRows(n int) {
	if globalManager.enabled {
		globalManager.datasetRows.Set(float64(n))
	}
}

// UpdateRosterSize sets the number of loaded participants.
func UpdateRosterSize(n int) {
	if globalManager.enabled {
		globalManager.rosterSize.Set(float64(n))
	}
}

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordErrorByEndpoint records an error against an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	if globalManager.enabled {
		globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// GetRegistry returns the registry the global manager writes to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
