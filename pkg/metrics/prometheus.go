// Package metrics provides Prometheus metrics for the hoops reconciliation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Session lifecycle
	sessionsStarted   prometheus.Counter
	sessionsEnded     prometheus.Counter
	sessionConflicts  prometheus.Counter
	sessionStateError *prometheus.CounterVec

	// Reconciliation
	scoresAccepted     *prometheus.CounterVec
	scoresRejected     *prometheus.CounterVec
	pointsCommitted    prometheus.Counter
	reconcileLatency   *prometheus.HistogramVec
	leaderboardSubmits prometheus.Counter
	leaderboardResets  prometheus.Counter

	// Remote dependencies
	dependencyLatency *prometheus.HistogramVec
	dependencyErrors  *prometheus.CounterVec
	writeConflicts    prometheus.Counter

	// Notifications
	notifyQueueSize    prometheus.Gauge
	notifyQueueCap     prometheus.Gauge
	notifyEnqueued     prometheus.Counter
	notifyDropped      *prometheus.CounterVec
	notifyDelivered    *prometheus.CounterVec
	notifyFailed       *prometheus.CounterVec
	notifyWorkers      prometheus.Gauge
	notifyDeliveryTime prometheus.Histogram

	// Leaderboard store
	leaderboardPlayers *prometheus.GaugeVec
	catalogTargets     prometheus.Gauge
	catalogReloads     prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpDuplicates      prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "hoops",
		subsystem:        "reconcile",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		Buckets: m.histogramBuckets, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	m.sessionsStarted = m.counter("sessions_started_total", "Sessions opened")
	m.sessionsEnded = m.counter("sessions_ended_total", "Sessions closed through EndSession or a final batch")
	m.sessionConflicts = m.counter("session_conflicts_total", "StartSession calls rejected because a session was still open")
	m.sessionStateError = m.counterVec("session_state_errors_total", "Calls rejected for session lifecycle reasons", "code")

	m.scoresAccepted = m.counterVec("scores_accepted_total", "Score events accepted", "path")
	m.scoresRejected = m.counterVec("scores_rejected_total", "Score events rejected by validation", "path", "code")
	m.pointsCommitted = m.counter("points_committed_total", "Validated points committed to session scores")
	m.reconcileLatency = m.histogramVec("operation_latency_milliseconds", "Latency of produced operations", "operation", "outcome")
	m.leaderboardSubmits = m.counter("leaderboard_submissions_total", "Leaderboard delta submissions")
	m.leaderboardResets = m.counter("leaderboard_resets_total", "Leaderboard reset flows completed")

	m.dependencyLatency = m.histogramVec("dependency_latency_milliseconds", "Latency of remote dependency calls", "dependency", "operation")
	m.dependencyErrors = m.counterVec("dependency_errors_total", "Remote dependency failures", "dependency", "operation")
	m.writeConflicts = m.counter("player_state_write_conflicts_total", "Player state writes rejected by a stale write lock")

	m.notifyQueueSize = m.gauge("notify_queue_size", "Notices waiting for delivery")
	m.notifyQueueCap = m.gauge("notify_queue_capacity", "Notice queue capacity")
	m.notifyEnqueued = m.counter("notify_enqueued_total", "Notices accepted for delivery")
	m.notifyDropped = m.counterVec("notify_dropped_total", "Notices dropped before delivery", "reason")
	m.notifyDelivered = m.counterVec("notify_delivered_total", "Notices delivered", "audience", "type")
	m.notifyFailed = m.counterVec("notify_failed_total", "Notice deliveries that failed", "audience", "type")
	m.notifyWorkers = m.gauge("notify_workers", "Notification delivery workers")
	m.notifyDeliveryTime = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("notify_delivery_milliseconds"),
		Help: "Time spent delivering one notice", Buckets: m.histogramBuckets, ConstLabels: m.customLabels,
	})

	m.leaderboardPlayers = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("leaderboard_players"),
		Help: "Players ranked on the current leaderboard version", ConstLabels: m.customLabels,
	}, []string{"leaderboard"})
	m.catalogTargets = m.gauge("catalog_targets", "Scoring targets in the latest catalog snapshot")
	m.catalogReloads = m.counter("catalog_reloads_total", "Catalog source reloads")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.httpDuplicates = m.counter("http_duplicate_submissions_total", "Submissions rejected by idempotency key")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

// Enabled reports whether recording is active.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often gauges fed by pollers should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Default returns the process-wide manager.
func Default() *Manager { return globalManager }

func on() bool { return globalManager.enabled }

// RecordSessionStarted increments the sessions started counter.
func RecordSessionStarted() {
	if on() {
		globalManager.sessionsStarted.Inc()
	}
}

// RecordSessionEnded increments the sessions ended counter.
func RecordSessionEnded() {
	if on() {
		globalManager.sessionsEnded.Inc()
	}
}

// RecordSessionConflict increments the overlapping session counter.
func RecordSessionConflict() {
	if on() {
		globalManager.sessionConflicts.Inc()
	}
}

// RecordSessionStateError counts a lifecycle rejection by error code.
func RecordSessionStateError(code string) {
	if on() {
		globalManager.sessionStateError.WithLabelValues(code).Inc()
	}
}

// RecordScoresAccepted adds n accepted events on the given path ("single" or "batch").
func RecordScoresAccepted(path string, n int) {
	if on() {
		globalManager.scoresAccepted.WithLabelValues(path).Add(float64(n))
	}
}

// RecordScoreRejected counts a validation rejection.
func RecordScoreRejected(path, code string) {
	if on() {
		globalManager.scoresRejected.WithLabelValues(path, code).Inc()
	}
}

// RecordPointsCommitted adds committed points.
func RecordPointsCommitted(points int64) {
	if on() && points > 0 {
		globalManager.pointsCommitted.Add(float64(points))
	}
}

// RecordOperationLatency observes a produced operation's latency.
func RecordOperationLatency(operation, outcome string, latencyMs float64) {
	if on() {
		globalManager.reconcileLatency.WithLabelValues(operation, outcome).Observe(latencyMs)
	}
}

// RecordLeaderboardSubmit increments the leaderboard submissions counter.
func RecordLeaderboardSubmit() {
	if on() {
		globalManager.leaderboardSubmits.Inc()
	}
}

// RecordLeaderboardReset increments the completed reset counter.
func RecordLeaderboardReset() {
	if on() {
		globalManager.leaderboardResets.Inc()
	}
}

// RecordDependencyLatency observes one remote call.
func RecordDependencyLatency(dependency, operation string, latencyMs float64) {
	if on() {
		globalManager.dependencyLatency.WithLabelValues(dependency, operation).Observe(latencyMs)
	}
}

// RecordDependencyError counts one remote call failure.
func RecordDependencyError(dependency, operation string) {
	if on() {
		globalManager.dependencyErrors.WithLabelValues(dependency, operation).Inc()
	}
}

// RecordWriteConflict counts a stale write lock.
func RecordWriteConflict() {
	if on() {
		globalManager.writeConflicts.Inc()
	}
}

// UpdateNotifyQueueSize sets the number of queued notices.
func UpdateNotifyQueueSize(size int) {
	if on() {
		globalManager.notifyQueueSize.Set(float64(size))
	}
}

// UpdateNotifyQueueCapacity sets the notice queue capacity.
func UpdateNotifyQueueCapacity(capacity int) {
	if on() {
		globalManager.notifyQueueCap.Set(float64(capacity))
	}
}

// RecordNotifyEnqueued counts an accepted notice.
func RecordNotifyEnqueued() {
	if on() {
		globalManager.notifyEnqueued.Inc()
	}
}

// RecordNotifyDropped counts a notice dropped before delivery.
func RecordNotifyDropped(reason string) {
	if on() {
		globalManager.notifyDropped.WithLabelValues(reason).Inc()
	}
}

// RecordNotifyDelivered counts a delivered notice.
func RecordNotifyDelivered(audience, msgType string, latencyMs float64) {
	if on() {
		globalManager.notifyDelivered.WithLabelValues(audience, msgType).Inc()
		globalManager.notifyDeliveryTime.Observe(latencyMs)
	}
}

// RecordNotifyFailed counts a failed delivery.
func RecordNotifyFailed(audience, msgType string) {
	if on() {
		globalManager.notifyFailed.WithLabelValues(audience, msgType).Inc()
	}
}

// UpdateNotifyWorkers sets the number of delivery workers.
func UpdateNotifyWorkers(count int) {
	if on() {
		globalManager.notifyWorkers.Set(float64(count))
	}
}

// UpdateLeaderboardPlayers sets the number of ranked players on a leaderboard.
func UpdateLeaderboardPlayers(leaderboardID string, count int) {
	if on() {
		globalManager.leaderboardPlayers.WithLabelValues(leaderboardID).Set(float64(count))
	}
}

// UpdateCatalogTargets sets the target count of the latest catalog snapshot.
func UpdateCatalogTargets(count int) {
	if on() {
		globalManager.catalogTargets.Set(float64(count))
	}
}

// RecordCatalogReload counts a catalog source reload.
func RecordCatalogReload() {
	if on() {
		globalManager.catalogReloads.Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if on() {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if on() {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordHTTPDuplicate counts an idempotency-key replay.
func RecordHTTPDuplicate() {
	if on() {
		globalManager.httpDuplicates.Inc()
	}
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if on() {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if on() {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
