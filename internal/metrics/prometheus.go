package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for the watcher.
// A nil *PrometheusMetrics is valid and records nothing.
type PrometheusMetrics struct {
	// Scan metrics
	BlocksScannedTotal *prometheus.CounterVec
	BlockScanDuration  *prometheus.HistogramVec
	ScanErrorsTotal    *prometheus.CounterVec
	ScanCursor         *prometheus.GaugeVec
	ChainHead          *prometheus.GaugeVec
	BlocksBehind       *prometheus.GaugeVec
	MatchesTotal       *prometheus.CounterVec

	// Chain RPC metrics
	RPCRequestsTotal   *prometheus.CounterVec
	RPCRequestDuration *prometheus.HistogramVec

	// Registry metrics
	TrackedAddresses *prometheus.GaugeVec
	AddressAddsTotal *prometheus.CounterVec

	// Balance metrics
	BalanceQueriesTotal *prometheus.CounterVec

	// Storage metrics
	DatabaseOperationsTotal   *prometheus.CounterVec
	DatabaseOperationDuration *prometheus.HistogramVec

	// Notification metrics
	NotificationsSentTotal    *prometheus.CounterVec
	NotificationFailuresTotal *prometheus.CounterVec
	NotificationDuration      *prometheus.HistogramVec
	NotificationQueueDepth    prometheus.Gauge

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application health metrics
	ApplicationUptime prometheus.Gauge
	ComponentHealth   *prometheus.GaugeVec
	MemoryUsage       prometheus.Gauge
	GoroutineCount    prometheus.Gauge
}

var (
	defaultMetrics *PrometheusMetrics
	defaultOnce    sync.Once
)

// Default returns the metrics registered on the global Prometheus registry
func Default() *PrometheusMetrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewPrometheusMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// NewPrometheusMetrics creates all metrics and registers them with reg
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		// Scan metrics
		BlocksScannedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_blocks_scanned_total",
				Help: "Total number of blocks fetched and matched",
			},
			[]string{"chain"},
		),

		BlockScanDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "watcher_block_scan_duration_seconds",
				Help:    "Time spent fetching and matching a single block",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"chain"},
		),

		ScanErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_scan_errors_total",
				Help: "Total number of failed scan steps",
			},
			[]string{"chain", "stage"},
		),

		ScanCursor: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "watcher_scan_cursor",
				Help: "Highest fully processed height per chain",
			},
			[]string{"chain"},
		),

		ChainHead: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "watcher_chain_head",
				Help: "Last observed chain head per chain",
			},
			[]string{"chain"},
		),

		BlocksBehind: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "watcher_blocks_behind",
				Help: "Number of blocks between the cursor and the chain head",
			},
			[]string{"chain"},
		),

		MatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_matches_total",
				Help: "Total number of transactions matched against tracked addresses",
			},
			[]string{"chain", "direction"},
		),

		// Chain RPC metrics
		RPCRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_rpc_requests_total",
				Help: "Total number of RPC requests made to chain nodes",
			},
			[]string{"chain", "method", "status"},
		),

		RPCRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "watcher_rpc_request_duration_seconds",
				Help:    "Duration of RPC requests to chain nodes",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"chain", "method"},
		),

		// Registry metrics
		TrackedAddresses: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "watcher_tracked_addresses",
				Help: "Number of tracked addresses per scope",
			},
			[]string{"scope"},
		),

		AddressAddsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_address_adds_total",
				Help: "Total number of add-address requests by outcome",
			},
			[]string{"scope", "result"},
		),

		// Balance metrics
		BalanceQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_balance_queries_total",
				Help: "Total number of balance lookups per chain",
			},
			[]string{"chain", "status"},
		),

		// Storage metrics
		DatabaseOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_database_operations_total",
				Help: "Total number of address store operations",
			},
			[]string{"operation", "scope", "status"},
		),

		DatabaseOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "watcher_database_operation_duration_seconds",
				Help:    "Duration of address store operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "scope"},
		),

		// Notification metrics
		NotificationsSentTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_notifications_sent_total",
				Help: "Total number of notifications delivered",
			},
			[]string{"sink"},
		),

		NotificationFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_notification_failures_total",
				Help: "Total number of notification delivery failures",
			},
			[]string{"sink", "error_type"},
		),

		NotificationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "watcher_notification_duration_seconds",
				Help:    "Time spent delivering notifications",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sink"},
		),

		NotificationQueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "watcher_notification_queue_depth",
				Help: "Number of match events waiting in the dispatcher queue",
			},
		),

		// API metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "watcher_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Application health metrics
		ApplicationUptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "watcher_application_uptime_seconds",
				Help: "Application uptime in seconds",
			},
		),

		ComponentHealth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "watcher_component_health",
				Help: "Health status of application components (1 = healthy, 0 = unhealthy)",
			},
			[]string{"component"},
		),

		MemoryUsage: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "watcher_memory_usage_bytes",
				Help: "Current memory usage in bytes",
			},
		),

		GoroutineCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "watcher_goroutines_count",
				Help: "Current number of goroutines",
			},
		),
	}
}

// RecordBlockScanned records a processed block and its duration
func (m *PrometheusMetrics) RecordBlockScanned(chain string, duration time.Duration) {
	if m == nil {
		return
	}
	m.BlocksScannedTotal.WithLabelValues(chain).Inc()
	m.BlockScanDuration.WithLabelValues(chain).Observe(duration.Seconds())
}

// RecordScanError records a failed height or block fetch
func (m *PrometheusMetrics) RecordScanError(chain, stage string) {
	if m == nil {
		return
	}
	m.ScanErrorsTotal.WithLabelValues(chain, stage).Inc()
}

// UpdateScanProgress publishes cursor, head and lag for a chain
func (m *PrometheusMetrics) UpdateScanProgress(chain string, cursor int64, head uint64) {
	if m == nil {
		return
	}
	m.ScanCursor.WithLabelValues(chain).Set(float64(cursor))
	m.ChainHead.WithLabelValues(chain).Set(float64(head))
	behind := float64(head) - float64(cursor)
	if behind < 0 {
		behind = 0
	}
	m.BlocksBehind.WithLabelValues(chain).Set(behind)
}

// RecordMatch records an emitted match event
func (m *PrometheusMetrics) RecordMatch(chain, direction string) {
	if m == nil {
		return
	}
	m.MatchesTotal.WithLabelValues(chain, direction).Inc()
}

// RecordRPCRequest records an adapter call
func (m *PrometheusMetrics) RecordRPCRequest(chain, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RPCRequestsTotal.WithLabelValues(chain, method, status).Inc()
	m.RPCRequestDuration.WithLabelValues(chain, method).Observe(duration.Seconds())
}

// UpdateTrackedAddresses publishes the size of a scope's set
func (m *PrometheusMetrics) UpdateTrackedAddresses(scope string, count int) {
	if m == nil {
		return
	}
	m.TrackedAddresses.WithLabelValues(scope).Set(float64(count))
}

// RecordAddressAdd records an add-address outcome
func (m *PrometheusMetrics) RecordAddressAdd(scope, result string) {
	if m == nil {
		return
	}
	m.AddressAddsTotal.WithLabelValues(scope, result).Inc()
}

// RecordBalanceQuery records a single chain balance lookup
func (m *PrometheusMetrics) RecordBalanceQuery(chain, status string) {
	if m == nil {
		return
	}
	m.BalanceQueriesTotal.WithLabelValues(chain, status).Inc()
}

// RecordDatabaseOperation records an address store operation
func (m *PrometheusMetrics) RecordDatabaseOperation(operation, scope, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.DatabaseOperationsTotal.WithLabelValues(operation, scope, status).Inc()
	m.DatabaseOperationDuration.WithLabelValues(operation, scope).Observe(duration.Seconds())
}

// RecordNotificationSent records a delivered notification
func (m *PrometheusMetrics) RecordNotificationSent(sink string, duration time.Duration) {
	if m == nil {
		return
	}
	m.NotificationsSentTotal.WithLabelValues(sink).Inc()
	m.NotificationDuration.WithLabelValues(sink).Observe(duration.Seconds())
}

// RecordNotificationFailure records a failed delivery
func (m *PrometheusMetrics) RecordNotificationFailure(sink, errorType string) {
	if m == nil {
		return
	}
	m.NotificationFailuresTotal.WithLabelValues(sink, errorType).Inc()
}

// UpdateNotificationQueueDepth publishes the dispatcher backlog
func (m *PrometheusMetrics) UpdateNotificationQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.NotificationQueueDepth.Set(float64(depth))
}

// RecordHTTPRequest records HTTP request metrics
func (m *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateApplicationUptime updates application uptime
func (m *PrometheusMetrics) UpdateApplicationUptime(startTime time.Time) {
	if m == nil {
		return
	}
	m.ApplicationUptime.Set(time.Since(startTime).Seconds())
}

// UpdateComponentHealth updates component health status
func (m *PrometheusMetrics) UpdateComponentHealth(component string, healthy bool) {
	if m == nil {
		return
	}
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.ComponentHealth.WithLabelValues(component).Set(value)
}

// UpdateMemoryUsage updates memory usage
func (m *PrometheusMetrics) UpdateMemoryUsage(bytes uint64) {
	if m == nil {
		return
	}
	m.MemoryUsage.Set(float64(bytes))
}

// UpdateGoroutineCount updates goroutine count
func (m *PrometheusMetrics) UpdateGoroutineCount(count int) {
	if m == nil {
		return
	}
	m.GoroutineCount.Set(float64(count))
}
