package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Component metrics
	ComponentsActive  prometheus.Gauge
	ComponentsSpawned *prometheus.CounterVec
	ComponentsKilled  *prometheus.CounterVec
	ComponentsCrashed *prometheus.CounterVec
	SpawnFailures     *prometheus.CounterVec

	// Command metrics
	CommandCalls    *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Status and shutdown
	StatusFailures   prometheus.Counter
	ShutdownDuration prometheus.Histogram

	// Pipeline metrics
	ComponentGauge *prometheus.GaugeVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveComponents  int64   `json:"active_components"`
	ActiveConnections int64   `json:"active_connections"`
	TotalCommands     int64   `json:"total_commands"`
	FailedCommands    int64   `json:"failed_commands"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// NewMetrics creates a collector backed by its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telenode_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "telenode_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "telenode_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "telenode_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Component metrics
		ComponentsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "telenode_components_active",
				Help: "Number of registered components",
			},
		),
		ComponentsSpawned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telenode_components_spawned_total",
				Help: "Total number of components spawned",
			},
			[]string{"type"},
		),
		ComponentsKilled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telenode_components_killed_total",
				Help: "Total number of components terminated on request",
			},
			[]string{"type"},
		),
		ComponentsCrashed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telenode_components_crashed_total",
				Help: "Total number of components that exited unexpectedly",
			},
			[]string{"type"},
		),
		SpawnFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telenode_spawn_failures_total",
				Help: "Total number of failed spawn attempts",
			},
			[]string{"type", "code"},
		),

		// Command metrics
		CommandCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telenode_command_calls_total",
				Help: "Total number of dispatched commands",
			},
			[]string{"command", "status"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "telenode_command_duration_seconds",
				Help:    "Command duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"command"},
		),

		StatusFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "telenode_status_failures_total",
				Help: "Total number of component status requests that failed",
			},
		),
		ShutdownDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "telenode_shutdown_duration_seconds",
				Help:    "Duration of the ordered shutdown sequence",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),

		ComponentGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "telenode_component_value",
				Help: "Last value reported to the accountant",
			},
			[]string{"component", "key"},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "telenode_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telenode_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "telenode_uptime_seconds",
			Help: "Node uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry the metrics are exported from.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordCommand records one dispatched command.
func (m *Metrics) RecordCommand(command, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CommandCalls.WithLabelValues(command, status).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalCommands++
	if status != "ok" {
		m.snapshot.FailedCommands++
	}
	m.mu.Unlock()
}

// RecordSpawn records a successful spawn of typ.
func (m *Metrics) RecordSpawn(typ string) {
	if m == nil {
		return
	}
	m.ComponentsSpawned.WithLabelValues(typ).Inc()
}

// RecordSpawnFailure records a failed spawn of typ.
func (m *Metrics) RecordSpawnFailure(typ, code string) {
	if m == nil {
		return
	}
	m.SpawnFailures.WithLabelValues(typ, code).Inc()
}

// RecordKill records a requested termination of typ.
func (m *Metrics) RecordKill(typ string) {
	if m == nil {
		return
	}
	m.ComponentsKilled.WithLabelValues(typ).Inc()
}

// RecordCrash records an unexpected exit of typ.
func (m *Metrics) RecordCrash(typ string) {
	if m == nil {
		return
	}
	m.ComponentsCrashed.WithLabelValues(typ).Inc()
}

// RecordStatusFailure records a failed component status request.
func (m *Metrics) RecordStatusFailure() {
	if m == nil {
		return
	}
	m.StatusFailures.Inc()
}

// RecordShutdown records the duration of the shutdown sequence.
func (m *Metrics) RecordShutdown(duration time.Duration) {
	if m == nil {
		return
	}
	m.ShutdownDuration.Observe(duration.Seconds())
}

// SetComponentValue mirrors an accountant report.
func (m *Metrics) SetComponentValue(component, key string, value float64) {
	if m == nil {
		return
	}
	m.ComponentGauge.WithLabelValues(component, key).Set(value)
}

// SetComponentsActive sets the number of registered components
func (m *Metrics) SetComponentsActive(count int) {
	if m == nil {
		return
	}
	m.ComponentsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveComponents = int64(count)
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}
