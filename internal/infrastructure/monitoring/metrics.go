package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Session metrics
	SessionsActive   prometheus.Gauge
	SessionsLaunched prometheus.Counter
	TabsOpen         prometheus.Gauge

	// Proxy verification metrics
	ProxyAttempts        *prometheus.CounterVec
	ProxyAttemptDuration prometheus.Histogram
	ProxyChecks          *prometheus.CounterVec

	// Service metrics (profile stores)
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec

	// Event and WebSocket metrics
	EventsEmitted *prometheus.CounterVec
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
	stop      chan struct{}
	stopOnce  sync.Once

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveSessions    int64   `json:"active_sessions"`
	OpenTabs          int64   `json:"open_tabs"`
	ActiveConnections int64   `json:"active_connections"`
	ProxyChecks       int64   `json:"proxy_checks"`
	TotalDuration     float64 `json:"total_duration"`
	RequestCount      int64   `json:"request_count"`
}

// NewMetrics creates a new metrics collector registered on reg. A nil reg
// uses the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),
		stop:      make(chan struct{}),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profiledeck_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "profiledeck_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "profiledeck_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "profiledeck_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Session metrics
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "profiledeck_sessions_active",
				Help: "Number of registered browser sessions",
			},
		),
		SessionsLaunched: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "profiledeck_sessions_launched_total",
				Help: "Total number of browser sessions created",
			},
		),
		TabsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "profiledeck_tabs_open",
				Help: "Number of open tabs across all sessions",
			},
		),

		// Proxy verification metrics
		ProxyAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profiledeck_proxy_check_attempts_total",
				Help: "Total number of proxy verification attempts",
			},
			[]string{"outcome"},
		),
		ProxyAttemptDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "profiledeck_proxy_check_attempt_duration_seconds",
				Help:    "Duration of a single proxy verification attempt",
				Buckets: []float64{.05, .1, .25, .5, 1, 2, 3, 5},
			},
		),
		ProxyChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profiledeck_proxy_checks_total",
				Help: "Total number of completed proxy verification runs",
			},
			[]string{"status"},
		),

		// Service metrics
		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profiledeck_service_calls_total",
				Help: "Total number of external service calls",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "profiledeck_service_duration_seconds",
				Help:    "External service call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "method"},
		),

		// Event and WebSocket metrics
		EventsEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profiledeck_events_emitted_total",
				Help: "Total number of events emitted to the UI",
			},
			[]string{"type"},
		),
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "profiledeck_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profiledeck_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "profiledeck_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric until Stop
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		case <-m.stop:
			return
		}
	}
}

// Stop ends background collection
func (m *Metrics) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordServiceCall records an external service call
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordProxyAttempt records one verification attempt
func (m *Metrics) RecordProxyAttempt(outcome string, duration time.Duration) {
	m.ProxyAttempts.WithLabelValues(outcome).Inc()
	m.ProxyAttemptDuration.Observe(duration.Seconds())
}

// RecordProxyCheck records the final status of a verification run
func (m *Metrics) RecordProxyCheck(status string) {
	m.ProxyChecks.WithLabelValues(status).Inc()
	m.mu.Lock()
	m.snapshot.ProxyChecks++
	m.mu.Unlock()
}

// RecordEvent records an event emitted to the UI
func (m *Metrics) RecordEvent(eventType string) {
	m.EventsEmitted.WithLabelValues(eventType).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SetSessionsActive sets the number of registered sessions
func (m *Metrics) SetSessionsActive(count int) {
	m.SessionsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveSessions = int64(count)
	m.mu.Unlock()
}

// IncSessionsLaunched increments the launched sessions counter
func (m *Metrics) IncSessionsLaunched() {
	m.SessionsLaunched.Inc()
}

// SetTabsOpen sets the number of open tabs
func (m *Metrics) SetTabsOpen(count int) {
	m.TabsOpen.Set(float64(count))
	m.mu.Lock()
	m.snapshot.OpenTabs = int64(count)
	m.mu.Unlock()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}
