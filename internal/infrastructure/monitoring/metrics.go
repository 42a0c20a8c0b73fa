package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Surface metrics
	SurfacesActive prometheus.Gauge
	SurfacesOpened prometheus.Counter
	ViewsActive    prometheus.Gauge

	// Chat metrics
	ChatTurns        *prometheus.CounterVec
	ChatStreamLength prometheus.Histogram
	ChatDuration     prometheus.Histogram

	// Store metrics
	StoreOps *prometheus.CounterVec

	// Request filter metrics
	RequestsBlocked prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "veradesk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "veradesk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		SurfacesActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "veradesk_surfaces_active",
				Help: "Number of live surfaces",
			},
		),
		SurfacesOpened: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "veradesk_surfaces_opened_total",
				Help: "Total number of surfaces opened",
			},
		),
		ViewsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "veradesk_views_active",
				Help: "Number of live content views",
			},
		),

		ChatTurns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "veradesk_chat_turns_total",
				Help: "Total number of chat turns",
			},
			[]string{"status"},
		),
		ChatStreamLength: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "veradesk_chat_stream_chars",
				Help:    "Final assistant reply length in characters",
				Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
		),
		ChatDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "veradesk_chat_turn_duration_seconds",
				Help:    "Chat turn duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		StoreOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "veradesk_store_operations_total",
				Help: "Total number of settings store operations",
			},
			[]string{"operation", "status"},
		),

		RequestsBlocked: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "veradesk_requests_blocked_total",
				Help: "Total number of requests denied by the ad filter",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "veradesk_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "veradesk_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "veradesk_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	go m.updateUptime()
	return m
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordChatTurn records one finished chat turn.
func (m *Metrics) RecordChatTurn(status string, replyChars int, duration time.Duration) {
	m.ChatTurns.WithLabelValues(status).Inc()
	m.ChatStreamLength.Observe(float64(replyChars))
	m.ChatDuration.Observe(duration.Seconds())
}

// RecordStoreOp records a settings store operation.
func (m *Metrics) RecordStoreOp(operation, status string) {
	m.StoreOps.WithLabelValues(operation, status).Inc()
}

// RecordWSMessage records a WebSocket message.
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SetSurfaces updates the live surface and view gauges.
func (m *Metrics) SetSurfaces(surfaces, views int) {
	m.SurfacesActive.Set(float64(surfaces))
	m.ViewsActive.Set(float64(views))
}

// IncSurfacesOpened increments the opened-surfaces counter.
func (m *Metrics) IncSurfacesOpened() {
	m.SurfacesOpened.Inc()
}

// IncWSConnections increments WebSocket connections.
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections.
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}
