package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	ProjectChecksTotal *prometheus.CounterVec

	// Invitation metrics
	InvitationsTotal *prometheus.CounterVec
	JoinsTotal       *prometheus.CounterVec

	// Outbox metrics
	OutboxPublishTotal *prometheus.CounterVec
	OutboxPendingSize  prometheus.Gauge
	OutboxTickDuration prometheus.Histogram

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benjamin_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "benjamin_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ProjectChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benjamin_project_checks_total",
				Help: "Total number of project authorization checks by outcome",
			},
			[]string{"outcome"},
		),

		InvitationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benjamin_invitations_total",
				Help: "Total number of invite operations by result",
			},
			[]string{"result"},
		),
		JoinsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benjamin_joins_total",
				Help: "Total number of join operations by result",
			},
			[]string{"result"},
		),

		OutboxPublishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benjamin_outbox_publish_total",
				Help: "Total number of outbox publish attempts by status",
			},
			[]string{"status"},
		),
		OutboxPendingSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "benjamin_outbox_pending_events",
				Help: "Number of events pending in the outbox at the last dispatch tick",
			},
		),
		OutboxTickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "benjamin_outbox_tick_duration_seconds",
				Help:    "Duration of outbox dispatch ticks in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "benjamin_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "benjamin_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ProjectChecksTotal,
		m.InvitationsTotal,
		m.JoinsTotal,
		m.OutboxPublishTotal,
		m.OutboxPendingSize,
		m.OutboxTickDuration,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// ObserveHTTPRequest records metrics for a completed HTTP request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, httpStatusLabel(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns an HTTP handler exposing the registry in Prometheus format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func httpStatusLabel(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
