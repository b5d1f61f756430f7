package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegisters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	require.NotNil(t, m)

	m.ProjectChecksTotal.WithLabelValues("allowed").Inc()
	m.ProjectChecksTotal.WithLabelValues("denied").Inc()
	m.ProjectChecksTotal.WithLabelValues("denied").Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProjectChecksTotal.WithLabelValues("allowed")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ProjectChecksTotal.WithLabelValues("denied")))
}

func TestObserveHTTPRequest(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.ObserveHTTPRequest("GET", "/projects", 200, 25*time.Millisecond)
	m.ObserveHTTPRequest("POST", "/projects", 403, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/projects", "2xx")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/projects", "4xx")))
}

func TestMetricsHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.OutboxPublishTotal.WithLabelValues("success").Inc()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	MetricsHandler(registry).ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "benjamin_outbox_publish_total")
}

func TestHTTPStatusLabel(t *testing.T) {
	assert.Equal(t, "2xx", httpStatusLabel(204))
	assert.Equal(t, "3xx", httpStatusLabel(302))
	assert.Equal(t, "4xx", httpStatusLabel(410))
	assert.Equal(t, "5xx", httpStatusLabel(502))
}
