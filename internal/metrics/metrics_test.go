package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_New(t *testing.T) {
	m := New()
	assert.NotNil(t, m.RequestsTotal)
	assert.NotNil(t, m.RequestDuration)
	assert.NotNil(t, m.StreamChunksTotal)
	assert.NotNil(t, m.CacheLookupsTotal)
	assert.NotNil(t, m.BackendFetchErrors)
}

func TestMetrics_RecordRequest(t *testing.T) {
	m := New()
	m.RecordRequest("stream", "ok")
	m.RecordRequest("stream", "ok")
	m.RecordRequest("single", "error")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `relay_requests_total{mode="stream",status="ok"} 2`)
	assert.Contains(t, body, `relay_requests_total{mode="single",status="error"} 1`)
}

func TestMetrics_RecordCacheLookup(t *testing.T) {
	m := New()
	m.RecordCacheLookup("hit")
	m.RecordCacheLookup("miss")
	m.RecordCacheLookup("hit")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `relay_insights_cache_lookups_total{result="hit"} 2`)
	assert.Contains(t, body, `relay_insights_cache_lookups_total{result="miss"} 1`)
}

func TestMetrics_RecordBackendError(t *testing.T) {
	m := New()
	m.RecordBackendError("engineers")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `relay_backend_fetch_errors_total{collection="engineers"} 1`)
}

func TestMetrics_StreamCounters(t *testing.T) {
	m := New()
	m.RecordStreamChunk()
	m.RecordStreamChunk()
	m.RecordStreamTimeout()

	body := getMetricsBody(t, m)
	assert.Contains(t, body, "relay_stream_chunks_total 2")
	assert.Contains(t, body, "relay_stream_timeouts_total 1")
}

func TestMetrics_ObserveDuration(t *testing.T) {
	m := New()
	m.ObserveDuration("single", 1.5)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, "relay_request_duration_seconds")
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	handler := m.Handler()
	assert.NotNil(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func getMetricsBody(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	return strings.TrimSpace(string(body))
}
