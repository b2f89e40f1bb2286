package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Recorder = (*PrometheusRecorder)(nil)
var _ Recorder = Nop{}

func scrape(t *testing.T, r *PrometheusRecorder) string {
	t.Helper()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestPrometheusRecorderCounts(t *testing.T) {
	r := NewPrometheusRecorder()
	r.ObserveRequest("/api/v1/dashboard", http.MethodGet, 200, 5*time.Millisecond)
	r.ObserveRequest("/api/v1/dashboard", http.MethodGet, 200, 5*time.Millisecond)
	r.IncReload(true)
	r.IncExport(false)
	r.SetDatasetRows(731, 17379)

	body := scrape(t, r)
	assert.Contains(t, body, `bikeshare_http_requests_total{method="GET",route="/api/v1/dashboard",status="200"} 2`)
	assert.Contains(t, body, `bikeshare_dataset_reloads_total{result="success"} 1`)
	assert.Contains(t, body, `bikeshare_exports_total{result="failure"} 1`)
	assert.Contains(t, body, `bikeshare_dataset_rows{table="hourly"} 17379`)
}

func TestHandlerExposesRuntimeMetrics(t *testing.T) {
	r := NewPrometheusRecorder()
	r.ObserveDashboardBuild(true, time.Millisecond)

	body := scrape(t, r)
	assert.Contains(t, body, `bikeshare_dashboard_build_duration_seconds_count{cache="hit"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
