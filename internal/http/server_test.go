package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bikeshare/internal/cache"
	"bikeshare/internal/core"
	"bikeshare/internal/dataset"
	"bikeshare/internal/metrics"
	"bikeshare/internal/services"
	"bikeshare/internal/sources/memory"
)

func newTestServer(t *testing.T, loaded bool, mutate func(*Options)) *Server {
	t.Helper()
	holder := dataset.NewHolder()
	if loaded {
		daily, hourly := memory.Sample(core.NewDate(2011, 1, 1), 400)
		ds, err := dataset.New(daily, hourly)
		require.NoError(t, err)
		holder.Replace(ds)
	}
	rec := metrics.NewPrometheusRecorder()
	svc := services.NewDashboardService(holder, cache.NewLRUCache[core.Dashboard](10, time.Minute), rec)

	opts := Options{Addr: ":0", Dashboard: svc, Metrics: rec, ExportRatePerMinute: 2}
	if mutate != nil {
		mutate(&opts)
	}
	srv, err := NewServer(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func get(srv *Server, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "203.0.113.10:4000"
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexRendersBoundsForm(t *testing.T) {
	srv := newTestServer(t, true, nil)
	rr := get(srv, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `min="2011-01-01"`)
	assert.Contains(t, body, `max="2012-02-04"`)
	assert.Contains(t, body, `hx-get="/ui/dashboard"`)
	assert.Contains(t, body, `<script src="/static/dashboard.js" defer></script>`)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestIndexBeforeLoad(t *testing.T) {
	srv := newTestServer(t, false, nil)
	rr := get(srv, "/")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "Dataset not loaded yet")
}

func TestDashboardPartial(t *testing.T) {
	srv := newTestServer(t, true, nil)
	rr := get(srv, "/ui/dashboard?start=2011-06-01&end=2011-06-30")
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	for _, want := range []string{"Daily rentals", "Rentals per month", "Rentals by season", "Rentals by part of day", "Rentals by weather", "Users distribution", "<polyline"} {
		assert.Contains(t, body, want)
	}
	assert.Contains(t, rr.Header().Get("HX-Trigger"), `"start":"2011-06-01"`)
}

func TestDashboardPartialEmptyRange(t *testing.T) {
	srv := newTestServer(t, true, nil)
	rr := get(srv, "/ui/dashboard?start=2011-06-30&end=2011-06-01")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "No rentals in the selected range.")
	for _, want := range []string{"Rentals by season", "<h4>Winter</h4>", "Rentals by part of day", "Morning", "Rentals by weather", "Clear"} {
		assert.Contains(t, body, want, "charts stay visible with zero values")
	}
	assert.Contains(t, body, `<span class="bar-value">0</span>`)
	assert.NotContains(t, body, "<polyline", "no line is drawn without rentals")
}

func TestDashboardJSON(t *testing.T) {
	srv := newTestServer(t, true, nil)
	rr := get(srv, "/api/v1/dashboard?start=bogus&end=2011-01-31")
	require.Equal(t, http.StatusOK, rr.Code)

	var d struct {
		Range struct{ Start, End string } `json:"range"`
		Daily []json.RawMessage          `json:"daily"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &d))
	assert.Equal(t, "2011-01-01", d.Range.Start, "unparsable start falls back to the first day")
	assert.Equal(t, "2011-01-31", d.Range.End)
	assert.Len(t, d.Daily, 31)
}

func TestDashboardJSONNotLoaded(t *testing.T) {
	srv := newTestServer(t, false, nil)
	rr := get(srv, "/api/v1/dashboard")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAggregateEndpoint(t *testing.T) {
	srv := newTestServer(t, true, nil)

	rr := get(srv, "/api/v1/aggregate?dataset=hourly&by=year,hour_group&measure=casual")
	require.Equal(t, http.StatusOK, rr.Code)
	var res struct {
		Measure string       `json:"measure"`
		Groups  []core.Group `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "casual", res.Measure)
	assert.Len(t, res.Groups, 8)

	tests := []struct {
		name, query, detail string
	}{
		{"missing dataset", "by=year", "dataset is required"},
		{"bad measure", "dataset=daily&by=year&measure=temp", "measure must be one of"},
		{"too many keys", "dataset=hourly&by=year,month,hour_group", "by accepts at most 2 keys"},
		{"bad date", "dataset=daily&by=year&start=01/02/2011", "start must be a date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(srv, "/api/v1/aggregate?"+tt.query)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.detail)
		})
	}

	rr = get(srv, "/api/v1/aggregate?dataset=daily&by=hour_group")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "unknown group key")
}

func TestExportWorkbookAndRateLimit(t *testing.T) {
	srv := newTestServer(t, true, nil)

	rr := get(srv, "/export.xlsx?start=2011-01-01&end=2011-01-10")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "bikeshare_2011-01-01_2011-01-10.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Daily")
	require.NoError(t, err)
	assert.Len(t, rows, 11)

	assert.Equal(t, http.StatusOK, get(srv, "/export.xlsx").Code)
	limited := get(srv, "/export.xlsx")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
}

func TestHealthReadyAndMetrics(t *testing.T) {
	srv := newTestServer(t, true, nil)
	assert.Equal(t, http.StatusOK, get(srv, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(srv, "/readyz").Code)

	_ = get(srv, "/api/v1/dashboard")
	rr := get(srv, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `bikeshare_http_requests_total{method="GET",route="GET /api/v1/dashboard",status="200"} 1`)
}

func TestReadyReportsBackendFailure(t *testing.T) {
	srv := newTestServer(t, true, func(o *Options) {
		o.Ping = func(context.Context) error { return errors.New("database is locked") }
	})
	rr := get(srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "database is locked"))

	assert.Equal(t, http.StatusServiceUnavailable, get(newTestServer(t, false, nil), "/readyz").Code)
}

func TestStaticAndUnknownRoutes(t *testing.T) {
	srv := newTestServer(t, true, nil)
	rr := get(srv, "/static/style.css")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Cache-Control"), "max-age=3600")

	rr = get(srv, "/static/dashboard.js")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `addEventListener("range:resolved"`, "the form follows the range the server resolved")

	assert.Equal(t, http.StatusNotFound, get(srv, "/nope").Code)
}
