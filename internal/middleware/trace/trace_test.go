package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observed struct {
	route, method string
	status        int
}

type fakeRecorder struct {
	requests []observed
}

func (f *fakeRecorder) ObserveRequest(route, method string, status int, _ time.Duration) {
	f.requests = append(f.requests, observed{route, method, status})
}
func (f *fakeRecorder) ObserveDashboardBuild(bool, time.Duration) {}
func (f *fakeRecorder) SetDatasetRows(int, int)                   {}
func (f *fakeRecorder) IncReload(bool)                            {}
func (f *fakeRecorder) IncExport(bool)                            {}

func TestMiddlewareRecordsRouteAndStatus(t *testing.T) {
	rec := &fakeRecorder{}
	var seenID string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/dashboard", func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})
	h := NewMiddleware(nil, rec).Middleware(mux)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard?start=2011-01-01", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.True(t, strings.HasPrefix(seenID, "req_"))
	assert.Equal(t, seenID, w.Header().Get(RequestIDHeader))
	require.Len(t, rec.requests, 1)
	assert.Equal(t, observed{"GET /api/v1/dashboard", http.MethodGet, http.StatusTeapot}, rec.requests[0])
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	h := NewMiddleware(nil, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc123", GetRequestID(r.Context()))
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc123", w.Header().Get(RequestIDHeader))
}

func TestMiddlewareUnmatchedRoute(t *testing.T) {
	rec := &fakeRecorder{}
	h := NewMiddleware(nil, rec).Middleware(http.NotFoundHandler())
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	require.Len(t, rec.requests, 1)
	assert.Equal(t, "unmatched", rec.requests[0].route)
	assert.Equal(t, http.StatusNotFound, rec.requests[0].status)
}

func TestGenerateRequestIDUnique(t *testing.T) {
	assert.NotEqual(t, GenerateRequestID(), GenerateRequestID())
}

func TestPatternSurvivesRequestCopies(t *testing.T) {
	rec := &fakeRecorder{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ui/dashboard", func(http.ResponseWriter, *http.Request) {})

	copying := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(r.Context()))
		})
	}
	h := NewMiddleware(nil, rec).Middleware(copying(Pattern(mux)))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ui/dashboard", nil))

	require.Len(t, rec.requests, 1)
	assert.Equal(t, "GET /ui/dashboard", rec.requests[0].route)
}
