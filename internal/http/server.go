package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"bikeshare/internal/log"
	"bikeshare/internal/metrics"
	"bikeshare/internal/middleware/ratelimit"
	"bikeshare/internal/middleware/security"
	"bikeshare/internal/middleware/trace"
	"bikeshare/internal/services"
	appweb "bikeshare/web"
)

// Options wires the server to the application.
type Options struct {
	Addr      string
	Dashboard *services.DashboardService
	// Metrics is optional; without it /metrics is not mounted.
	Metrics *metrics.PrometheusRecorder
	Logger  *log.Logger
	// Ping checks the data backend for /readyz. Optional.
	Ping                func(ctx context.Context) error
	ExportRatePerMinute int
}

type Server struct {
	http.Server
	templates *template.Template
	dashboard *services.DashboardService
	metrics   metrics.Recorder
	ping      func(ctx context.Context) error
	started   time.Time

	clientIP    *security.ClientIP
	rateLimiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

var templateFuncs = template.FuncMap{
	"count": formatCount,
	"pct": func(v float64) string {
		return fmt.Sprintf("%.1f", v)
	},
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

// NewServer builds the dashboard server and its routes.
func NewServer(opts Options) (*Server, error) {
	if opts.Dashboard == nil {
		return nil, fmt.Errorf("dashboard service is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentHTTP})
	}

	t, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	var rec metrics.Recorder = metrics.Nop{}
	if opts.Metrics != nil {
		rec = opts.Metrics
	}

	mux := http.NewServeMux()
	s := &Server{
		templates: t,
		dashboard: opts.Dashboard,
		metrics:   rec,
		ping:      opts.Ping,
		started:   time.Now(),
		clientIP:  security.NewClientIP(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.ExportRatePerMinute,
		}),
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboardPartial)
	mux.HandleFunc("GET /api/v1/dashboard", s.handleDashboardJSON)
	mux.HandleFunc("GET /api/v1/aggregate", s.handleAggregate)
	mux.Handle("GET /export.xlsx", s.rateLimiter.Middleware(s.clientIP.Extract, s.onExportLimited)(http.HandlerFunc(s.handleExport)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	handler := trace.Pattern(mux)
	handler = log.Middleware(logger, trace.GetRequestID)(handler)
	handler = trace.NewMiddleware(s.clientIP.Extract, rec).Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
