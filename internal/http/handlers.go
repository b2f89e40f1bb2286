package http

import (
	"context"
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports ready once a snapshot is loaded and the backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if ds, err := s.dashboard.Snapshot(); err != nil {
		checks["dataset"] = "failed: " + err.Error()
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["dataset"] = map[string]any{
			"status":      "ok",
			"daily_rows":  len(ds.Daily),
			"hourly_rows": len(ds.Hourly),
			"start":       ds.Bounds.Start.String(),
			"end":         ds.Bounds.End.String(),
		}
	}

	if s.ping != nil {
		if err := s.ping(ctx); err != nil {
			checks["backend"] = "failed: " + err.Error()
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"rejected":       s.rateLimiter.Rejected(),
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
