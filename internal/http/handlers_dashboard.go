package http

import (
	"bytes"
	"errors"
	"net/http"

	"bikeshare/internal/core"
	"bikeshare/internal/export"
	"bikeshare/internal/log"
	"bikeshare/internal/services"
)

type indexData struct {
	Loaded     bool
	Start, End string
	Min, Max   string
}

// handleIndex renders the page shell; the body is loaded by htmx.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{}
	if rng, err := s.dashboard.ResolveRange("", ""); err == nil {
		data.Loaded = true
		data.Min, data.Max = rng.Start.String(), rng.End.String()
		// Query values pre-fill the form so the page is linkable.
		params := ParseRangeParams(r.URL.Query())
		if sel, err := s.dashboard.ResolveRange(params.Start, params.End); err == nil {
			data.Start, data.End = sel.Start.String(), sel.End.String()
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if !data.Loaded {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Index template execution failed", log.FieldError, err)
	}
}

func (s *Server) handleDashboardPartial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := s.buildDashboard(r)
	if err != nil {
		status := statusFor(err)
		if status >= 500 {
			log.FromContext(ctx).ErrorContext(ctx, "Dashboard build failed", log.FieldError, err)
		}
		ErrorResponse(status, messageFor(err)).Write(w)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard", newDashboardView(d)); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Dashboard template execution failed", log.FieldError, err)
		ErrorResponse(http.StatusInternalServerError, "Failed to render dashboard").Write(w)
		return
	}
	NewHTMXResponse().
		TriggerRangeResolved(d.Range.Start.String(), d.Range.End.String()).
		Body(buf.Bytes()).
		Write(w)
}

func (s *Server) handleDashboardJSON(w http.ResponseWriter, r *http.Request) {
	d, err := s.buildDashboard(r)
	if err != nil {
		writeAPIError(w, statusFor(err), messageFor(err))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, details, err := ParseAggregateRequest(r.URL.Query())
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid aggregate query", details...)
		return
	}

	rng, err := s.dashboard.ResolveRange(req.Start, req.End)
	if err != nil {
		writeAPIError(w, statusFor(err), messageFor(err))
		return
	}

	res, err := s.dashboard.Aggregate(req.Query(rng))
	if err != nil {
		writeAPIError(w, statusFor(err), err.Error())
		return
	}

	log.FromContext(ctx).DebugContext(ctx, "Aggregate served",
		log.FieldDataset, res.Dataset,
		log.FieldGroupBy, res.By,
		log.FieldMeasure, res.Measure,
		"groups", len(res.Groups))
	writeJSON(w, http.StatusOK, res)
}

// handleExport streams the selected dashboard as an XLSX workbook. The
// workbook is rendered to memory first so failures still get a clean status.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := s.buildDashboard(r)
	if err != nil {
		s.metrics.IncExport(false)
		http.Error(w, messageFor(err), statusFor(err))
		return
	}

	var buf bytes.Buffer
	if err := export.WriteDashboard(&buf, d); err != nil {
		s.metrics.IncExport(false)
		log.FromContext(ctx).ErrorContext(ctx, "Workbook export failed", log.FieldError, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	s.metrics.IncExport(true)

	name := "bikeshare_" + d.Range.Start.String() + "_" + d.Range.End.String() + ".xlsx"
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) onExportLimited(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log.FromContext(ctx).WarnContext(ctx, "Export rate limit exceeded", log.FieldClientIP, s.clientIP.Extract(r))
	s.metrics.IncExport(false)
	http.Error(w, "Too many exports. Please try again later.", http.StatusTooManyRequests)
}

func (s *Server) buildDashboard(r *http.Request) (core.Dashboard, error) {
	params := ParseRangeParams(r.URL.Query())
	rng, err := s.dashboard.ResolveRange(params.Start, params.End)
	if err != nil {
		return core.Dashboard{}, err
	}
	return s.dashboard.Build(r.Context(), rng)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotLoaded):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrUnknownDataset),
		errors.Is(err, services.ErrUnknownDimension),
		errors.Is(err, services.ErrNoHourlyData),
		errors.Is(err, core.ErrInvalidGroupKeys),
		errors.Is(err, core.ErrUnknownMeasure):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	switch statusFor(err) {
	case http.StatusServiceUnavailable:
		return "Dataset not loaded yet"
	case http.StatusBadRequest:
		return err.Error()
	default:
		return "Internal error"
	}
}
