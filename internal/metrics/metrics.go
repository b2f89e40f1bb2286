// Package metrics exposes dashboard instrumentation through Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the rest of the application reports to.
type Recorder interface {
	ObserveRequest(route, method string, status int, d time.Duration)
	ObserveDashboardBuild(cached bool, d time.Duration)
	SetDatasetRows(daily, hourly int)
	IncReload(ok bool)
	IncExport(ok bool)
}

// PrometheusRecorder implements Recorder on its own registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	buildDuration   *prometheus.HistogramVec
	datasetRows     *prometheus.GaugeVec
	reloadsTotal    *prometheus.CounterVec
	exportsTotal    *prometheus.CounterVec
}

func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bikeshare_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bikeshare_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		buildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bikeshare_dashboard_build_duration_seconds",
			Help:    "Time to produce a dashboard, split by cache outcome.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"cache"}),
		datasetRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bikeshare_dataset_rows",
			Help: "Rows in the loaded dataset snapshot.",
		}, []string{"table"}),
		reloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bikeshare_dataset_reloads_total",
			Help: "Dataset reloads by result.",
		}, []string{"result"}),
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bikeshare_exports_total",
			Help: "Workbook exports by result.",
		}, []string{"result"}),
	}

	registry.MustRegister(r.requestsTotal)
	registry.MustRegister(r.requestDuration)
	registry.MustRegister(r.buildDuration)
	registry.MustRegister(r.datasetRows)
	registry.MustRegister(r.reloadsTotal)
	registry.MustRegister(r.exportsTotal)

	return r
}

// Registry returns the Prometheus registry.
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *PrometheusRecorder) ObserveRequest(route, method string, status int, d time.Duration) {
	r.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (r *PrometheusRecorder) ObserveDashboardBuild(cached bool, d time.Duration) {
	label := "miss"
	if cached {
		label = "hit"
	}
	r.buildDuration.WithLabelValues(label).Observe(d.Seconds())
}

func (r *PrometheusRecorder) SetDatasetRows(daily, hourly int) {
	r.datasetRows.WithLabelValues("daily").Set(float64(daily))
	r.datasetRows.WithLabelValues("hourly").Set(float64(hourly))
}

func (r *PrometheusRecorder) IncReload(ok bool) {
	r.reloadsTotal.WithLabelValues(result(ok)).Inc()
}

func (r *PrometheusRecorder) IncExport(ok bool) {
	r.exportsTotal.WithLabelValues(result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveRequest(string, string, int, time.Duration) {}
func (Nop) ObserveDashboardBuild(bool, time.Duration)         {}
func (Nop) SetDatasetRows(int, int)                           {}
func (Nop) IncReload(bool)                                    {}
func (Nop) IncExport(bool)                                    {}
