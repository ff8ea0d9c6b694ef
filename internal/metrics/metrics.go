// Package metrics holds the service's Prometheus instruments.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler owns a registry and the instruments registered on it.
// A nil *Handler is valid and records nothing.
type Handler struct {
	registry *prometheus.Registry

	HTTPRequests       *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
	SourcePagesFetched *prometheus.CounterVec
	EventsClassified   *prometheus.CounterVec
	SummaryStages      *prometheus.CounterVec
	SummaryJobs        *prometheus.CounterVec
	SummaryJobDuration *prometheus.HistogramVec
}

// New registers all instruments on a fresh registry, along with the Go and
// process collectors.
func New() *Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Handler{
		registry: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lambdapulse_http_requests_total",
			Help: "The total number of http requests served",
		}, []string{"method", "route", "status"}),
		HTTPRequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lambdapulse_http_request_duration_seconds",
			Help:    "The latency of http requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		SourcePagesFetched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lambdapulse_log_source_pages_total",
			Help: "The total number of upstream log pages fetched",
		}, []string{"scope", "success"}),
		EventsClassified: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lambdapulse_events_classified_total",
			Help: "The total number of events returned, by category",
		}, []string{"category"}),
		SummaryStages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lambdapulse_summary_stage_total",
			Help: "The total number of summary backend calls, by stage and outcome",
		}, []string{"stage", "outcome"}),
		SummaryJobs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lambdapulse_summary_jobs_total",
			Help: "The total number of finished summary jobs, by status and strategy",
		}, []string{"status", "strategy"}),
		SummaryJobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lambdapulse_summary_job_duration_seconds",
			Help:    "The wall time of summary jobs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 240, 480},
		}, []string{"status"}),
	}
}

// HTTPHandler serves the registry in the Prometheus exposition format.
func (h *Handler) HTTPHandler() http.Handler {
	if h == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{Registry: h.registry})
}

// ObserveHTTPRequest records one served request.
func (h *Handler) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if h == nil {
		return
	}
	h.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.HTTPRequestLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncSourcePages counts one upstream page request.
func (h *Handler) IncSourcePages(scope string, success bool) {
	if h == nil {
		return
	}
	h.SourcePagesFetched.WithLabelValues(scope, strconv.FormatBool(success)).Inc()
}

// AddEventsClassified counts returned events of one category.
func (h *Handler) AddEventsClassified(category string, n int) {
	if h == nil || n == 0 {
		return
	}
	h.EventsClassified.WithLabelValues(category).Add(float64(n))
}

// IncSummaryStage counts one backend call of a summary stage.
func (h *Handler) IncSummaryStage(stage, outcome string) {
	if h == nil {
		return
	}
	h.SummaryStages.WithLabelValues(stage, outcome).Inc()
}

// ObserveSummaryJob records a finished job.
func (h *Handler) ObserveSummaryJob(status, strategy string, duration time.Duration) {
	if h == nil {
		return
	}
	h.SummaryJobs.WithLabelValues(status, strategy).Inc()
	h.SummaryJobDuration.WithLabelValues(status).Observe(duration.Seconds())
}
