package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/galleon/clash-of-courses/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the eligibility engine. It implements EngineObserver.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	evaluationsTotal *prometheus.CounterVec
	violationsTotal  *prometheus.CounterVec
	autoResolves     *prometheus.CounterVec
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	evaluationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_evaluations_total",
		Help: "Eligibility checks by outcome",
	}, []string{"outcome"})

	violationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_violations_total",
		Help: "Rule violations reported by the engine",
	}, []string{"rule_code"})

	autoResolves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_auto_resolves_total",
		Help: "Time conflict auto-resolution attempts by outcome",
	}, []string{"outcome"})

	registry.MustRegister(requestDuration, requestTotal, evaluationsTotal, violationsTotal, autoResolves)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		evaluationsTotal: evaluationsTotal,
		violationsTotal:  violationsTotal,
		autoResolves:     autoResolves,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// RecordHTTPRequest observes one completed HTTP request.
func (s *MetricsService) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// ObserveEvaluation counts an eligibility check outcome.
func (s *MetricsService) ObserveEvaluation(attachable bool) {
	outcome := "blocked"
	if attachable {
		outcome = "attachable"
	}
	s.evaluationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveViolation counts one reported rule violation.
func (s *MetricsService) ObserveViolation(code models.RuleCode) {
	s.violationsTotal.WithLabelValues(string(code)).Inc()
}

// ObserveAutoResolve counts an auto-resolution attempt.
func (s *MetricsService) ObserveAutoResolve(resolved bool) {
	outcome := "escalated"
	if resolved {
		outcome = "resolved"
	}
	s.autoResolves.WithLabelValues(outcome).Inc()
}
