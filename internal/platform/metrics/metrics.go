// Package metrics exposes Prometheus instrumentation for the practice
// service. A nil *Metrics is valid and records nothing.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "practice"

// Question sources reported by QuestionServed.
const (
	SourceStore       = "store"
	SourceGenerated   = "generated"
	SourcePlaceholder = "placeholder"
)

// Metrics holds every collector the service exports on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	questionsServed    *prometheus.CounterVec
	answersRecorded    *prometheus.CounterVec
	generationFailures *prometheus.CounterVec
	generationDuration prometheus.Histogram
	aiRequests         *prometheus.CounterVec
	aiDuration         *prometheus.HistogramVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		questionsServed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "questions_served_total",
				Help:      "Questions handed to learners, by source.",
			},
			[]string{"source"},
		),
		answersRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "answers_recorded_total",
				Help:      "Graded answers, by result.",
			},
			[]string{"result"},
		),
		generationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_failures_total",
				Help:      "Generation attempts replaced by a placeholder, by reason.",
			},
			[]string{"reason"},
		),
		generationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Time spent generating one question.",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20},
			},
		),
		aiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ai_requests_total",
				Help:      "AI provider attempts, by provider, task and status.",
			},
			[]string{"provider", "task", "status"},
		),
		aiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ai_request_duration_seconds",
				Help:      "AI provider latency.",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"provider"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.questionsServed,
		m.answersRecorded,
		m.generationFailures,
		m.generationDuration,
		m.aiRequests,
		m.aiDuration,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the registry backing m, or nil for a nil m.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) QuestionServed(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.questionsServed.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) AnswerRecorded(correct bool) {
	if m == nil {
		return
	}
	result := "incorrect"
	if correct {
		result = "correct"
	}
	m.answersRecorded.WithLabelValues(result).Inc()
}

func (m *Metrics) GenerationFailed(reason string) {
	if m == nil {
		return
	}
	m.generationFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) GenerationObserved(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.Observe(elapsed.Seconds())
}

// AIRequest records one provider attempt.
func (m *Metrics) AIRequest(provider, task string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.aiRequests.WithLabelValues(provider, task, status).Inc()
	m.aiDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// Middleware counts requests by route pattern, never by raw path.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.httpRequests.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes through to the wrapped writer so websocket upgrades work
// behind the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}
