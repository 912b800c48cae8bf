package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codevoice_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "codevoice_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "route"},
	)

	Interactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codevoice_interactions_total",
			Help: "Spoken phrases answered, by intent and tone",
		},
		[]string{"intent", "tone"},
	)

	CompletionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codevoice_completion_errors_total",
			Help: "Failed completion calls by backend",
		},
		[]string{"backend"},
	)

	EmptyCompletions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codevoice_empty_completions_total",
			Help: "Completions that returned no content and were replaced by the fallback text",
		},
	)

	CompletionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codevoice_completion_latency_seconds",
			Help:    "Completion call latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"backend"},
	)

	OpenSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codevoice_open_sessions",
			Help: "Number of open voice sessions",
		},
	)
)

// ObserveCompletion records one completion call.
func ObserveCompletion(backend string, started time.Time, err error) {
	CompletionLatency.WithLabelValues(backend).Observe(time.Since(started).Seconds())
	if err != nil {
		CompletionErrors.WithLabelValues(backend).Inc()
	}
}

// Middleware records request counts and durations labelled by the chi
// route pattern, keeping label cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RequestCount.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
