package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	// Queue business metrics
	checkInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_check_ins_total",
			Help: "Total number of patient check-ins",
		},
		[]string{"department", "priority"},
	)

	statusChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_status_changes_total",
			Help: "Total number of queue entry status transitions",
		},
		[]string{"from_status", "to_status"},
	)

	waitTimeMinutes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_wait_time_minutes",
			Help:    "Actual wait from check-in to completion in minutes",
			Buckets: []float64{1, 5, 10, 15, 30, 45, 60, 90, 120},
		},
		[]string{"department"},
	)

	statsCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_stats_cache_total",
			Help: "Stats snapshot cache lookups by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordCheckIn records a patient check-in
func RecordCheckIn(department, priority string) {
	checkInsTotal.WithLabelValues(department, priority).Inc()
}

// RecordStatusChange records a queue entry status transition
func RecordStatusChange(fromStatus, toStatus string) {
	statusChangesTotal.WithLabelValues(fromStatus, toStatus).Inc()
}

// RecordWaitTime records the realized wait of a completed entry
func RecordWaitTime(department string, minutes int) {
	waitTimeMinutes.WithLabelValues(department).Observe(float64(minutes))
}

// RecordStatsCache records a stats cache lookup outcome (hit or miss)
func RecordStatsCache(outcome string) {
	statsCacheTotal.WithLabelValues(outcome).Inc()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		if route := routePattern(r); route != "" {
			path = route
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// routePattern resolves the chi route pattern after routing so metric
// labels stay low-cardinality (entry IDs collapse into {id})
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
