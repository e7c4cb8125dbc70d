package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		},
		[]string{"method", "path"},
	)

	// Probe metrics
	ProbeStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discovery_probe_stage_duration_seconds",
			Help:    "Duration of a single probe stage (frontend, backend)",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"stage"},
	)

	ProbeStageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_probe_stage_failures_total",
			Help: "Total number of failed probe stages",
		},
		[]string{"stage"},
	)

	ProbeRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "discovery_probe_run_duration_seconds",
			Help:    "Duration of a full probe run over all environments",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	ProbeDeadlineExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_probe_deadline_exceeded_total",
			Help: "Total number of environments reported unavailable because the run deadline fired",
		},
	)

	IndicesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_indices_skipped_total",
			Help: "Total number of managed indices dropped because of missing or malformed metadata",
		},
		[]string{"environment"},
	)

	EnvironmentAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "discovery_environment_available",
			Help: "Whether the environment reported the given status in the latest run (1) or not (0)",
		},
		[]string{"environment", "status"},
	)

	EnvironmentIndices = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "discovery_environment_indices",
			Help: "Number of managed indices found in the latest run",
		},
		[]string{"environment"},
	)
)

// Metrics returns a middleware that records Prometheus metrics
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(ww.Status())
		path := routeLabel(chi.RouteContext(r.Context()), r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		httpResponseSize.WithLabelValues(r.Method, path).Observe(float64(ww.BytesWritten()))
	})
}

var knownPaths = map[string]bool{
	"/api/v1/environments": true,
	"/graphql":             true,
	"/health":              true,
	"/ping":                true,
	"/version":             true,
	"/metrics":             true,
}

// normalizePath maps unknown paths to a single label
// This prevents cardinality explosion from scanners and typos
func normalizePath(path string) string {
	path = strings.TrimRight(path, "/")
	if path == "" {
		return "/"
	}
	if knownPaths[path] {
		return path
	}
	return "other"
}
