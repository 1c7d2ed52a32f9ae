// Package metrics provides Prometheus HTTP metrics middleware and guestbook counters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/itchan-dev/guestbook/internal/domain"
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
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	messagesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guestbook_messages_created_total",
			Help: "Messages persisted by the submission handler",
		},
	)

	messagesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guestbook_messages_deleted_total",
			Help: "Messages removed by id",
		},
	)

	orphansDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guestbook_orphaned_attachments_deleted_total",
			Help: "Unreferenced uploads removed by the garbage collector",
		},
	)

	attachmentsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guestbook_attachments_total",
			Help: "Uploaded attachments by kind; unsupported ones are dropped",
		},
		[]string{"kind"},
	)
)

func MessageCreated() { messagesCreated.Inc() }

func MessageDeleted() { messagesDeleted.Inc() }

func OrphansDeleted(n int) { orphansDeleted.Add(float64(n)) }

func AttachmentStored(kind domain.MediaKind) {
	attachmentsStored.WithLabelValues(kind.String()).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records Prometheus metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := newResponseWriter(w)
		next.ServeHTTP(wrapped, r)

		// Use chi's route pattern if available to avoid high cardinality
		path := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}
