// Package metrics exposes Prometheus collectors for the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gophstamp_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gophstamp_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	grpcRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gophstamp_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "code"},
	)

	grpcRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gophstamp_grpc_request_duration_seconds",
			Help:    "gRPC request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	timestampsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gophstamp_timestamps_total",
			Help: "Timestamp submissions by outcome (created, deduplicated)",
		},
		[]string{"outcome"},
	)

	verificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gophstamp_verifications_total",
			Help: "Verification requests by result (valid, invalid, not_found)",
		},
		[]string{"result"},
	)

	otpDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gophstamp_otp_dispatch_total",
			Help: "One-time code deliveries by status (sent, failed)",
		},
		[]string{"status"},
	)

	authEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gophstamp_auth_events_total",
			Help: "Authentication steps by event and outcome",
		},
		[]string{"event", "outcome"},
	)

	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gophstamp_rate_limited_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"transport"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routePattern keeps label cardinality bounded: unmatched paths collapse
// into a single label.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// RecordGRPC records one finished gRPC call.
func RecordGRPC(method, code string, d time.Duration) {
	grpcRequestsTotal.WithLabelValues(method, code).Inc()
	grpcRequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordTimestamp records a submission; created is false for duplicates.
func RecordTimestamp(created bool) {
	if created {
		timestampsTotal.WithLabelValues("created").Inc()
		return
	}
	timestampsTotal.WithLabelValues("deduplicated").Inc()
}

// RecordVerification records a verification result.
func RecordVerification(result string) {
	verificationsTotal.WithLabelValues(result).Inc()
}

// RecordOTPDispatch records a delivery attempt.
func RecordOTPDispatch(err error) {
	if err != nil {
		otpDispatchTotal.WithLabelValues("failed").Inc()
		return
	}
	otpDispatchTotal.WithLabelValues("sent").Inc()
}

// RecordAuth records an authentication step, e.g. ("login", "ok").
func RecordAuth(event, outcome string) {
	authEventsTotal.WithLabelValues(event, outcome).Inc()
}

// RecordRateLimited records a rejected request.
func RecordRateLimited(transport string) {
	rateLimitedTotal.WithLabelValues(transport).Inc()
}
