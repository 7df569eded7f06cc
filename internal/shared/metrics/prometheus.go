package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	assessmentsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessments_completed_total",
			Help: "Total number of household assessments completed",
		},
		[]string{"classification", "partial"},
	)

	programVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "program_verdicts_total",
			Help: "Total number of program eligibility verdicts produced",
		},
		[]string{"program", "eligible"},
	)

	applicationsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applications_submitted_total",
			Help: "Total number of assistance applications submitted",
		},
		[]string{"program"},
	)

	applicationStatusChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_status_changed_total",
			Help: "Total number of application status transitions",
		},
		[]string{"from_status", "to_status"},
	)

	notificationsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_emitted_total",
			Help: "Total number of notifications emitted",
		},
		[]string{"type"},
	)

	oracleRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_requests_total",
			Help: "Total number of scoring oracle requests",
		},
		[]string{"outcome"},
	)

	oracleRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oracle_request_duration_seconds",
			Help:    "Scoring oracle request duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	auditEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Total number of audit entries created",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes URL paths for metrics to avoid cardinality explosion
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Business metric helpers ---

// RecordAssessment records a completed household assessment
func RecordAssessment(classification string, partial bool) {
	assessmentsCompleted.WithLabelValues(classification, strconv.FormatBool(partial)).Inc()
}

// RecordVerdict records a program eligibility verdict
func RecordVerdict(programID string, eligible bool) {
	programVerdicts.WithLabelValues(programID, strconv.FormatBool(eligible)).Inc()
}

// RecordApplicationSubmitted records an application submission
func RecordApplicationSubmitted(programID string) {
	applicationsSubmitted.WithLabelValues(programID).Inc()
}

// RecordStatusChange records an application status transition
func RecordStatusChange(fromStatus, toStatus string) {
	applicationStatusChanged.WithLabelValues(fromStatus, toStatus).Inc()
}

// RecordNotification records an emitted notification
func RecordNotification(notifType string) {
	notificationsEmitted.WithLabelValues(notifType).Inc()
}

// RecordOracleRequest records a scoring oracle call
func RecordOracleRequest(outcome string, duration time.Duration) {
	oracleRequests.WithLabelValues(outcome).Inc()
	oracleRequestDuration.Observe(duration.Seconds())
}

// RecordAuditEntry records an audit entry creation
func RecordAuditEntry() {
	auditEntriesTotal.Inc()
}
