package monitoring

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registerOnce sync.Once

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code", "service"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "service"},
	)

	// Database metrics
	dbConnectionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
		[]string{"database", "service"},
	)

	dbQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"query_type", "service"},
	)

	// Booking metrics
	appointmentsBookedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointments_booked_total",
			Help: "Total number of appointments booked",
		},
		[]string{"purpose", "service"},
	)

	bookingConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_conflicts_total",
			Help: "Total number of booking attempts rejected by conflict checks",
		},
		[]string{"reason", "service"},
	)

	// Schedule lifecycle metrics
	schedulesPurgedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedules_purged_total",
			Help: "Total number of stale schedules removed by retention",
		},
		[]string{"trigger", "service"},
	)

	scheduleImportRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_import_rows_total",
			Help: "Total number of bulk import rows by outcome",
		},
		[]string{"outcome", "service"},
	)

	// Reminder metrics
	remindersSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Total number of appointment reminders dispatched",
		},
		[]string{"status", "service"},
	)

	// Authentication metrics
	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "status", "service"},
	)

	// Audit log metrics
	auditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_total",
			Help: "Total number of audit events",
		},
		[]string{"event_type", "success", "service"},
	)

	// System metrics
	systemErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "system_errors_total",
			Help: "Total number of system errors",
		},
		[]string{"error_type", "service", "component"},
	)
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	serviceName string
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(serviceName string) *MetricsCollector {
	// Register metrics once; collectors are process-wide
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			dbConnectionsActive,
			dbQueryDuration,
			appointmentsBookedTotal,
			bookingConflictsTotal,
			schedulesPurgedTotal,
			scheduleImportRowsTotal,
			remindersSentTotal,
			authAttemptsTotal,
			auditEventsTotal,
			systemErrors,
		)
	})

	return &MetricsCollector{
		serviceName: serviceName,
	}
}

// RecordHTTPRequest records HTTP request metrics
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode, m.serviceName).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, m.serviceName).Observe(duration.Seconds())
}

// RecordDBConnection records database connection metrics
func (m *MetricsCollector) RecordDBConnection(database string, activeConnections int) {
	dbConnectionsActive.WithLabelValues(database, m.serviceName).Set(float64(activeConnections))
}

// RecordDBQuery records database query metrics
func (m *MetricsCollector) RecordDBQuery(queryType string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(queryType, m.serviceName).Observe(duration.Seconds())
}

// RecordBooking records a successful appointment booking
func (m *MetricsCollector) RecordBooking(purpose string) {
	appointmentsBookedTotal.WithLabelValues(purpose, m.serviceName).Inc()
}

// RecordBookingConflict records a booking rejected by conflict validation
func (m *MetricsCollector) RecordBookingConflict(reason string) {
	bookingConflictsTotal.WithLabelValues(reason, m.serviceName).Inc()
}

// RecordSchedulesPurged records schedules removed by a retention run
func (m *MetricsCollector) RecordSchedulesPurged(trigger string, count int) {
	schedulesPurgedTotal.WithLabelValues(trigger, m.serviceName).Add(float64(count))
}

// RecordImportRows records bulk import row outcomes
func (m *MetricsCollector) RecordImportRows(outcome string, count int) {
	scheduleImportRowsTotal.WithLabelValues(outcome, m.serviceName).Add(float64(count))
}

// RecordReminder records a reminder dispatch attempt
func (m *MetricsCollector) RecordReminder(status string) {
	remindersSentTotal.WithLabelValues(status, m.serviceName).Inc()
}

// RecordAuthAttempt records authentication attempt metrics
func (m *MetricsCollector) RecordAuthAttempt(method, status string) {
	authAttemptsTotal.WithLabelValues(method, status, m.serviceName).Inc()
}

// RecordAuditEvent records audit event metrics
func (m *MetricsCollector) RecordAuditEvent(eventType string, success bool) {
	successStr := strconv.FormatBool(success)
	auditEventsTotal.WithLabelValues(eventType, successStr, m.serviceName).Inc()
}

// RecordSystemError records system error metrics
func (m *MetricsCollector) RecordSystemError(errorType, component string) {
	systemErrors.WithLabelValues(errorType, m.serviceName, component).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.Handler()
}

// HTTPMiddleware creates middleware for HTTP request metrics
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Capture the status code written by downstream handlers
		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		statusCode := strconv.Itoa(wrapper.statusCode)

		m.RecordHTTPRequest(r.Method, r.URL.Path, statusCode, duration)
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
