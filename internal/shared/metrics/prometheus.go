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

	// Workflow metrics
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Total number of workflow transitions executed",
		},
		[]string{"action", "outcome"},
	)

	authorizationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_authorization_decisions_total",
			Help: "Total number of transition authorization decisions",
		},
		[]string{"action", "role", "decision"},
	)

	notificationsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_persisted_total",
			Help: "Total number of notifications durably persisted",
		},
	)

	notificationsPersistFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_persist_failed_total",
			Help: "Total number of notification writes that failed",
		},
	)

	notificationsPushed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_pushed_total",
			Help: "Total number of live push attempts",
		},
		[]string{"outcome"},
	)

	auditEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Total number of audit entries appended",
		},
	)
)

// RecordTransition records an executed workflow transition by outcome
func RecordTransition(action, outcome string) {
	transitionsTotal.WithLabelValues(action, outcome).Inc()
}

// RecordAuthorization records a transition authorization decision
func RecordAuthorization(action, role string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	authorizationDecisions.WithLabelValues(action, role, decision).Inc()
}

// RecordNotificationPersisted counts a durable notification write
func RecordNotificationPersisted() {
	notificationsPersisted.Inc()
}

// RecordNotificationPersistFailed counts a failed notification write
func RecordNotificationPersistFailed() {
	notificationsPersistFailed.Inc()
}

// RecordNotificationPush counts a live push attempt
func RecordNotificationPush(ok bool) {
	outcome := "failed"
	if ok {
		outcome = "delivered"
	}
	notificationsPushed.WithLabelValues(outcome).Inc()
}

// RecordAuditEntry counts an appended audit entry
func RecordAuditEntry() {
	auditEntriesTotal.Inc()
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware instruments HTTP handlers with request metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
