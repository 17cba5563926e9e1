// Package metrics exposes the bot's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leavebot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leavebot_turns_total",
			Help: "Message turns handled, by route",
		},
		[]string{"route"},
	)

	RecognizerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leavebot_recognizer_failures_total",
			Help: "Failed intent recognition calls",
		},
		[]string{"recognizer"},
	)

	DateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leavebot_date_rejections_total",
			Help: "Leave dates rejected by the validator",
		},
		[]string{"reason"},
	)

	LeaveSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leavebot_leave_submissions_total",
			Help: "Leave applications by outcome",
		},
		[]string{"outcome"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leavebot_rate_limited_total",
			Help: "Inbound messages dropped by the per-user rate limiter",
		},
	)
)

func RecordRequest(method, path, status string, seconds float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(seconds)
}

func RecordTurn(route string) {
	TurnsTotal.WithLabelValues(route).Inc()
}

func RecordRecognizerFailure(name string) {
	RecognizerFailures.WithLabelValues(name).Inc()
}

func RecordDateRejection(reason string) {
	DateRejections.WithLabelValues(reason).Inc()
}

// RecordSubmission counts one application. Outcome is one of
// "submitted", "cancelled", "cap_reached", "unknown_employee" or "error".
func RecordSubmission(outcome string) {
	LeaveSubmissions.WithLabelValues(outcome).Inc()
}

func RecordRateLimited() {
	RateLimited.Inc()
}
