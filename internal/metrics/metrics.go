// Package metrics holds Prometheus instruments used across the service.
// All collectors are registered with the global registry, so importing this
// package is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	LoginSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_submissions_total",
			Help: "Login submissions by outcome.",
		}, []string{"outcome"})

	LoginValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_validation_failures_total",
			Help: "Schema validation failures by field and kind.",
		}, []string{"field", "kind"})

	AuthDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "login_auth_duration_seconds",
			Help:    "Latency of calls to the authentication backend.",
			Buckets: prometheus.DefBuckets,
		})

	AuthErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "login_auth_errors_total",
			Help: "Authentication calls that failed without a result.",
		})

	CSRFRejectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "login_csrf_rejects_total",
			Help: "Form posts rejected for an invalid CSRF token.",
		})
)

func init() {
	prometheus.MustRegister(
		LoginSubmissions,
		LoginValidationFailures,
		AuthDuration,
		AuthErrorsTotal,
		CSRFRejectsTotal,
	)
}
