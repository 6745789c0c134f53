// Package metrics holds the Prometheus collectors shared by the portal
// components.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	loginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoitoportaali_login_attempts_total",
			Help: "Login attempts by account kind and internal reason",
		},
		[]string{"kind", "reason"},
	)

	accessDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoitoportaali_access_decisions_total",
			Help: "Permission resolver decisions by deciding rule",
		},
		[]string{"rule", "allowed"},
	)

	approvalTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoitoportaali_approval_transitions_total",
			Help: "Critical diagnosis approval transitions by target status",
		},
		[]string{"status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoitoportaali_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		},
		[]string{"method", "route", "status_code"},
	)
)

func init() {
	prometheus.MustRegister(
		loginAttemptsTotal,
		accessDecisionsTotal,
		approvalTransitionsTotal,
		httpRequestsTotal,
	)
}

func LoginAttempt(kind, reason string) {
	loginAttemptsTotal.WithLabelValues(kind, reason).Inc()
}

func AccessDecision(rule string, allowed bool) {
	v := "false"
	if allowed {
		v = "true"
	}
	accessDecisionsTotal.WithLabelValues(rule, v).Inc()
}

func ApprovalTransition(status string) {
	approvalTransitionsTotal.WithLabelValues(status).Inc()
}

func HTTPRequest(method, route, statusCode string) {
	httpRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
