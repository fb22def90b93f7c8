// Package metrics defines and registers all custom Prometheus metrics for the
// todo API. It is the single source of truth for metric names, labels, and
// help strings. HTTP request metrics come from the echoprometheus middleware
// wired in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "todo"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "throttled" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "success", "duplicate_username", "duplicate_email" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// TokenRefreshTotal counts access-token renewals.
// Label:
//   - result: "success", "expired" (session ended) or "rejected"
var TokenRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "token_refresh_total",
		Help:      "Total number of access-token refresh attempts, by result.",
	},
	[]string{"result"},
)

// AuthorizationDeniedTotal counts requests refused for insufficient role.
// Label:
//   - tier: the policy tier that denied the request
var AuthorizationDeniedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "authorization_denied_total",
		Help:      "Total number of requests denied by role-tier authorization.",
	},
	[]string{"tier"},
)

// ── Todo metrics ──────────────────────────────────────────────────────────────

// TodoMutationsTotal counts successful todo writes.
// Label:
//   - op: "create", "update", "delete" or "toggle"
var TodoMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "todos_mutations_total",
		Help:      "Total number of successful todo mutations, by operation.",
	},
	[]string{"op"},
)
