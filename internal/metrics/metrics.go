// Package metrics defines and registers all custom Prometheus metrics for
// the session subsystem. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics registered here use promauto, so importing the package is enough;
// the HTTP layer additionally exposes request metrics via echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "session"

// DeviceRegistrationsTotal counts quota-registry registration attempts.
// Label:
//   - result: "ok", "limit_exceeded", or "error"
var DeviceRegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "device_registrations_total",
		Help:      "Total number of device registration attempts, by result.",
	},
	[]string{"result"},
)

// DeviceUnregistrationsTotal counts device removals.
// Label:
//   - reason: "logout", "manual", or "reset"
var DeviceUnregistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "device_unregistrations_total",
		Help:      "Total number of device removals, by reason.",
	},
	[]string{"reason"},
)

// StateTransitionsTotal counts published auth-state snapshots.
// Label:
//   - status: the published status (e.g. "authenticated", "error")
var StateTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "state_transitions_total",
		Help:      "Total number of auth state snapshots published, by status.",
	},
	[]string{"status"},
)

// TokensIssuedTotal counts routing tokens minted for session cookies.
var TokensIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of routing tokens issued.",
	},
)

// UnregisterTimeoutsTotal counts logouts where the bounded device
// unregistration did not complete in time and was abandoned.
var UnregisterTimeoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unregister_timeouts_total",
		Help:      "Total number of best-effort unregistrations abandoned at the deadline.",
	},
)

// NotificationsDroppedTotal counts notifications discarded because a worker
// queue was full.
var NotificationsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_dropped_total",
		Help:      "Total number of notifications dropped due to queue backpressure.",
	},
)
