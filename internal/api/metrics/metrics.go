// Package metrics defines and registers all custom Prometheus metrics for
// the dispatch core. It is the single source of truth for metric names,
// labels, and help strings.
//
// Everything registers against the default registry via promauto at init
// time; the /metrics route exposes it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dispatch"

// --- Geocoding metrics ---

// GeocodeRequestsTotal counts gateway operations against the provider.
// Labels:
//   - op: "geocode", "reverse", "distance"
//   - status: the provider's raw status ("OK", "ZERO_RESULTS", …) or "transport_error"
var GeocodeRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocode_requests_total",
		Help:      "Total number of geocoding provider calls, by operation and outcome.",
	},
	[]string{"op", "status"},
)

// GeocodeCacheTotal counts geocode cache decisions.
// Label:
//   - result: "hit" or "miss"
var GeocodeCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocode_cache_total",
		Help:      "Total number of geocode cache lookups, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// ProviderRequestDuration measures one provider round-trip, retries included.
// Label:
//   - op: "geocode", "reverse", "distance", "ai_generate"
var ProviderRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Duration of external provider calls including retries.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"op"},
)

// --- Shipment metrics ---

// TransitionsTotal counts shipment transitions that were applied.
// Label:
//   - status: the target status (e.g. "delivered")
var TransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Total number of shipment transitions applied, by target status.",
	},
	[]string{"status"},
)

// TransitionErrorsTotal counts rejected transitions.
// Label:
//   - reason: "invalid_status", "invalid_transition", "terminal", "forbidden", "reason_required"
var TransitionErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transition_errors_total",
		Help:      "Total number of shipment transitions that were rejected or failed.",
	},
	[]string{"reason"},
)

// NotificationsEmittedTotal counts approval notifications created by
// transitions.
// Label:
//   - type: "order_cancelled" or "order_returned"
var NotificationsEmittedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_emitted_total",
		Help:      "Total number of transition side-effect notifications created.",
	},
	[]string{"type"},
)

// --- Tracker metrics ---

// TrackerActiveSessions tracks the number of live driver tracking sessions.
var TrackerActiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracker_active_sessions",
		Help:      "Current number of active driver tracking sessions.",
	},
)

// PositionUpdatesTotal counts driver position samples applied.
// Label:
//   - result: "applied" or "stale" (dropped by the monotonicity guard)
var PositionUpdatesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "position_updates_total",
		Help:      "Total number of driver position samples received, by outcome.",
	},
	[]string{"result"},
)

// OrderListRefreshTotal counts assigned-order reconciliation fetches.
// Label:
//   - trigger: "interval" or "event"
var OrderListRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_list_refresh_total",
		Help:      "Total number of assigned-order list refreshes, by trigger.",
	},
	[]string{"trigger"},
)
