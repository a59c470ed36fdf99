// Package metrics defines and registers all custom Prometheus metrics for the
// events API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package init
// through promauto and exposed by the router on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "events"

// Result label values shared by the counters below.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// ── Membership metrics ────────────────────────────────────────────────────────

// MembershipOpsTotal counts membership mutations.
// Labels:
//   - op: "add_attendee", "remove_attendee", "add_guest" or "remove_guest"
//   - result: "ok" or the error kind (e.g. "forbidden", "capacity_exceeded")
var MembershipOpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "membership_ops_total",
		Help:      "Total number of membership operations, by operation and result.",
	},
	[]string{"op", "result"},
)

// CapacityRejectionsTotal counts attendee additions refused because the event was full.
var CapacityRejectionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "capacity_rejections_total",
		Help:      "Total number of attendee additions rejected at full capacity.",
	},
)

// ── Lifecycle metrics ─────────────────────────────────────────────────────────

// CreatedTotal counts newly created events. Idempotent replays are not counted.
var CreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "created_total",
		Help:      "Total number of events created.",
	},
)

// ── Dispatcher metrics ────────────────────────────────────────────────────────

// DispatchQueueDepth tracks the number of writes waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var DispatchQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dispatch_queue_depth",
		Help:      "Current number of writes pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// DispatchWaitSeconds measures how long a write waits in its worker channel before it runs.
var DispatchWaitSeconds = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "dispatch_wait_seconds",
		Help:      "Time a write spends queued before its worker picks it up.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
)
