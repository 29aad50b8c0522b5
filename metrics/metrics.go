// Package metrics defines the Prometheus collectors for the cashbook engine.
// Collectors register themselves on the default registry via promauto; the
// API server exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CascadeOps counts mutation cascades by operation and outcome.
// operation: append | amend | delete | purge. status: ok | error.
var CascadeOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "cashbook",
	Subsystem: "ledger",
	Name:      "cascade_operations_total",
	Help:      "Mutation cascades run, by operation and outcome.",
}, []string{"operation", "status"})

// RecalcDuration observes the wall time of one forward recalculation walk.
var RecalcDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "cashbook",
	Subsystem: "ledger",
	Name:      "recalculation_duration_seconds",
	Help:      "Duration of forward chain recalculations.",
	Buckets:   prometheus.DefBuckets,
})

// RecalcDatesWalked counts chain nodes visited by recalculation walks.
var RecalcDatesWalked = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "cashbook",
	Subsystem: "ledger",
	Name:      "recalculation_dates_walked_total",
	Help:      "Chain nodes visited across all recalculation walks.",
})

// PurgedDates counts date subtrees handed to the external purger.
var PurgedDates = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "cashbook",
	Subsystem: "ledger",
	Name:      "purged_dates_total",
	Help:      "Date subtrees purged by bulk purges.",
})
