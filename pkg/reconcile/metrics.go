package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// runsTotal counts finished reconciliation runs by terminal state.
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netconsole",
		Subsystem: "reconcile",
		Name:      "runs_total",
		Help:      "Reconciliation runs by terminal state.",
	}, []string{"state"})

	// intentsTotal counts executor calls by intent name and outcome.
	intentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netconsole",
		Subsystem: "reconcile",
		Name:      "intents_total",
		Help:      "Intent executions by intent name and outcome.",
	}, []string{"intent", "outcome"})

	// runDuration observes wall time of runs that reached a terminal state.
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "netconsole",
		Subsystem: "reconcile",
		Name:      "run_duration_seconds",
		Help:      "Duration of reconciliation runs in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)
