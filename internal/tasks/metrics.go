package tasks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	outcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recap_client",
			Name:      "optimistic_outcomes_total",
			Help:      "Optimistic social actions by action and outcome (committed, rolled_back, duplicate).",
		},
		[]string{"action", "outcome"},
	)

	subscribeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recap_client",
			Name:      "subscribe_attempts_total",
			Help:      "Subscription attempts by the phase they ended in (ok or the failing phase).",
		},
		[]string{"result"},
	)
)
