package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recap_client",
			Name:      "requests_total",
			Help:      "Backend calls by endpoint and outcome (ok, validation, auth, transport, domain).",
		},
		[]string{"endpoint", "outcome"},
	)

	requestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recap_client",
			Name:      "request_duration_seconds",
			Help:      "Round trip time of backend calls that reached the network.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)
