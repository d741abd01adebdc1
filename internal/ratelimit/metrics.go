package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rateLimitDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "whisperbox",
		Subsystem: "ratelimit",
		Name:      "decisions_total",
		Help:      "Rate limit decisions by outcome",
	},
	[]string{"outcome"},
)

func recordDecision(outcome string) {
	rateLimitDecisions.WithLabelValues(outcome).Inc()
}
