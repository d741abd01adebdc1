package messages

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "whisperbox",
			Subsystem: "messages",
			Name:      "received_total",
			Help:      "Total anonymous messages accepted",
		},
	)

	notifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "whisperbox",
			Subsystem: "messages",
			Name:      "notify_failures_total",
			Help:      "Messages accepted but whose notification enqueue failed",
		},
	)
)
