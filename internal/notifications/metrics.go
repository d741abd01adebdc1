package notifications

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "whisperbox"

var (
	notificationQueueSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "queue_size",
			Help:      "Number of notifications in queue by status",
		},
		[]string{"status"},
	)

	notificationsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "enqueued_total",
			Help:      "Total notifications staged on the queue",
		},
		[]string{"channel"},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Total delivery attempts by terminal outcome",
		},
		[]string{"channel", "status"},
	)

	notificationSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "send_duration_seconds",
			Help:      "Time to deliver a notification",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)

	notificationsClaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "queue_claimed_total",
			Help:      "Total items claimed from the queue before dispatch",
		},
	)
)

func recordEnqueued(channel string) {
	notificationsEnqueued.WithLabelValues(channel).Inc()
}

func recordNotificationSent(channel, status string) {
	notificationsSent.WithLabelValues(channel, status).Inc()
}

func recordNotificationDuration(channel string, duration time.Duration) {
	notificationSendDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

func recordQueueClaimed(count int) {
	notificationsClaimed.Add(float64(count))
}

// RecordQueueStats updates queue size gauges.
func RecordQueueStats(stats *QueueStats) {
	notificationQueueSize.WithLabelValues("pending").Set(float64(stats.Pending))
	notificationQueueSize.WithLabelValues("processing").Set(float64(stats.Processing))
	notificationQueueSize.WithLabelValues("completed").Set(float64(stats.Completed))
	notificationQueueSize.WithLabelValues("failed").Set(float64(stats.Failed))
}
