package notifications

import (
	"time"

	"github.com/whisperbox/whisperbox/internal/domain"
)

// QueueStatus represents the status of a queue item.
type QueueStatus string

// Queue statuses. An item moves pending -> processing -> completed|failed.
// Terminal items are eventually removed by the cleanup sweep.
const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

// QueueItem is a single staged notification delivery. The payload is opaque
// to the queue itself; only the channel sender interprets it.
type QueueItem struct {
	ID              string
	RecipientUserID string
	Channel         domain.ChannelType
	Payload         Payload
	Status          QueueStatus
	Attempts        int
	LastError       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// QueueStats holds per-status item counts for metrics and the stats endpoint.
type QueueStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}
