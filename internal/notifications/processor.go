package notifications

import (
	"context"
	"log/slog"
	"time"
)

// ProcessorConfig contains processor settings.
type ProcessorConfig struct {
	// SendTimeout bounds a single channel call so one hanging external API
	// cannot stall the whole batch.
	SendTimeout time.Duration
}

// DefaultProcessorConfig returns default processor settings.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		SendTimeout: 15 * time.Second,
	}
}

// Processor drains the queue in bounded batches. It does not schedule
// itself: each run happens when the external trigger endpoint is called.
// Concurrent runs are safe because claiming is atomic, so no item is ever
// in flight twice.
type Processor struct {
	config     ProcessorConfig
	queue      Repository
	dispatcher *Dispatcher
}

// NewProcessor creates a new queue processor. One instance is constructed in
// app wiring and shared by all handlers.
func NewProcessor(config ProcessorConfig, queue Repository, dispatcher *Dispatcher) *Processor {
	if config.SendTimeout <= 0 {
		config.SendTimeout = DefaultProcessorConfig().SendTimeout
	}
	return &Processor{
		config:     config,
		queue:      queue,
		dispatcher: dispatcher,
	}
}

// ProcessQueue claims up to batchSize pending items and dispatches each one,
// recording the outcome per item. It returns the number of items a delivery
// was attempted for (completed + failed). A claim failure is treated as
// "nothing to do": the next scheduled invocation retries.
func (p *Processor) ProcessQueue(ctx context.Context, batchSize int) int {
	items, err := p.queue.ClaimBatch(ctx, batchSize)
	if err != nil {
		slog.Error("failed to claim batch", "error", err)
		return 0
	}

	if len(items) == 0 {
		return 0
	}

	slog.Debug("processing queue batch", "count", len(items))
	recordQueueClaimed(len(items))

	for _, item := range items {
		p.processItem(ctx, item)
	}

	return len(items)
}

// Cleanup deletes terminal items older than the retention window and returns
// the number of rows removed.
func (p *Processor) Cleanup(ctx context.Context, daysToKeep int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -daysToKeep)
	deleted, err := p.queue.CleanupOldItems(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		slog.Info("queue cleanup", "deleted", deleted, "days_kept", daysToKeep)
	}
	return deleted, nil
}

func (p *Processor) processItem(ctx context.Context, item *QueueItem) {
	start := time.Now()

	subject, body := item.Payload.Render(item.Channel)
	notification := Notification{
		To:      item.Payload.Destination,
		Subject: subject,
		Body:    body,
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.config.SendTimeout)
	err := p.dispatcher.SendToChannel(sendCtx, item.Channel, notification)
	cancel()

	duration := time.Since(start)

	if err != nil {
		slog.Warn("notification delivery failed",
			"item_id", item.ID,
			"channel", item.Channel,
			"attempt", item.Attempts,
			"error", err,
		)
		p.markFailed(ctx, item.ID, err.Error())
		recordNotificationSent(string(item.Channel), "failed")
		return
	}

	affected, markErr := p.queue.MarkCompleted(ctx, item.ID)
	if markErr != nil {
		slog.Error("failed to mark completed", "item_id", item.ID, "error", markErr)
	} else if !affected {
		slog.Warn("completed transition skipped: item no longer processing", "item_id", item.ID)
	}

	recordNotificationSent(string(item.Channel), "completed")
	recordNotificationDuration(string(item.Channel), duration)

	slog.Debug("notification sent",
		"item_id", item.ID,
		"channel", item.Channel,
		"duration", duration,
	)
}

func (p *Processor) markFailed(ctx context.Context, id, errMsg string) {
	affected, err := p.queue.MarkFailed(ctx, id, errMsg)
	if err != nil {
		slog.Error("failed to mark failed", "item_id", id, "error", err)
		return
	}
	if !affected {
		slog.Warn("failed transition skipped: item no longer processing", "item_id", id)
	}
}
