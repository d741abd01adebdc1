// Package notifications provides the durable notification queue, the batch
// processor that drains it and the dispatch service that feeds it.
package notifications

import (
	"context"
	"time"

	"github.com/whisperbox/whisperbox/internal/domain"
)

// Repository defines queue persistence. Implementations must make ClaimBatch
// atomic: two concurrent calls never return overlapping items.
type Repository interface {
	// Enqueue persists the item with status pending before returning.
	Enqueue(ctx context.Context, item *QueueItem) error

	// ClaimBatch selects up to limit pending items, oldest first, and moves
	// them to processing in the same operation, incrementing their attempt
	// counter.
	ClaimBatch(ctx context.Context, limit int) ([]*QueueItem, error)

	// MarkCompleted transitions a processing item to completed. Any other
	// current status makes this a no-op; affected=false then.
	MarkCompleted(ctx context.Context, id string) (affected bool, err error)

	// MarkFailed transitions a processing item to failed, recording errMsg.
	// Same no-op semantics as MarkCompleted.
	MarkFailed(ctx context.Context, id string, errMsg string) (affected bool, err error)

	// CleanupOldItems deletes completed and failed items created before the
	// cutoff. Pending and processing items are never touched.
	CleanupOldItems(ctx context.Context, olderThan time.Time) (int64, error)

	// Stats returns per-status item counts.
	Stats(ctx context.Context) (*QueueStats, error)
}

// SettingsReader loads the recipient data the dispatch service needs.
// Profile rows are owned by the out-of-scope CRUD surface; this service
// only reads them.
type SettingsReader interface {
	GetProfileByID(ctx context.Context, id string) (*domain.Profile, error)
}
