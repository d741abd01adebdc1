// Package postgres provides the PostgreSQL implementation of the
// notification queue repository.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/whisperbox/whisperbox/internal/domain"
	"github.com/whisperbox/whisperbox/internal/notifications"
)

// Repository implements notifications.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL queue repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Enqueue persists a new queue item with status pending.
func (r *Repository) Enqueue(ctx context.Context, item *notifications.QueueItem) error {
	payload, err := json.Marshal(item.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO notification_queue (id, recipient_user_id, channel, payload, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRow(ctx, query,
		item.ID,
		item.RecipientUserID,
		item.Channel,
		payload,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("enqueue item: %w", err)
	}

	item.Status = notifications.QueueStatusPending
	return nil
}

// ClaimBatch atomically moves up to limit pending items to processing,
// oldest first, and returns them. The subquery locks candidate rows with
// SKIP LOCKED so concurrent claims never overlap.
func (r *Repository) ClaimBatch(ctx context.Context, limit int) ([]*notifications.QueueItem, error) {
	query := `
		UPDATE notification_queue
		SET status = 'processing', attempts = attempts + 1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM notification_queue
			WHERE status = 'pending'
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, recipient_user_id, channel, payload, status, attempts, last_error, created_at, updated_at
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	defer rows.Close()

	items := make([]*notifications.QueueItem, 0, limit)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim batch rows: %w", err)
	}

	// The UPDATE returns rows in arbitrary order; restore claim order.
	sortByCreatedAt(items)

	return items, nil
}

// MarkCompleted transitions a processing item to completed. Returns false
// without error when the item is not currently processing.
func (r *Repository) MarkCompleted(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE notification_queue
		SET status = 'completed', updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("mark completed: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// MarkFailed transitions a processing item to failed, recording the error.
func (r *Repository) MarkFailed(ctx context.Context, id string, errMsg string) (bool, error) {
	query := `
		UPDATE notification_queue
		SET status = 'failed', last_error = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`
	result, err := r.db.Exec(ctx, query, id, errMsg)
	if err != nil {
		return false, fmt.Errorf("mark failed: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// CleanupOldItems deletes terminal items created before the cutoff.
func (r *Repository) CleanupOldItems(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `
		DELETE FROM notification_queue
		WHERE status IN ('completed', 'failed') AND created_at < $1
	`
	result, err := r.db.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("cleanup old items: %w", err)
	}
	return result.RowsAffected(), nil
}

// Stats returns per-status queue counts.
func (r *Repository) Stats(ctx context.Context) (*notifications.QueueStats, error) {
	query := `SELECT status, COUNT(*) FROM notification_queue GROUP BY status`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := &notifications.QueueStats{}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		switch notifications.QueueStatus(status) {
		case notifications.QueueStatusPending:
			stats.Pending = count
		case notifications.QueueStatusProcessing:
			stats.Processing = count
		case notifications.QueueStatusCompleted:
			stats.Completed = count
		case notifications.QueueStatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats rows: %w", err)
	}

	return stats, nil
}

// GetItemByID retrieves a single queue item; used by tests and ops tooling.
func (r *Repository) GetItemByID(ctx context.Context, id string) (*notifications.QueueItem, error) {
	query := `
		SELECT id, recipient_user_id, channel, payload, status, attempts, last_error, created_at, updated_at
		FROM notification_queue
		WHERE id = $1
	`
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get item rows: %w", err)
		}
		return nil, ErrItemNotFound
	}
	return scanItem(rows)
}

func scanItem(rows pgx.Rows) (*notifications.QueueItem, error) {
	var item notifications.QueueItem
	var payload []byte
	var channel string
	var status string
	var lastError *string

	err := rows.Scan(
		&item.ID,
		&item.RecipientUserID,
		&channel,
		&payload,
		&status,
		&item.Attempts,
		&lastError,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan queue item: %w", err)
	}

	item.Channel = domain.ChannelType(channel)
	item.Status = notifications.QueueStatus(status)
	if lastError != nil {
		item.LastError = *lastError
	}

	if err := json.Unmarshal(payload, &item.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	return &item, nil
}

func sortByCreatedAt(items []*notifications.QueueItem) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

// ErrItemNotFound is returned by GetItemByID for unknown IDs.
var ErrItemNotFound = errors.New("queue item not found")
