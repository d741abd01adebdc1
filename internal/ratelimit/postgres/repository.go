// Package postgres provides the PostgreSQL implementation of the rate limit
// repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/whisperbox/whisperbox/internal/ratelimit"
)

// Repository implements ratelimit.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL rate limit repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetCurrentPolicy returns the newest policy row.
func (r *Repository) GetCurrentPolicy(ctx context.Context) (*ratelimit.Policy, error) {
	query := `
		SELECT id, max_messages_per_hour, max_messages_per_day, block_duration_hours, updated_at
		FROM rate_limit_policies
		ORDER BY updated_at DESC, id DESC
		LIMIT 1
	`
	var policy ratelimit.Policy
	err := r.db.QueryRow(ctx, query).Scan(
		&policy.ID,
		&policy.MaxMessagesPerHour,
		&policy.MaxMessagesPerDay,
		&policy.BlockDurationHours,
		&policy.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ratelimit.ErrNoPolicy
		}
		return nil, fmt.Errorf("get current policy: %w", err)
	}
	return &policy, nil
}

// InsertPolicy appends a new policy version. Rows are never updated in
// place, which keeps an audit trail without transactional update semantics.
func (r *Repository) InsertPolicy(ctx context.Context, policy *ratelimit.Policy) error {
	query := `
		INSERT INTO rate_limit_policies (id, max_messages_per_hour, max_messages_per_day, block_duration_hours)
		VALUES ($1, $2, $3, $4)
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		policy.ID,
		policy.MaxMessagesPerHour,
		policy.MaxMessagesPerDay,
		policy.BlockDurationHours,
	).Scan(&policy.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}
	return nil
}

// GetRecord returns the attempt record for the (ip, recipient) pair.
func (r *Repository) GetRecord(ctx context.Context, ip, recipientUserID string) (*ratelimit.Record, error) {
	query := `
		SELECT ip_address, recipient_user_id, attempt_count, first_attempt_at, last_attempt_at, is_blocked
		FROM rate_limit_records
		WHERE ip_address = $1 AND recipient_user_id = $2
	`
	var record ratelimit.Record
	err := r.db.QueryRow(ctx, query, ip, recipientUserID).Scan(
		&record.IPAddress,
		&record.RecipientUserID,
		&record.AttemptCount,
		&record.FirstAttemptAt,
		&record.LastAttemptAt,
		&record.IsBlocked,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ratelimit.ErrRecordNotFound
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return &record, nil
}

// UpsertRecord creates or replaces the record for its pair. The composite
// primary key guarantees exactly one active record per pair.
func (r *Repository) UpsertRecord(ctx context.Context, record *ratelimit.Record) error {
	query := `
		INSERT INTO rate_limit_records (ip_address, recipient_user_id, attempt_count, first_attempt_at, last_attempt_at, is_blocked)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ip_address, recipient_user_id) DO UPDATE
		SET attempt_count = EXCLUDED.attempt_count,
		    first_attempt_at = EXCLUDED.first_attempt_at,
		    last_attempt_at = EXCLUDED.last_attempt_at,
		    is_blocked = EXCLUDED.is_blocked
	`
	_, err := r.db.Exec(ctx, query,
		record.IPAddress,
		record.RecipientUserID,
		record.AttemptCount,
		record.FirstAttemptAt,
		record.LastAttemptAt,
		record.IsBlocked,
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}
