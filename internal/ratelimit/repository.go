package ratelimit

import "context"

// Repository defines persistence for policies and attempt records.
type Repository interface {
	// GetCurrentPolicy returns the most recently inserted policy row.
	// Returns ErrNoPolicy when the table is empty.
	GetCurrentPolicy(ctx context.Context) (*Policy, error)

	// InsertPolicy appends a new policy version.
	InsertPolicy(ctx context.Context, policy *Policy) error

	// GetRecord returns the record for the pair, or ErrRecordNotFound.
	GetRecord(ctx context.Context, ip, recipientUserID string) (*Record, error)

	// UpsertRecord creates or fully replaces the record for its pair.
	UpsertRecord(ctx context.Context, record *Record) error
}
