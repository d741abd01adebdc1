// Package ratelimit provides admission control for anonymous message
// submission: per (sender IP, recipient) attempt counting against an
// admin-configured policy.
package ratelimit

import "time"

// Policy holds the admin-configured thresholds. Policies are versioned:
// saving inserts a new row, and the newest row is the current policy.
type Policy struct {
	ID                 string    `json:"id"`
	MaxMessagesPerHour int       `json:"max_messages_per_hour"`
	MaxMessagesPerDay  int       `json:"max_messages_per_day"`
	BlockDurationHours int       `json:"block_duration_hours"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DefaultPolicy is the conservative fallback applied when no policy row
// exists or the store is unreachable.
func DefaultPolicy() Policy {
	return Policy{
		MaxMessagesPerHour: 5,
		MaxMessagesPerDay:  20,
		BlockDurationHours: 24,
	}
}

// BlockDuration returns the block window as a duration.
func (p Policy) BlockDuration() time.Duration {
	return time.Duration(p.BlockDurationHours) * time.Hour
}

// Record tracks send attempts for one (ip, recipient) pair within the
// current counting window. Exactly one active record exists per pair.
type Record struct {
	IPAddress       string
	RecipientUserID string
	AttemptCount    int
	FirstAttemptAt  time.Time
	LastAttemptAt   time.Time
	IsBlocked       bool
}

// Decision is the outcome of a CheckAndRecord call.
type Decision struct {
	Allowed    bool
	RetryAfter time.Time // set when not allowed
}
