package notifications

import (
	"context"

	"github.com/whisperbox/whisperbox/internal/domain"
)

// Sender delivers a rendered notification over one channel.
type Sender interface {
	Type() domain.ChannelType
	Send(ctx context.Context, notification Notification) error
}

// PermanentError marks a delivery failure that would not succeed on a later
// attempt (bad destination, rejected payload). The queue records it on the
// item; redelivery is an administrative action either way, so the taxonomy
// only drives logging and the stored error detail.
type PermanentError struct {
	Message string
}

func (e *PermanentError) Error() string { return e.Message }

// IsRetryable reports that the failure is not transient.
func (e *PermanentError) IsRetryable() bool { return false }

// RetryableError marks a transient delivery failure (network error, rate
// limit, upstream 5xx).
type RetryableError struct {
	Message string
}

func (e *RetryableError) Error() string { return e.Message }

// IsRetryable reports that the failure is transient.
func (e *RetryableError) IsRetryable() bool { return true }
