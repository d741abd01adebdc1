package messages

import (
	"fmt"
	"time"

	"github.com/whisperbox/whisperbox/internal/domain"
)

// ErrProfileNotFound is returned when no profile matches the username.
var ErrProfileNotFound = domain.ErrProfileNotFound

// RateLimitedError is returned when the sender exceeded the submission
// limits for the recipient.
type RateLimitedError struct {
	RetryAfter time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter.Format(time.RFC3339))
}
