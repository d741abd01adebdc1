package notifications

import (
	"errors"

	"github.com/whisperbox/whisperbox/internal/domain"
)

var (
	// ErrProfileNotFound is returned when the recipient profile does not exist.
	ErrProfileNotFound = domain.ErrProfileNotFound

	// ErrChannelNotConfigured is returned by test sends when the profile has
	// no destination for the requested channel.
	ErrChannelNotConfigured = errors.New("channel not configured")

	// ErrChannelDisabled is returned by test sends when the sender for the
	// requested channel is disabled in config.
	ErrChannelDisabled = errors.New("channel is not available")

	// ErrUnknownChannel is returned for a channel type without a sender.
	ErrUnknownChannel = errors.New("unknown notification channel")
)
