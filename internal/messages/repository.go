package messages

import (
	"context"

	"github.com/whisperbox/whisperbox/internal/domain"
)

// Repository defines message storage operations.
type Repository interface {
	// GetProfileByUsername returns the profile with the given username,
	// matched case-insensitively. Returns ErrProfileNotFound if absent.
	GetProfileByUsername(ctx context.Context, username string) (*domain.Profile, error)

	// GetProfileByID returns the profile with the given ID.
	// Returns ErrProfileNotFound if absent.
	GetProfileByID(ctx context.Context, id string) (*domain.Profile, error)

	// CreateMessage persists a new anonymous message.
	CreateMessage(ctx context.Context, msg *domain.Message) error
}
