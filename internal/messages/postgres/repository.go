// Package postgres provides the PostgreSQL implementation of the message
// repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/whisperbox/whisperbox/internal/domain"
	"github.com/whisperbox/whisperbox/internal/messages"
)

// Repository implements messages.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL message repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const profileColumns = `id, username, display_name, is_premium, notify_enabled,
	COALESCE(notify_channel, ''), COALESCE(telegram_chat_id, ''),
	COALESCE(whatsapp_number, ''), COALESCE(email, ''), created_at, updated_at`

// GetProfileByUsername returns the profile with the given username. The
// caller passes a case-folded username; storage matching is on lower().
func (r *Repository) GetProfileByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM profiles
		WHERE lower(username) = $1
	`, profileColumns)

	profile, err := r.scanProfile(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, messages.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile by username: %w", err)
	}
	return profile, nil
}

// GetProfileByID returns the profile with the given ID.
func (r *Repository) GetProfileByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM profiles
		WHERE id = $1
	`, profileColumns)

	profile, err := r.scanProfile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, messages.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile by id: %w", err)
	}
	return profile, nil
}

// CreateMessage persists a new anonymous message.
func (r *Repository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, recipient_user_id, content, sender_ip)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		msg.ID,
		msg.RecipientUserID,
		msg.Content,
		msg.SenderIP,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (r *Repository) scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	var channel string
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.DisplayName,
		&p.IsPremium,
		&p.NotifyEnabled,
		&channel,
		&p.TelegramChatID,
		&p.WhatsAppNumber,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.NotifyChannel = domain.ChannelType(channel)
	return &p, nil
}
