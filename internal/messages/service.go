// Package messages implements anonymous message intake.
package messages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/whisperbox/whisperbox/internal/domain"
	"github.com/whisperbox/whisperbox/internal/pkg/ctxlog"
	"github.com/whisperbox/whisperbox/internal/ratelimit"
)

// Notifier is the downstream hook invoked after a message is stored.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, userID, messageContent string) error
}

// Service implements message submission business logic.
type Service struct {
	repo     Repository
	guard    *ratelimit.Guard
	notifier Notifier
	folder   cases.Caser
}

// NewService creates a new message service.
func NewService(repo Repository, guard *ratelimit.Guard, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		guard:    guard,
		notifier: notifier,
		folder:   cases.Fold(),
	}
}

// SubmitInput holds data for submitting an anonymous message.
type SubmitInput struct {
	Username string
	Content  string
	SenderIP string
}

// Submit stores an anonymous message for the recipient and triggers a
// notification. Notification failures are logged and never fail the
// submission; the message is already durable at that point.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*domain.Message, error) {
	username := s.NormalizeUsername(input.Username)

	profile, err := s.repo.GetProfileByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	decision := s.guard.CheckAndRecord(ctx, input.SenderIP, profile.ID)
	if !decision.Allowed {
		return nil, &RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	msg := &domain.Message{
		ID:              uuid.NewString(),
		RecipientUserID: profile.ID,
		Content:         input.Content,
		SenderIP:        input.SenderIP,
		CreatedAt:       time.Now(),
	}

	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	messagesReceived.Inc()

	if err := s.notifier.NotifyNewMessage(ctx, profile.ID, msg.Content); err != nil {
		// Enqueue problems must not surface to the anonymous sender.
		ctxlog.FromContext(ctx).Error("failed to enqueue notification",
			"message_id", msg.ID,
			"recipient_user_id", profile.ID,
			"error", err,
		)
		notifyFailures.Inc()
	}

	return msg, nil
}

// NormalizeUsername lowercases the username with full Unicode case folding
// so lookups are case-insensitive for non-ASCII names too.
func (s *Service) NormalizeUsername(username string) string {
	return s.folder.String(strings.TrimSpace(username))
}
