package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/whisperbox/whisperbox/internal/domain"
)

// Notifier decides per event whether a notification is warranted and stages
// it on the queue. Test sends bypass the queue and call the sender directly.
type Notifier struct {
	queue      Repository
	settings   SettingsReader
	dispatcher *Dispatcher
	baseURL    string
}

// NewNotifier creates a new Notifier.
func NewNotifier(queue Repository, settings SettingsReader, dispatcher *Dispatcher, baseURL string) *Notifier {
	return &Notifier{
		queue:      queue,
		settings:   settings,
		dispatcher: dispatcher,
		baseURL:    baseURL,
	}
}

// NotifyNewMessage stages a notification for a freshly received anonymous
// message. Ineligible recipients (free tier, notifications switched off,
// missing destination) are a silent no-op: not notifying is product policy,
// not an error.
func (n *Notifier) NotifyNewMessage(ctx context.Context, userID, messageContent string) error {
	profile, err := n.settings.GetProfileByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	if !profile.IsPremium || !profile.NotifyEnabled {
		slog.Debug("recipient not eligible for notifications",
			"user_id", userID,
			"premium", profile.IsPremium,
			"enabled", profile.NotifyEnabled,
		)
		return nil
	}

	channel := profile.NotifyChannel
	if !channel.Valid() {
		slog.Debug("recipient has no notification channel", "user_id", userID)
		return nil
	}

	destination := profile.Destination(channel)
	if destination == "" {
		slog.Warn("notification channel has no destination",
			"user_id", userID,
			"channel", channel,
		)
		return nil
	}

	item := &QueueItem{
		ID:              uuid.NewString(),
		RecipientUserID: userID,
		Channel:         channel,
		Payload: Payload{
			Destination: destination,
			DisplayName: profile.DisplayName,
			Preview:     TruncatePreview(messageContent),
			ProfileURL:  n.profileURL(profile.Username),
		},
		Status:    QueueStatusPending,
		CreatedAt: time.Now(),
	}

	if err := n.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}

	recordEnqueued(string(channel))
	slog.Info("notification enqueued",
		"item_id", item.ID,
		"user_id", userID,
		"channel", channel,
	)
	return nil
}

// SendTest delivers a test notification synchronously, bypassing the queue.
// The sender's error is returned as-is so the requester (the notification's
// own recipient) sees the exact failure.
func (n *Notifier) SendTest(ctx context.Context, userID string, channel domain.ChannelType) error {
	profile, err := n.settings.GetProfileByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	destination := profile.Destination(channel)
	if destination == "" {
		return ErrChannelNotConfigured
	}

	if !n.dispatcher.HasSender(channel) {
		return ErrChannelDisabled
	}

	payload := Payload{
		Destination: destination,
		DisplayName: profile.DisplayName,
		Preview:     "This is a test notification. Your channel is set up correctly.",
		ProfileURL:  n.profileURL(profile.Username),
	}
	subject, body := payload.Render(channel)

	return n.dispatcher.SendToChannel(ctx, channel, Notification{
		To:      destination,
		Subject: subject,
		Body:    body,
	})
}

func (n *Notifier) profileURL(username string) string {
	if n.baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/u/%s", n.baseURL, username)
}
