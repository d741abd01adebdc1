// Package whatsapp sends notifications through the Fonnte WhatsApp API.
package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/whisperbox/whisperbox/internal/domain"
	"github.com/whisperbox/whisperbox/internal/notifications"
)

const (
	defaultAPIURL  = "https://api.fonnte.com/send"
	defaultTimeout = 10 * time.Second
)

// Config holds Fonnte sender configuration.
type Config struct {
	Enabled  bool
	APIToken string
	APIURL   string // overridable for tests
}

// Sender implements the WhatsApp notification sender via Fonnte.
type Sender struct {
	config     Config
	httpClient *http.Client
}

// NewSender creates a new WhatsApp sender.
// Returns an error if enabled without an API token.
func NewSender(config Config) (*Sender, error) {
	if config.Enabled && config.APIToken == "" {
		return nil, errors.New("whatsapp sender: api token is required when enabled")
	}
	if config.APIURL == "" {
		config.APIURL = defaultAPIURL
	}

	slog.Info("whatsapp sender configured", "enabled", config.Enabled)

	return &Sender{
		config:     config,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Type returns the channel type.
func (s *Sender) Type() domain.ChannelType {
	return domain.ChannelTypeWhatsApp
}

type fonnteResponse struct {
	Status bool   `json:"status"`
	Reason string `json:"reason"`
}

// Send delivers the notification to the phone number in notification.To.
func (s *Sender) Send(ctx context.Context, notification notifications.Notification) error {
	if !s.config.Enabled {
		slog.Debug("whatsapp sender disabled, skipping", "to", maskNumber(notification.To))
		return nil
	}

	if notification.To == "" {
		return &notifications.PermanentError{Message: "whatsapp: phone number is empty"}
	}

	form := url.Values{}
	form.Set("target", notification.To)
	form.Set("message", notification.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", s.config.APIToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &notifications.RetryableError{Message: fmt.Sprintf("whatsapp: send request: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	return s.handleResponse(resp)
}

func (s *Sender) handleResponse(resp *http.Response) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// Fonnte reports delivery problems in the body with HTTP 200.
		var api fonnteResponse
		if err := json.Unmarshal(raw, &api); err == nil && !api.Status {
			return &notifications.PermanentError{
				Message: fmt.Sprintf("whatsapp rejected: %s", api.Reason),
			}
		}
		slog.Debug("whatsapp message sent")
		return nil

	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return &notifications.PermanentError{
			Message: fmt.Sprintf("whatsapp error %d: invalid api token", resp.StatusCode),
		}

	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return &notifications.RetryableError{
			Message: fmt.Sprintf("whatsapp error %d: %s", resp.StatusCode, string(raw)),
		}

	default:
		return &notifications.PermanentError{
			Message: fmt.Sprintf("whatsapp error %d: %s", resp.StatusCode, string(raw)),
		}
	}
}

// maskNumber hides most of a phone number for logging.
func maskNumber(number string) string {
	if len(number) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}
