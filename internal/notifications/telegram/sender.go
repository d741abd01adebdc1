// Package telegram sends notifications through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/whisperbox/whisperbox/internal/domain"
	"github.com/whisperbox/whisperbox/internal/notifications"
)

const (
	defaultAPIBase   = "https://api.telegram.org"
	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 25 // Bot API allows ~30 messages/second overall
)

// Config holds telegram sender configuration.
type Config struct {
	Enabled   bool
	BotToken  string
	RateLimit float64 // messages per second across all chats
	APIBase   string  // overridable for tests
}

// Sender implements the telegram notification sender.
type Sender struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSender creates a new telegram sender.
// Returns an error if enabled without a bot token.
func NewSender(config Config) (*Sender, error) {
	if config.Enabled && config.BotToken == "" {
		return nil, errors.New("telegram sender: bot token is required when enabled")
	}
	if config.RateLimit <= 0 {
		config.RateLimit = defaultRateLimit
	}
	if config.APIBase == "" {
		config.APIBase = defaultAPIBase
	}

	slog.Info("telegram sender configured",
		"enabled", config.Enabled,
		"rate_limit", config.RateLimit,
	)

	return &Sender{
		config:     config,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimit), int(config.RateLimit)),
	}, nil
}

// Type returns the channel type.
func (s *Sender) Type() domain.ChannelType {
	return domain.ChannelTypeTelegram
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Send delivers the notification to the chat in notification.To.
func (s *Sender) Send(ctx context.Context, notification notifications.Notification) error {
	if !s.config.Enabled {
		slog.Debug("telegram sender disabled, skipping", "to", notification.To)
		return nil
	}

	if notification.To == "" {
		return &notifications.PermanentError{Message: "telegram: chat id is empty"}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return &notifications.RetryableError{Message: fmt.Sprintf("telegram: rate limiter wait: %v", err)}
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:                notification.To,
		Text:                  notification.Body,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.config.APIBase, s.config.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &notifications.RetryableError{Message: fmt.Sprintf("telegram: send request: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	return s.handleResponse(resp)
}

func (s *Sender) handleResponse(resp *http.Response) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var api apiResponse
	if err := json.Unmarshal(raw, &api); err == nil && api.OK {
		slog.Debug("telegram message sent")
		return nil
	}

	detail := api.Description
	if detail == "" {
		detail = string(raw)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		// Bad chat id, bot blocked by user, malformed payload.
		return &notifications.PermanentError{
			Message: fmt.Sprintf("telegram error %d: %s", resp.StatusCode, detail),
		}
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return &notifications.RetryableError{
			Message: fmt.Sprintf("telegram error %d: %s", resp.StatusCode, detail),
		}
	default:
		return fmt.Errorf("telegram unexpected status %d: %s", resp.StatusCode, detail)
	}
}
