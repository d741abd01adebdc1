package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisperbox/whisperbox/internal/notifications"
)

func newTestSender(t *testing.T, handler http.HandlerFunc) *Sender {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sender, err := NewSender(Config{
		Enabled:   true,
		BotToken:  "test-token",
		RateLimit: 100,
		APIBase:   server.URL,
	})
	require.NoError(t, err)
	return sender
}

func TestNewSender_RequiresTokenWhenEnabled(t *testing.T) {
	_, err := NewSender(Config{Enabled: true})
	assert.Error(t, err)

	_, err = NewSender(Config{Enabled: false})
	assert.NoError(t, err)
}

func TestSender_Send_Success(t *testing.T) {
	var gotPath string
	var gotBody sendMessageRequest

	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(apiResponse{OK: true})
	})

	err := sender.Send(context.Background(), notifications.Notification{
		To:   "12345",
		Body: "<b>hello</b>",
	})
	require.NoError(t, err)

	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, "12345", gotBody.ChatID)
	assert.Equal(t, "<b>hello</b>", gotBody.Text)
	assert.Equal(t, "HTML", gotBody.ParseMode)
	assert.True(t, gotBody.DisableWebPagePreview)
}

func TestSender_Send_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		desc      string
		retryable bool
	}{
		{"bad chat id", http.StatusBadRequest, "chat not found", false},
		{"bot blocked", http.StatusForbidden, "bot was blocked by the user", false},
		{"rate limited", http.StatusTooManyRequests, "Too Many Requests", true},
		{"upstream outage", http.StatusBadGateway, "bad gateway", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := newTestSender(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(apiResponse{
					OK:          false,
					ErrorCode:   tt.status,
					Description: tt.desc,
				})
			})

			err := sender.Send(context.Background(), notifications.Notification{To: "12345", Body: "hi"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.desc)

			if tt.retryable {
				var retryable *notifications.RetryableError
				assert.True(t, errors.As(err, &retryable))
			} else {
				var permanent *notifications.PermanentError
				assert.True(t, errors.As(err, &permanent))
			}
		})
	}
}

func TestSender_Send_EmptyChatID(t *testing.T) {
	sender := newTestSender(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})

	err := sender.Send(context.Background(), notifications.Notification{Body: "hi"})

	var permanent *notifications.PermanentError
	assert.True(t, errors.As(err, &permanent))
}

func TestSender_Send_DisabledIsNoOp(t *testing.T) {
	sender, err := NewSender(Config{Enabled: false})
	require.NoError(t, err)

	assert.NoError(t, sender.Send(context.Background(), notifications.Notification{To: "12345", Body: "hi"}))
}
