package whatsapp

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
		Enabled:  true,
		APIToken: "test-token",
		APIURL:   server.URL,
	})
	require.NoError(t, err)
	return sender
}

func TestNewSender_RequiresTokenWhenEnabled(t *testing.T) {
	_, err := NewSender(Config{Enabled: true})
	assert.Error(t, err)
}

func TestSender_Send_Success(t *testing.T) {
	var gotAuth, gotTarget, gotMessage string

	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		gotTarget = r.PostForm.Get("target")
		gotMessage = r.PostForm.Get("message")
		_ = json.NewEncoder(w).Encode(fonnteResponse{Status: true})
	})

	err := sender.Send(context.Background(), notifications.Notification{
		To:   "628123456789",
		Body: "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, "test-token", gotAuth)
	assert.Equal(t, "628123456789", gotTarget)
	assert.Equal(t, "hello", gotMessage)
}

func TestSender_Send_RejectedWithHTTP200(t *testing.T) {
	sender := newTestSender(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(fonnteResponse{Status: false, Reason: "target invalid"})
	})

	err := sender.Send(context.Background(), notifications.Notification{To: "123", Body: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target invalid")

	var permanent *notifications.PermanentError
	assert.True(t, errors.As(err, &permanent))
}

func TestSender_Send_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"invalid token", http.StatusUnauthorized, false},
		{"forbidden", http.StatusForbidden, false},
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := newTestSender(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})

			err := sender.Send(context.Background(), notifications.Notification{To: "123", Body: "hi"})
			require.Error(t, err)

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

func TestMaskNumber(t *testing.T) {
	assert.Equal(t, "********6789", maskNumber("628123456789"))
	assert.Equal(t, "****", maskNumber("123"))
}
