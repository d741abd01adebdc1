package email

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisperbox/whisperbox/internal/domain"
	"github.com/whisperbox/whisperbox/internal/notifications"
)

func TestNewSender_RequiresConfigWhenEnabled(t *testing.T) {
	_, err := NewSender(Config{Enabled: true, FromAddress: "noreply@whisperbox.example"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP host")

	_, err = NewSender(Config{Enabled: true, SMTPHost: "smtp.example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from address")

	sender, err := NewSender(Config{
		Enabled:     true,
		SMTPHost:    "smtp.example.com",
		FromAddress: "noreply@whisperbox.example",
	})
	require.NoError(t, err)
	assert.Equal(t, 587, sender.config.SMTPPort)
	assert.Equal(t, domain.ChannelTypeEmail, sender.Type())
}

func TestSend_DisabledIsNoOp(t *testing.T) {
	sender, err := NewSender(Config{Enabled: false})
	require.NoError(t, err)

	err = sender.Send(context.Background(), notifications.Notification{To: "a@b.c"})
	assert.NoError(t, err)
}

func TestSend_EmptyRecipientIsPermanent(t *testing.T) {
	sender, err := NewSender(Config{
		Enabled:     true,
		SMTPHost:    "smtp.example.com",
		FromAddress: "noreply@whisperbox.example",
	})
	require.NoError(t, err)

	sendErr := sender.Send(context.Background(), notifications.Notification{})
	var permanent *notifications.PermanentError
	require.ErrorAs(t, sendErr, &permanent)
	assert.False(t, permanent.IsRetryable())
}

func TestBuildMessage(t *testing.T) {
	sender := &Sender{config: Config{FromAddress: "WhisperBox <noreply@whisperbox.example>"}}

	msg := string(sender.buildMessage("user@example.com", "New message", "hello there"))

	assert.Contains(t, msg, "From: WhisperBox <noreply@whisperbox.example>\r\n")
	assert.Contains(t, msg, "To: user@example.com\r\n")
	assert.Contains(t, msg, "Subject: New message\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\nhello there"))
}

func TestExtractEmail(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"noreply@whisperbox.example", "noreply@whisperbox.example"},
		{"WhisperBox <noreply@whisperbox.example>", "noreply@whisperbox.example"},
		{"Broken <noreply@whisperbox.example", "Broken <noreply@whisperbox.example"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, extractEmail(tt.address))
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network op failure", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"temporary smtp code", errors.New("smtp: 451 try again later"), true},
		{"server busy", errors.New("421 service not available"), true},
		{"bad mailbox", errors.New("550 mailbox unavailable"), false},
		{"auth failure", errors.New("535 authentication failed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}
