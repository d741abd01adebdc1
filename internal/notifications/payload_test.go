package notifications

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/whisperbox/whisperbox/internal/domain"
)

func TestTruncatePreview(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"short text unchanged", "hello", "hello"},
		{"empty text unchanged", "", ""},
		{
			"exactly at the limit unchanged",
			strings.Repeat("a", 50),
			strings.Repeat("a", 50),
		},
		{
			"one over the limit",
			strings.Repeat("a", 51),
			strings.Repeat("a", 50) + "…",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TruncatePreview(tt.content))
		})
	}
}

func TestTruncatePreview_MultiByte(t *testing.T) {
	content := strings.Repeat("ü", 60)
	result := TruncatePreview(content)

	assert.Equal(t, strings.Repeat("ü", 50)+"…", result)
	// Counting runes, not bytes: 50 two-byte characters stay intact.
	assert.Equal(t, 51, len([]rune(result)))
}

func TestPayload_Render(t *testing.T) {
	payload := Payload{
		Destination: "dest",
		DisplayName: "Kim",
		Preview:     "you rock",
		ProfileURL:  "https://whisperbox.example/u/kim",
	}

	t.Run("telegram has no subject and html body", func(t *testing.T) {
		subject, body := payload.Render(domain.ChannelTypeTelegram)
		assert.Empty(t, subject)
		assert.Contains(t, body, "you rock")
		assert.Contains(t, body, `<a href="https://whisperbox.example/u/kim">`)
	})

	t.Run("whatsapp has plain link", func(t *testing.T) {
		subject, body := payload.Render(domain.ChannelTypeWhatsApp)
		assert.Empty(t, subject)
		assert.Contains(t, body, "you rock")
		assert.Contains(t, body, "https://whisperbox.example/u/kim")
	})

	t.Run("email has subject and greets by name", func(t *testing.T) {
		subject, body := payload.Render(domain.ChannelTypeEmail)
		assert.Equal(t, "You have a new anonymous message", subject)
		assert.Contains(t, body, "Hi Kim,")
		assert.Contains(t, body, "you rock")
	})
}
