package notifications

import (
	"fmt"

	"github.com/whisperbox/whisperbox/internal/domain"
)

// previewLimit bounds the portion of the message shown in a notification.
const previewLimit = 50

// Payload carries the channel-specific delivery data resolved at enqueue
// time. Destination is the chat ID, phone number or email address for the
// item's channel.
type Payload struct {
	Destination string `json:"destination"`
	DisplayName string `json:"display_name"`
	Preview     string `json:"preview"`
	ProfileURL  string `json:"profile_url"`
}

// Notification is what a channel sender receives: a destination address and
// a rendered message.
type Notification struct {
	To      string
	Subject string
	Body    string
}

// TruncatePreview cuts content to the preview limit, appending an ellipsis
// when anything was removed. Counting is rune-based so multi-byte text is
// never split mid-character.
func TruncatePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit]) + "…"
}

// Render produces the subject and body for the payload on the given channel.
func (p Payload) Render(channel domain.ChannelType) (subject, body string) {
	switch channel {
	case domain.ChannelTypeTelegram:
		return "", fmt.Sprintf(
			"💬 <b>New anonymous message</b>\n\n%s\n\n<a href=\"%s\">Open your inbox</a>",
			p.Preview, p.ProfileURL,
		)
	case domain.ChannelTypeWhatsApp:
		return "", fmt.Sprintf(
			"💬 *New anonymous message*\n\n%s\n\nOpen your inbox: %s",
			p.Preview, p.ProfileURL,
		)
	case domain.ChannelTypeEmail:
		return "You have a new anonymous message", fmt.Sprintf(
			"Hi %s,\n\nSomeone left you a new anonymous message:\n\n%s\n\nRead it here: %s\n",
			p.DisplayName, p.Preview, p.ProfileURL,
		)
	}
	return "", p.Preview
}
