// Package domain contains core types shared across modules.
package domain

import "time"

// Profile represents a recipient account. Account management (signup,
// sessions, premium purchase) happens outside this service; the notification
// core only reads these rows.
type Profile struct {
	ID             string
	Username       string
	DisplayName    string
	IsPremium      bool
	NotifyEnabled  bool
	NotifyChannel  ChannelType
	TelegramChatID string
	WhatsAppNumber string
	Email          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Destination returns the configured address for the given channel,
// or an empty string if the profile has none.
func (p *Profile) Destination(channel ChannelType) string {
	switch channel {
	case ChannelTypeTelegram:
		return p.TelegramChatID
	case ChannelTypeWhatsApp:
		return p.WhatsAppNumber
	case ChannelTypeEmail:
		return p.Email
	}
	return ""
}
