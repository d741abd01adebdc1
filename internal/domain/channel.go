package domain

// ChannelType identifies a notification delivery channel.
type ChannelType string

// Supported channel types.
const (
	ChannelTypeTelegram ChannelType = "telegram"
	ChannelTypeWhatsApp ChannelType = "whatsapp"
	ChannelTypeEmail    ChannelType = "email"
)

// Valid reports whether the channel type is one of the supported channels.
func (c ChannelType) Valid() bool {
	switch c {
	case ChannelTypeTelegram, ChannelTypeWhatsApp, ChannelTypeEmail:
		return true
	}
	return false
}
