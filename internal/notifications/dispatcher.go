package notifications

import (
	"context"
	"fmt"

	"github.com/whisperbox/whisperbox/internal/domain"
)

// Dispatcher routes a notification to the sender registered for its channel.
type Dispatcher struct {
	senders map[domain.ChannelType]Sender
}

// NewDispatcher creates a dispatcher from the given senders.
func NewDispatcher(senders ...Sender) *Dispatcher {
	senderMap := make(map[domain.ChannelType]Sender, len(senders))
	for _, s := range senders {
		senderMap[s.Type()] = s
	}
	return &Dispatcher{senders: senderMap}
}

// SendToChannel delivers the notification over the given channel type.
func (d *Dispatcher) SendToChannel(ctx context.Context, channel domain.ChannelType, notification Notification) error {
	sender, ok := d.senders[channel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}
	return sender.Send(ctx, notification)
}

// HasSender reports whether a sender is registered for the channel type.
func (d *Dispatcher) HasSender(channel domain.ChannelType) bool {
	_, ok := d.senders[channel]
	return ok
}
