package notify

import (
	"context"
	"log/slog"

	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// NoOpSender implements Sender by logging discarded messages. It is used
// for channels whose backend is not configured.
type NoOpSender struct {
	channel domain.Channel
	log     *slog.Logger
}

// NewNoOpSender creates a sender for ch that discards messages with a log line.
func NewNoOpSender(ch domain.Channel, log *slog.Logger) *NoOpSender {
	return &NoOpSender{channel: ch, log: log}
}

// Channel implements Sender.
func (n *NoOpSender) Channel() domain.Channel { return n.channel }

// Send logs and discards a message.
func (n *NoOpSender) Send(_ context.Context, msg *Message) error {
	n.log.Debug("notification discarded (no backend configured)",
		"channel", n.channel,
		"user_id", msg.UserID,
		"alerts", len(msg.Alerts),
	)
	return nil
}
