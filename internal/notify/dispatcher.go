package notify

import (
	"context"
	"log/slog"

	"github.com/donaldgifford/hotel-price-tracker/internal/metrics"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// ChannelDispatcher implements Dispatcher by routing each channel to its
// registered Sender. Channels without a sender are logged and skipped.
type ChannelDispatcher struct {
	senders  map[domain.Channel]Sender
	contacts ContactLookup
	log      *slog.Logger
}

// DispatcherOption configures a ChannelDispatcher.
type DispatcherOption func(*ChannelDispatcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *ChannelDispatcher) {
		d.log = l
	}
}

// WithContacts sets the lookup used to address messages.
func WithContacts(c ContactLookup) DispatcherOption {
	return func(d *ChannelDispatcher) {
		d.contacts = c
	}
}

// WithSender registers s for its channel, replacing any previous sender.
func WithSender(s Sender) DispatcherOption {
	return func(d *ChannelDispatcher) {
		d.senders[s.Channel()] = s
	}
}

// NewChannelDispatcher creates a dispatcher with the given senders.
func NewChannelDispatcher(opts ...DispatcherOption) *ChannelDispatcher {
	d := &ChannelDispatcher{
		senders: make(map[domain.Channel]Sender),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch implements Dispatcher.
func (d *ChannelDispatcher) Dispatch(ctx context.Context, alert *domain.PriceAlert, channels []domain.Channel) {
	d.deliver(ctx, alertMessage(alert), channels)
}

// DispatchDigest implements Dispatcher.
func (d *ChannelDispatcher) DispatchDigest(
	ctx context.Context,
	userID string,
	alerts []domain.PriceAlert,
	channels []domain.Channel,
) {
	if len(alerts) == 0 {
		return
	}
	d.deliver(ctx, digestMessage(userID, alerts), channels)
}

func (d *ChannelDispatcher) deliver(ctx context.Context, msg *Message, channels []domain.Channel) {
	contact := d.lookupContact(ctx, msg.UserID)

	for _, ch := range channels {
		sender, ok := d.senders[ch]
		if !ok {
			d.log.Debug("no sender registered for channel", "channel", ch, "user_id", msg.UserID)
			continue
		}

		out := *msg
		out.To = address(contact, ch)

		if err := sender.Send(ctx, &out); err != nil {
			metrics.NotificationFailuresTotal.WithLabelValues(string(ch)).Inc()
			d.log.Error("sending notification",
				"channel", ch,
				"user_id", msg.UserID,
				"alerts", len(msg.Alerts),
				"error", err,
			)
			continue
		}
		metrics.NotificationsSentTotal.WithLabelValues(string(ch)).Inc()
	}
}

func (d *ChannelDispatcher) lookupContact(ctx context.Context, userID string) *domain.UserContact {
	if d.contacts == nil {
		return nil
	}
	c, err := d.contacts.GetUserContact(ctx, userID)
	if err != nil {
		d.log.Debug("no contact for user", "user_id", userID, "error", err)
		return nil
	}
	return c
}

func address(c *domain.UserContact, ch domain.Channel) string {
	if c == nil {
		return ""
	}
	switch ch {
	case domain.ChannelEmail:
		return c.Email
	case domain.ChannelSMS:
		return c.Phone
	default:
		return c.UserID
	}
}
