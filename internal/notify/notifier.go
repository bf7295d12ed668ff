// Package notify routes price alerts to per-channel senders.
package notify

import (
	"context"

	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// Dispatcher delivers alerts over the given channels. Delivery is
// fire-and-forget: failures are logged and counted, never returned.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert *domain.PriceAlert, channels []domain.Channel)
	DispatchDigest(ctx context.Context, userID string, alerts []domain.PriceAlert, channels []domain.Channel)
}

// Message is a rendered notification for one recipient.
type Message struct {
	UserID  string
	To      string
	Subject string
	Text    string
	Alerts  []domain.PriceAlert
}

// Sender delivers messages over a single channel.
type Sender interface {
	Channel() domain.Channel
	Send(ctx context.Context, msg *Message) error
}

// ContactLookup resolves a user's delivery addresses.
type ContactLookup interface {
	GetUserContact(ctx context.Context, userID string) (*domain.UserContact, error)
}
