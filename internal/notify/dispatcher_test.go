package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/hotel-price-tracker/internal/metrics"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

type recordingSender struct {
	channel domain.Channel
	err     error

	mu   sync.Mutex
	sent []Message
}

func (r *recordingSender) Channel() domain.Channel { return r.channel }

func (r *recordingSender) Send(_ context.Context, msg *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, *msg)
	return r.err
}

func (r *recordingSender) messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

type contactMap map[string]*domain.UserContact

func (c contactMap) GetUserContact(_ context.Context, userID string) (*domain.UserContact, error) {
	if uc, ok := c[userID]; ok {
		return uc, nil
	}
	return nil, errors.New("not found")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChannelDispatcher_RoutesAndAddresses(t *testing.T) {
	t.Parallel()

	email := &recordingSender{channel: domain.ChannelEmail}
	sms := &recordingSender{channel: domain.ChannelSMS}
	push := &recordingSender{channel: domain.ChannelPush}

	d := NewChannelDispatcher(
		WithLogger(quietLogger()),
		WithContacts(contactMap{
			"user-1": {UserID: "user-1", Email: "guest@example.com", Phone: "+351900000000"},
		}),
		WithSender(email),
		WithSender(sms),
		WithSender(push),
	)

	a := testAlert(domain.SeverityMedium)
	d.Dispatch(context.Background(), &a, []domain.Channel{domain.ChannelEmail, domain.ChannelSMS})

	require.Len(t, email.messages(), 1)
	assert.Equal(t, "guest@example.com", email.messages()[0].To)
	require.Len(t, sms.messages(), 1)
	assert.Equal(t, "+351900000000", sms.messages()[0].To)
	assert.Empty(t, push.messages(), "channel not requested")
}

func TestChannelDispatcher_MissingSenderSkipped(t *testing.T) {
	t.Parallel()

	push := &recordingSender{channel: domain.ChannelPush}
	d := NewChannelDispatcher(WithLogger(quietLogger()), WithSender(push))

	a := testAlert(domain.SeverityLow)
	d.Dispatch(context.Background(), &a, []domain.Channel{domain.ChannelSMS, domain.ChannelPush})

	require.Len(t, push.messages(), 1)
	assert.Empty(t, push.messages()[0].To, "no contact lookup configured")
}

func TestChannelDispatcher_FailureCounted(t *testing.T) {
	t.Parallel()

	failing := &recordingSender{channel: domain.ChannelEmail, err: errors.New("smtp down")}
	ok := &recordingSender{channel: domain.ChannelPush}
	d := NewChannelDispatcher(WithLogger(quietLogger()), WithSender(failing), WithSender(ok))

	failuresBefore := testutil.ToFloat64(metrics.NotificationFailuresTotal.WithLabelValues("email"))

	a := testAlert(domain.SeverityHigh)
	d.Dispatch(context.Background(), &a, []domain.Channel{domain.ChannelEmail, domain.ChannelPush})

	assert.Len(t, failing.messages(), 1)
	assert.Len(t, ok.messages(), 1, "a failing channel does not block the others")
	assert.GreaterOrEqual(t,
		testutil.ToFloat64(metrics.NotificationFailuresTotal.WithLabelValues("email"))-failuresBefore,
		1.0,
	)
}

func TestChannelDispatcher_Digest(t *testing.T) {
	t.Parallel()

	push := &recordingSender{channel: domain.ChannelPush}
	d := NewChannelDispatcher(WithLogger(quietLogger()), WithSender(push))

	alerts := []domain.PriceAlert{testAlert(domain.SeverityLow), testAlert(domain.SeverityHigh)}
	d.DispatchDigest(context.Background(), "user-1", alerts, []domain.Channel{domain.ChannelPush})

	require.Len(t, push.messages(), 1)
	msg := push.messages()[0]
	assert.Equal(t, "2 hotel price drops for your bookings", msg.Subject)
	assert.Len(t, msg.Alerts, 2)
	assert.Equal(t, "user-1", msg.UserID)

	d.DispatchDigest(context.Background(), "user-1", nil, []domain.Channel{domain.ChannelPush})
	assert.Len(t, push.messages(), 1, "empty digest sends nothing")
}

func TestAddress(t *testing.T) {
	t.Parallel()

	c := &domain.UserContact{UserID: "u", Email: "e@example.com", Phone: "+1"}

	tests := []struct {
		name    string
		contact *domain.UserContact
		channel domain.Channel
		want    string
	}{
		{name: "email", contact: c, channel: domain.ChannelEmail, want: "e@example.com"},
		{name: "sms", contact: c, channel: domain.ChannelSMS, want: "+1"},
		{name: "push uses user id", contact: c, channel: domain.ChannelPush, want: "u"},
		{name: "nil contact", contact: nil, channel: domain.ChannelEmail, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, address(tt.contact, tt.channel))
		})
	}
}
