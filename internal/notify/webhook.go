package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

const (
	colorRed    = 0xE74C3C // high severity
	colorOrange = 0xE67E22 // medium severity
	colorYellow = 0xF1C40F // low severity

	maxEmbeds = 10
)

// WebhookFormat selects the payload a WebhookSender posts.
type WebhookFormat int

const (
	// FormatEmbed posts Discord-style embeds, one per alert.
	FormatEmbed WebhookFormat = iota
	// FormatText posts {"to": ..., "message": ...} for SMS gateways.
	FormatText
)

// WebhookSender implements Sender by POSTing JSON to a webhook URL.
type WebhookSender struct {
	channel    domain.Channel
	webhookURL string
	format     WebhookFormat
	client     *http.Client
}

// WebhookOption configures a WebhookSender.
type WebhookOption func(*WebhookSender)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *WebhookSender) {
		w.client = c
	}
}

// NewPushSender creates a push sender posting Discord-style embeds.
func NewPushSender(webhookURL string, opts ...WebhookOption) *WebhookSender {
	return newWebhookSender(domain.ChannelPush, webhookURL, FormatEmbed, opts)
}

// NewSMSSender creates an SMS sender posting plain text to a gateway.
func NewSMSSender(gatewayURL string, opts ...WebhookOption) *WebhookSender {
	return newWebhookSender(domain.ChannelSMS, gatewayURL, FormatText, opts)
}

func newWebhookSender(
	ch domain.Channel,
	u string,
	format WebhookFormat,
	opts []WebhookOption,
) *WebhookSender {
	w := &WebhookSender{
		channel:    ch,
		webhookURL: u,
		format:     format,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Channel implements Sender.
func (w *WebhookSender) Channel() domain.Channel { return w.channel }

type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title"`
	Color       int          `json:"color"`
	Description string       `json:"description,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type textPayload struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// Send implements Sender.
func (w *WebhookSender) Send(ctx context.Context, msg *Message) error {
	switch w.format {
	case FormatText:
		if msg.To == "" {
			return fmt.Errorf("no %s address for user %s", w.channel, msg.UserID)
		}
		return w.post(ctx, textPayload{To: msg.To, Message: msg.Subject + "\n" + msg.Text})
	default:
		return w.post(ctx, buildEmbedPayload(msg))
	}
}

func buildEmbedPayload(msg *Message) webhookPayload {
	limit := min(len(msg.Alerts), maxEmbeds)
	embeds := make([]embed, 0, limit+1)

	for i := range limit {
		embeds = append(embeds, buildEmbed(&msg.Alerts[i]))
	}

	if len(msg.Alerts) > maxEmbeds {
		embeds = append(embeds, embed{
			Title:       fmt.Sprintf("... and %d more price drops", len(msg.Alerts)-maxEmbeds),
			Color:       colorYellow,
			Description: "Check your alerts for the full list.",
		})
	}

	payload := webhookPayload{Embeds: embeds}
	if len(msg.Alerts) > 1 {
		payload.Content = msg.Subject
	}
	return payload
}

func buildEmbed(a *domain.PriceAlert) embed {
	return embed{
		Title: fmt.Sprintf("Price drop: %s", a.HotelName),
		Color: severityColor(a.Severity),
		Fields: []embedField{
			{Name: "Booked", Value: a.BookedPrice.StringFixed(2) + " " + a.Currency, Inline: true},
			{Name: "Now", Value: a.CurrentPrice.StringFixed(2) + " " + a.Currency, Inline: true},
			{Name: "Saving", Value: a.DeltaAmount.StringFixed(2) + " " + a.Currency, Inline: true},
			{Name: "Drop", Value: a.ThresholdLabel, Inline: true},
			{Name: "Location", Value: a.Location, Inline: true},
			{Name: "Severity", Value: string(a.Severity), Inline: true},
		},
		Timestamp: a.TriggeredAt.UTC().Format(time.RFC3339),
	}
}

func severityColor(s domain.Severity) int {
	switch s {
	case domain.SeverityHigh:
		return colorRed
	case domain.SeverityMedium:
		return colorOrange
	default:
		return colorYellow
	}
}

func (w *WebhookSender) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", w.channel, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", w.channel, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending %s webhook: %w", w.channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s webhook rate limited (429)", w.channel)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("%s webhook returned %d (body unreadable)", w.channel, resp.StatusCode)
		}
		return fmt.Errorf("%s webhook returned %d: %s", w.channel, resp.StatusCode, respBody)
	}

	return nil
}
