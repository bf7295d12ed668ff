package client

import (
	"context"
	"net/url"
	"strconv"

	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// ListAlertsParams filters an alert listing. Zero values are omitted.
type ListAlertsParams struct {
	UserID    string
	BookingID string
	Status    domain.AlertStatus
	Limit     int
	Offset    int
}

// AlertsPage is one page of alerts, newest first.
type AlertsPage struct {
	Alerts []domain.PriceAlert `json:"alerts"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// ListAlerts returns alerts matching p.
func (c *Client) ListAlerts(ctx context.Context, p *ListAlertsParams) (*AlertsPage, error) {
	q := url.Values{}
	if p != nil {
		if p.UserID != "" {
			q.Set("user_id", p.UserID)
		}
		if p.BookingID != "" {
			q.Set("booking_id", p.BookingID)
		}
		if p.Status != "" {
			q.Set("status", string(p.Status))
		}
		if p.Limit > 0 {
			q.Set("limit", strconv.Itoa(p.Limit))
		}
		if p.Offset > 0 {
			q.Set("offset", strconv.Itoa(p.Offset))
		}
	}

	var page AlertsPage
	if err := c.get(ctx, "/api/v1/alerts", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ActionAlert marks a new alert as acted upon.
func (c *Client) ActionAlert(ctx context.Context, id string) (*domain.PriceAlert, error) {
	return c.alertTransition(ctx, id, "action")
}

// DismissAlert dismisses a new alert.
func (c *Client) DismissAlert(ctx context.Context, id string) (*domain.PriceAlert, error) {
	return c.alertTransition(ctx, id, "dismiss")
}

func (c *Client) alertTransition(ctx context.Context, id, verb string) (*domain.PriceAlert, error) {
	var a domain.PriceAlert
	if err := c.post(ctx, "/api/v1/alerts/"+url.PathEscape(id)+"/"+verb, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
