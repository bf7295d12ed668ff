package client

import (
	"context"
	"time"

	"github.com/donaldgifford/hotel-price-tracker/internal/engine"
)

// CheckRequest asks the server to run checks. An empty BookingID runs a
// full cycle.
type CheckRequest struct {
	BookingID string `json:"booking_id,omitempty"`
	Force     bool   `json:"force,omitempty"`
	Async     bool   `json:"async,omitempty"`
}

// CheckResponse reports a completed or queued check request.
type CheckResponse struct {
	Status        string              `json:"status"`
	RequestID     string              `json:"request_id,omitempty"`
	AlertsCreated int                 `json:"alerts_created"`
	Result        *engine.CheckResult `json:"result,omitempty"`
}

// Quota is the quote provider's daily budget.
type Quota struct {
	DailyLimit int64     `json:"daily_limit"`
	DailyUsed  int64     `json:"daily_used"`
	Remaining  int64     `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
}

// RunChecks triggers a check cycle or a single booking check.
func (c *Client) RunChecks(ctx context.Context, req *CheckRequest) (*CheckResponse, error) {
	var resp CheckResponse
	if err := c.post(ctx, "/api/v1/checks", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cleanup deletes handled alerts past retention and returns how many went.
func (c *Client) Cleanup(ctx context.Context) (int, error) {
	var resp struct {
		Deleted int `json:"deleted"`
	}
	if err := c.post(ctx, "/api/v1/cleanup", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// GetQuota returns the quote provider budget.
func (c *Client) GetQuota(ctx context.Context) (*Quota, error) {
	var q Quota
	if err := c.get(ctx, "/api/v1/quota", nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}
