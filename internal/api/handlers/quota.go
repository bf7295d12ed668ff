package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// QuoteBudget reports usage of the quote provider's daily call budget.
type QuoteBudget interface {
	MaxDaily() int64
	DailyCount() int64
	Remaining() int64
	ResetAt() time.Time
}

// QuotaHandler exposes the quote provider budget.
type QuotaHandler struct {
	budget QuoteBudget
}

// NewQuotaHandler creates a new QuotaHandler. A nil budget reports zeros.
func NewQuotaHandler(b QuoteBudget) *QuotaHandler {
	return &QuotaHandler{budget: b}
}

// QuotaOutput is the response body for the quota endpoint.
type QuotaOutput struct {
	Body struct {
		DailyLimit int64     `json:"daily_limit" example:"5000"                 doc:"Configured daily quote calls; 0 means unlimited"`
		DailyUsed  int64     `json:"daily_used"  example:"142"                  doc:"Quote calls made in the current 24-hour window"`
		Remaining  int64     `json:"remaining"   example:"4858"                 doc:"Calls left in the window; -1 when unlimited"`
		ResetAt    time.Time `json:"reset_at"    example:"2026-10-16T08:00:00Z" doc:"When the current window expires"`
	}
}

// GetQuota returns the current quote budget status.
func (h *QuotaHandler) GetQuota(_ context.Context, _ *struct{}) (*QuotaOutput, error) {
	resp := &QuotaOutput{}
	if h.budget == nil {
		return resp, nil
	}

	resp.Body.DailyLimit = h.budget.MaxDaily()
	resp.Body.DailyUsed = h.budget.DailyCount()
	resp.Body.Remaining = h.budget.Remaining()
	resp.Body.ResetAt = h.budget.ResetAt()
	return resp, nil
}

// RegisterQuotaRoutes registers the quota endpoint with the Huma API.
func RegisterQuotaRoutes(api huma.API, h *QuotaHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-quota",
		Method:      http.MethodGet,
		Path:        "/api/v1/quota",
		Summary:     "Get quote API budget",
		Description: "Returns daily quote call usage, remaining budget and the window reset time.",
		Tags:        []string{"checks"},
	}, h.GetQuota)
}
