package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/hotel-price-tracker/internal/engine"
)

// CycleRunner runs price checks and alert cleanup synchronously.
type CycleRunner interface {
	RunCycle(ctx context.Context, targetBookingID string) (int, error)
	CheckBooking(ctx context.Context, id string, force bool) (*engine.CheckResult, error)
	CleanupOldAlerts(ctx context.Context) (int, error)
}

// Enqueuer accepts background check requests.
type Enqueuer interface {
	Enqueue(req engine.CheckRequest) (engine.CheckRequest, error)
}

// CheckHandler triggers price checks and alert cleanup.
type CheckHandler struct {
	runner CycleRunner
	queue  Enqueuer
}

// NewCheckHandler creates a new CheckHandler. A nil queue disables async
// requests.
func NewCheckHandler(r CycleRunner, q Enqueuer) *CheckHandler {
	return &CheckHandler{runner: r, queue: q}
}

// RunChecksInput is the request for triggering checks.
type RunChecksInput struct {
	Body struct {
		BookingID string `json:"booking_id,omitempty" doc:"Check only this booking"`
		Force     bool   `json:"force,omitempty"      doc:"Bypass the minimum check interval (single booking only)"`
		Async     bool   `json:"async,omitempty"      doc:"Queue the request and return immediately"`
	}
}

// RunChecksOutput reports a finished or queued check request.
type RunChecksOutput struct {
	Status int
	Body   struct {
		Status        string              `json:"status"                 enum:"completed,queued"`
		RequestID     string              `json:"request_id,omitempty"`
		AlertsCreated int                 `json:"alerts_created"`
		Result        *engine.CheckResult `json:"result,omitempty"`
	}
}

// CleanupOutput reports an alert cleanup run.
type CleanupOutput struct {
	Body struct {
		Deleted int `json:"deleted" doc:"Alerts removed"`
	}
}

// RunChecks runs a full cycle, or a single booking check, either inline or
// through the background queue.
func (h *CheckHandler) RunChecks(ctx context.Context, input *RunChecksInput) (*RunChecksOutput, error) {
	in := input.Body
	resp := &RunChecksOutput{Status: http.StatusOK}

	if in.Async {
		if h.queue == nil {
			return nil, huma.Error503ServiceUnavailable("async checks are not enabled")
		}
		req, err := h.queue.Enqueue(engine.CheckRequest{BookingID: in.BookingID, Force: in.Force})
		if errors.Is(err, engine.ErrQueueFull) {
			return nil, huma.Error503ServiceUnavailable("check queue is full, retry later")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("queueing check failed: " + err.Error())
		}
		resp.Status = http.StatusAccepted
		resp.Body.Status = "queued"
		resp.Body.RequestID = req.ID
		return resp, nil
	}

	resp.Body.Status = "completed"

	if in.BookingID != "" {
		res, err := h.runner.CheckBooking(ctx, in.BookingID, in.Force)
		if err != nil {
			return nil, storeError("checking booking", err)
		}
		if res.Outcome == engine.OutcomeAlertCreated {
			resp.Body.AlertsCreated = 1
		}
		resp.Body.Result = res
		return resp, nil
	}

	n, err := h.runner.RunCycle(ctx, "")
	if err != nil {
		return nil, huma.Error500InternalServerError("check cycle failed: " + err.Error())
	}
	resp.Body.AlertsCreated = n
	return resp, nil
}

// Cleanup deletes handled alerts older than the retention window.
func (h *CheckHandler) Cleanup(ctx context.Context, _ *struct{}) (*CleanupOutput, error) {
	n, err := h.runner.CleanupOldAlerts(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("alert cleanup failed: " + err.Error())
	}
	resp := &CleanupOutput{}
	resp.Body.Deleted = n
	return resp, nil
}

// RegisterCheckRoutes registers check and cleanup endpoints with the Huma API.
func RegisterCheckRoutes(api huma.API, h *CheckHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "run-checks",
		Method:      http.MethodPost,
		Path:        "/api/v1/checks",
		Summary:     "Run price checks",
		Description: "Checks every eligible booking, or a single booking when booking_id is set. " +
			"With async the request is queued and 202 is returned.",
		Tags: []string{"checks"},
		Errors: []int{
			http.StatusNotFound,
			http.StatusInternalServerError,
			http.StatusServiceUnavailable,
		},
	}, h.RunChecks)

	huma.Register(api, huma.Operation{
		OperationID: "cleanup-alerts",
		Method:      http.MethodPost,
		Path:        "/api/v1/cleanup",
		Summary:     "Clean up old alerts",
		Description: "Deletes actioned and dismissed alerts older than the retention window.",
		Tags:        []string{"checks"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.Cleanup)
}
