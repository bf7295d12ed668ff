package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/hotel-price-tracker/internal/store"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

const defaultAlertLimit = 50

// AlertLister defines the store method required to query alerts.
type AlertLister interface {
	ListAlerts(ctx context.Context, q *store.AlertQuery) ([]domain.PriceAlert, int, error)
}

// AlertActions moves alerts out of the new state.
type AlertActions interface {
	MarkActioned(ctx context.Context, id string) (*domain.PriceAlert, error)
	Dismiss(ctx context.Context, id string) (*domain.PriceAlert, error)
}

// AlertHandler handles alert endpoints.
type AlertHandler struct {
	store   AlertLister
	actions AlertActions
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(s AlertLister, a AlertActions) *AlertHandler {
	return &AlertHandler{store: s, actions: a}
}

// ListAlertsInput filters alerts.
type ListAlertsInput struct {
	UserID    string `query:"user_id"    doc:"Filter by user"`
	BookingID string `query:"booking_id" doc:"Filter by booking"`
	Status    string `query:"status"     doc:"Filter by status" enum:"new,actioned,dismissed,"`
	Limit     int    `query:"limit"      doc:"Number of results (default 50)" minimum:"0" maximum:"500"`
	Offset    int    `query:"offset"     doc:"Pagination offset"              minimum:"0"`
}

// ListAlertsOutput is the response for listing alerts, newest first.
type ListAlertsOutput struct {
	Body struct {
		Alerts []domain.PriceAlert `json:"alerts"`
		Total  int                 `json:"total"`
		Limit  int                 `json:"limit"`
		Offset int                 `json:"offset"`
	}
}

// AlertIDInput identifies a single alert.
type AlertIDInput struct {
	ID string `path:"id" doc:"Alert ID"`
}

// AlertOutput is the response for a single alert.
type AlertOutput struct {
	Body *domain.PriceAlert
}

// ListAlerts returns alerts matching the filters.
func (h *AlertHandler) ListAlerts(ctx context.Context, input *ListAlertsInput) (*ListAlertsOutput, error) {
	q := &store.AlertQuery{
		UserID:    input.UserID,
		BookingID: input.BookingID,
		Limit:     input.Limit,
		Offset:    input.Offset,
	}
	if q.Limit == 0 {
		q.Limit = defaultAlertLimit
	}
	if input.Status != "" {
		q.Statuses = []domain.AlertStatus{domain.AlertStatus(input.Status)}
	}

	alerts, total, err := h.store.ListAlerts(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing alerts failed: " + err.Error())
	}
	if alerts == nil {
		alerts = []domain.PriceAlert{}
	}

	resp := &ListAlertsOutput{}
	resp.Body.Alerts = alerts
	resp.Body.Total = total
	resp.Body.Limit = q.Limit
	resp.Body.Offset = q.Offset
	return resp, nil
}

// ActionAlert marks a new alert as acted upon.
func (h *AlertHandler) ActionAlert(ctx context.Context, input *AlertIDInput) (*AlertOutput, error) {
	a, err := h.actions.MarkActioned(ctx, input.ID)
	if err != nil {
		return nil, storeError("actioning alert", err)
	}
	return &AlertOutput{Body: a}, nil
}

// DismissAlert dismisses a new alert.
func (h *AlertHandler) DismissAlert(ctx context.Context, input *AlertIDInput) (*AlertOutput, error) {
	a, err := h.actions.Dismiss(ctx, input.ID)
	if err != nil {
		return nil, storeError("dismissing alert", err)
	}
	return &AlertOutput{Body: a}, nil
}

// RegisterAlertRoutes registers alert endpoints with the Huma API.
func RegisterAlertRoutes(api huma.API, h *AlertHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-alerts",
		Method:      http.MethodGet,
		Path:        "/api/v1/alerts",
		Summary:     "List price alerts",
		Description: "Returns price-drop alerts, newest first, with optional user, booking and status filters.",
		Tags:        []string{"alerts"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.ListAlerts)

	huma.Register(api, huma.Operation{
		OperationID: "action-alert",
		Method:      http.MethodPost,
		Path:        "/api/v1/alerts/{id}/action",
		Summary:     "Mark an alert actioned",
		Description: "Records that the user rebooked or otherwise acted on the alert. Only new alerts can be actioned.",
		Tags:        []string{"alerts"},
		Errors:      []int{http.StatusNotFound, http.StatusConflict, http.StatusInternalServerError},
	}, h.ActionAlert)

	huma.Register(api, huma.Operation{
		OperationID: "dismiss-alert",
		Method:      http.MethodPost,
		Path:        "/api/v1/alerts/{id}/dismiss",
		Summary:     "Dismiss an alert",
		Description: "Only new alerts can be dismissed.",
		Tags:        []string{"alerts"},
		Errors:      []int{http.StatusNotFound, http.StatusConflict, http.StatusInternalServerError},
	}, h.DismissAlert)
}
