package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"github.com/donaldgifford/hotel-price-tracker/internal/store"
	"github.com/donaldgifford/hotel-price-tracker/pkg/prefs"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// SettingsStore defines the store methods required by the settings handler.
type SettingsStore interface {
	GetAlertSetting(ctx context.Context, userID string) (*domain.AlertSetting, error)
	EnsureAlertSetting(ctx context.Context, userID string) (*domain.AlertSetting, error)
	UpsertAlertSetting(ctx context.Context, s *domain.AlertSetting) error
}

// SettingsHandler handles per-user alert preference endpoints.
type SettingsHandler struct {
	store SettingsStore
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(s SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: s}
}

// UserIDInput identifies a user.
type UserIDInput struct {
	UserID string `path:"user_id" doc:"User ID"`
}

// SettingsOutput is the response for a user's alert settings.
type SettingsOutput struct {
	Body *domain.AlertSetting
}

// SettingsBody is a partial update; absent fields keep their value.
// Empty quiet-hour bounds clear them.
type SettingsBody struct {
	MinDropAmount     *string  `json:"min_drop_amount,omitempty"    doc:"Minimum drop in booking currency, as a decimal string" example:"10"`
	MinDropPercent    *string  `json:"min_drop_percent,omitempty"   doc:"Minimum drop percent, as a decimal string"             example:"5"`
	EmailEnabled      *bool    `json:"email_enabled,omitempty"`
	PushEnabled       *bool    `json:"push_enabled,omitempty"`
	SMSEnabled        *bool    `json:"sms_enabled,omitempty"`
	Frequency         *string  `json:"frequency,omitempty"          doc:"immediate, daily or weekly"`
	QuietHoursStart   *string  `json:"quiet_hours_start,omitempty"  doc:"HH:MM"                                                 example:"22:00"`
	QuietHoursEnd     *string  `json:"quiet_hours_end,omitempty"    doc:"HH:MM"                                                 example:"07:00"`
	Timezone          *string  `json:"timezone,omitempty"           doc:"IANA zone for quiet hours"                             example:"Europe/Lisbon"`
	ExcludedProviders []string `json:"excluded_providers,omitempty" doc:"Providers that never alert"`
	IncludedLocations []string `json:"included_locations,omitempty" doc:"When set, only these locations alert"`
}

// UpdateSettingsInput is the request for updating alert settings.
type UpdateSettingsInput struct {
	UserID string `path:"user_id" doc:"User ID"`
	Body   SettingsBody
}

// GetSettings returns a user's settings, or the defaults when none are
// stored yet. Reading never creates a row.
func (h *SettingsHandler) GetSettings(ctx context.Context, input *UserIDInput) (*SettingsOutput, error) {
	s, err := h.store.GetAlertSetting(ctx, input.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return &SettingsOutput{Body: domain.DefaultAlertSetting(input.UserID)}, nil
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("getting settings failed: " + err.Error())
	}
	return &SettingsOutput{Body: s}, nil
}

// UpdateSettings applies a partial update to a user's settings.
func (h *SettingsHandler) UpdateSettings(
	ctx context.Context,
	input *UpdateSettingsInput,
) (*SettingsOutput, error) {
	s, err := h.store.EnsureAlertSetting(ctx, input.UserID)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading settings failed: " + err.Error())
	}

	if err := applySettings(s, &input.Body); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	if err := h.store.UpsertAlertSetting(ctx, s); err != nil {
		return nil, huma.Error500InternalServerError("saving settings failed: " + err.Error())
	}
	return &SettingsOutput{Body: s}, nil
}

func applySettings(s *domain.AlertSetting, b *SettingsBody) error {
	var errs []error

	if b.MinDropAmount != nil {
		d, err := nonNegative("min_drop_amount", *b.MinDropAmount)
		errs = append(errs, err)
		s.MinDropAmount = d
	}
	if b.MinDropPercent != nil {
		d, err := nonNegative("min_drop_percent", *b.MinDropPercent)
		if err == nil && d.GreaterThan(decimal.NewFromInt(100)) {
			err = errors.New("min_drop_percent must not exceed 100")
		}
		errs = append(errs, err)
		s.MinDropPercent = d
	}
	if b.EmailEnabled != nil {
		s.EmailEnabled = *b.EmailEnabled
	}
	if b.PushEnabled != nil {
		s.PushEnabled = *b.PushEnabled
	}
	if b.SMSEnabled != nil {
		s.SMSEnabled = *b.SMSEnabled
	}
	if b.Frequency != nil {
		f := domain.Frequency(*b.Frequency)
		if !f.Valid() {
			errs = append(errs, fmt.Errorf("frequency must be immediate, daily or weekly (got %q)", *b.Frequency))
		}
		s.Frequency = f
	}
	if b.QuietHoursStart != nil {
		v, err := clock("quiet_hours_start", *b.QuietHoursStart)
		errs = append(errs, err)
		s.QuietHoursStart = v
	}
	if b.QuietHoursEnd != nil {
		v, err := clock("quiet_hours_end", *b.QuietHoursEnd)
		errs = append(errs, err)
		s.QuietHoursEnd = v
	}
	if b.Timezone != nil {
		if _, err := time.LoadLocation(*b.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("timezone %q: %w", *b.Timezone, err))
		}
		s.Timezone = *b.Timezone
	}
	if b.ExcludedProviders != nil {
		s.ExcludedProviders = b.ExcludedProviders
	}
	if b.IncludedLocations != nil {
		s.IncludedLocations = b.IncludedLocations
	}

	return errors.Join(errs...)
}

func nonNegative(field, v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal: %w", field, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}

func clock(field, v string) (*string, error) {
	if v == "" {
		return nil, nil
	}
	if _, err := prefs.ParseClock(v); err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &v, nil
}

// RegisterSettingsRoutes registers alert settings endpoints with the Huma API.
func RegisterSettingsRoutes(api huma.API, h *SettingsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{user_id}/settings",
		Summary:     "Get alert settings",
		Description: "Returns the user's alert preferences, or the defaults if none are saved.",
		Tags:        []string{"settings"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.GetSettings)

	huma.Register(api, huma.Operation{
		OperationID: "update-settings",
		Method:      http.MethodPut,
		Path:        "/api/v1/users/{user_id}/settings",
		Summary:     "Update alert settings",
		Description: "Applies a partial update. Fields left out keep their current value.",
		Tags:        []string{"settings"},
		Errors:      []int{http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}, h.UpdateSettings)
}
