package client

import (
	"context"
	"net/url"

	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// SettingsUpdate is a partial settings change; nil fields are left alone.
type SettingsUpdate struct {
	MinDropAmount     *string  `json:"min_drop_amount,omitempty"`
	MinDropPercent    *string  `json:"min_drop_percent,omitempty"`
	EmailEnabled      *bool    `json:"email_enabled,omitempty"`
	PushEnabled       *bool    `json:"push_enabled,omitempty"`
	SMSEnabled        *bool    `json:"sms_enabled,omitempty"`
	Frequency         *string  `json:"frequency,omitempty"`
	QuietHoursStart   *string  `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd     *string  `json:"quiet_hours_end,omitempty"`
	Timezone          *string  `json:"timezone,omitempty"`
	ExcludedProviders []string `json:"excluded_providers,omitempty"`
	IncludedLocations []string `json:"included_locations,omitempty"`
}

// GetSettings returns a user's alert settings.
func (c *Client) GetSettings(ctx context.Context, userID string) (*domain.AlertSetting, error) {
	var s domain.AlertSetting
	if err := c.get(ctx, settingsPath(userID), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSettings applies u to a user's alert settings.
func (c *Client) UpdateSettings(
	ctx context.Context,
	userID string,
	u *SettingsUpdate,
) (*domain.AlertSetting, error) {
	var s domain.AlertSetting
	if err := c.put(ctx, settingsPath(userID), u, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func settingsPath(userID string) string {
	return "/api/v1/users/" + url.PathEscape(userID) + "/settings"
}
