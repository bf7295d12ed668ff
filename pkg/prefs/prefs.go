// Package prefs decides whether a detected price drop should reach a user
// and over which channels.
package prefs

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"

	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// Candidate describes a drop about to be turned into an alert.
type Candidate struct {
	DeltaAmount  decimal.Decimal
	DeltaPercent decimal.Decimal
	Provider     string
	Location     string
}

// ShouldNotify applies the user's thresholds, provider and location
// filters, and quiet hours. A drop passes the threshold gate when either
// the amount or the percentage meets its minimum.
func ShouldNotify(s *domain.AlertSetting, c Candidate, now time.Time) bool {
	if c.DeltaAmount.LessThan(s.MinDropAmount) && c.DeltaPercent.LessThan(s.MinDropPercent) {
		return false
	}

	if c.Provider != "" && containsFold(s.ExcludedProviders, c.Provider) {
		return false
	}

	if c.Location != "" && len(s.IncludedLocations) > 0 && !containsFold(s.IncludedLocations, c.Location) {
		return false
	}

	return !InQuietHours(s, now)
}

// Channels returns the enabled delivery channels in email, push, sms order.
func Channels(s *domain.AlertSetting) []domain.Channel {
	channels := make([]domain.Channel, 0, 3)
	if s.EmailEnabled {
		channels = append(channels, domain.ChannelEmail)
	}
	if s.PushEnabled {
		channels = append(channels, domain.ChannelPush)
	}
	if s.SMSEnabled {
		channels = append(channels, domain.ChannelSMS)
	}
	return channels
}

// InQuietHours reports whether now falls inside the user's quiet window,
// evaluated in the setting's timezone. Bounds are inclusive. A window
// whose start is after its end wraps past midnight. A missing or
// malformed bound disables quiet hours.
func InQuietHours(s *domain.AlertSetting, now time.Time) bool {
	if s.QuietHoursStart == nil || s.QuietHoursEnd == nil {
		return false
	}

	start, err := ParseClock(*s.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := ParseClock(*s.QuietHoursEnd)
	if err != nil {
		return false
	}

	local := now.In(Location(s.Timezone))
	t := local.Hour()*60 + local.Minute()

	if start <= end {
		return t >= start && t <= end
	}
	return t >= start || t <= end
}

// ParseClock parses "HH:MM" into minutes after midnight.
func ParseClock(v string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("parsing clock %q: %w", v, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Location resolves an IANA timezone name. Empty or unknown names map to UTC.
func Location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(strings.TrimSpace(candidate), v) {
			return true
		}
	}
	return false
}
