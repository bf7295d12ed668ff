package prefs_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/hotel-price-tracker/pkg/prefs"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

func ptr(s string) *string { return &s }

func at(hour, minute int) time.Time {
	return time.Date(2026, 6, 15, hour, minute, 0, 0, time.UTC)
}

func candidate(amount, percent string) prefs.Candidate {
	return prefs.Candidate{
		DeltaAmount:  decimal.RequireFromString(amount),
		DeltaPercent: decimal.RequireFromString(percent),
	}
}

func TestShouldNotify_Thresholds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		amount  string
		percent string
		want    bool
	}{
		{name: "below both minimums", amount: "5.00", percent: "2.5", want: false},
		{name: "above both minimums", amount: "20", percent: "10", want: true},
		{name: "amount alone is enough", amount: "10", percent: "1", want: true},
		{name: "percent alone is enough", amount: "1", percent: "5", want: true},
		{name: "just under both", amount: "9.99", percent: "4.99", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := domain.DefaultAlertSetting("user-1")
			got := prefs.ShouldNotify(s, candidate(tt.amount, tt.percent), at(12, 0))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShouldNotify_Filters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		excluded []string
		included []string
		provider string
		location string
		want     bool
	}{
		{name: "no filters", want: true},
		{name: "excluded provider", excluded: []string{"CheapStays"}, provider: "cheapstays", want: false},
		{name: "other provider", excluded: []string{"CheapStays"}, provider: "RoomHub", want: true},
		{name: "empty provider ignores exclusions", excluded: []string{"CheapStays"}, want: true},
		{name: "included location", included: []string{"Lisbon"}, location: "LISBON", want: true},
		{name: "location not included", included: []string{"Lisbon"}, location: "Porto", want: false},
		{name: "empty location ignores inclusions", included: []string{"Lisbon"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := domain.DefaultAlertSetting("user-1")
			s.ExcludedProviders = tt.excluded
			s.IncludedLocations = tt.included

			c := candidate("20", "10")
			c.Provider = tt.provider
			c.Location = tt.location

			assert.Equal(t, tt.want, prefs.ShouldNotify(s, c, at(12, 0)))
		})
	}
}

func TestInQuietHours(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start *string
		end   *string
		tz    string
		now   time.Time
		want  bool
	}{
		{name: "wrap window late night", start: ptr("22:00"), end: ptr("08:00"), now: at(23, 0), want: true},
		{name: "wrap window early morning", start: ptr("22:00"), end: ptr("08:00"), now: at(3, 0), want: true},
		{name: "wrap window midday", start: ptr("22:00"), end: ptr("08:00"), now: at(12, 0), want: false},
		{name: "wrap window start bound inclusive", start: ptr("22:00"), end: ptr("08:00"), now: at(22, 0), want: true},
		{name: "wrap window end bound inclusive", start: ptr("22:00"), end: ptr("08:00"), now: at(8, 0), want: true},
		{name: "same day window inside", start: ptr("12:00"), end: ptr("14:00"), now: at(13, 30), want: true},
		{name: "same day window outside", start: ptr("12:00"), end: ptr("14:00"), now: at(14, 1), want: false},
		{name: "missing start disables", end: ptr("08:00"), now: at(3, 0), want: false},
		{name: "missing end disables", start: ptr("22:00"), now: at(23, 0), want: false},
		{name: "malformed bound disables", start: ptr("late"), end: ptr("08:00"), now: at(3, 0), want: false},
		{
			name:  "evaluated in user timezone",
			start: ptr("22:00"),
			end:   ptr("08:00"),
			tz:    "America/New_York",
			now:   at(3, 0), // 23:00 the previous evening in New York
			want:  true,
		},
		{
			name:  "unknown timezone falls back to UTC",
			start: ptr("22:00"),
			end:   ptr("08:00"),
			tz:    "Mars/Olympus",
			now:   at(12, 0),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := domain.DefaultAlertSetting("user-1")
			s.QuietHoursStart = tt.start
			s.QuietHoursEnd = tt.end
			s.Timezone = tt.tz

			assert.Equal(t, tt.want, prefs.InQuietHours(s, tt.now))
		})
	}
}

func TestShouldNotify_QuietHoursSuppress(t *testing.T) {
	t.Parallel()

	s := domain.DefaultAlertSetting("user-1")
	s.QuietHoursStart = ptr("22:00")
	s.QuietHoursEnd = ptr("08:00")

	c := candidate("50", "25")
	assert.False(t, prefs.ShouldNotify(s, c, at(23, 0)))
	assert.False(t, prefs.ShouldNotify(s, c, at(3, 0)))
	assert.True(t, prefs.ShouldNotify(s, c, at(12, 0)))
}

func TestChannels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		email, push, sms bool
		want             []domain.Channel
	}{
		{name: "none", want: []domain.Channel{}},
		{name: "email and push", email: true, push: true, want: []domain.Channel{domain.ChannelEmail, domain.ChannelPush}},
		{name: "sms only", sms: true, want: []domain.Channel{domain.ChannelSMS}},
		{
			name:  "all in stable order",
			email: true, push: true, sms: true,
			want: []domain.Channel{domain.ChannelEmail, domain.ChannelPush, domain.ChannelSMS},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := &domain.AlertSetting{EmailEnabled: tt.email, PushEnabled: tt.push, SMSEnabled: tt.sms}
			assert.Equal(t, tt.want, prefs.Channels(s))
		})
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	got, err := prefs.ParseClock("22:30")
	require.NoError(t, err)
	assert.Equal(t, 22*60+30, got)

	_, err = prefs.ParseClock("25:00")
	require.Error(t, err)
}
