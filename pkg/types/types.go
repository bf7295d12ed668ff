// Package domain defines the core business types for the hotel price tracker.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus represents the lifecycle state of a tracked booking.
type BookingStatus string

// Booking status constants.
const (
	BookingActive    BookingStatus = "active"
	BookingPaused    BookingStatus = "paused"
	BookingCompleted BookingStatus = "completed"
)

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingActive, BookingPaused, BookingCompleted:
		return true
	default:
		return false
	}
}

// AlertStatus represents the lifecycle state of a price alert.
type AlertStatus string

// Alert status constants.
const (
	AlertNew       AlertStatus = "new"
	AlertActioned  AlertStatus = "actioned"
	AlertDismissed AlertStatus = "dismissed"
)

// Valid reports whether s is a known alert status.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertNew, AlertActioned, AlertDismissed:
		return true
	default:
		return false
	}
}

// Severity classifies how significant a price drop is.
type Severity string

// Severity constants.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Frequency controls how often a user receives notifications.
type Frequency string

// Frequency constants.
const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyImmediate, FrequencyDaily, FrequencyWeekly:
		return true
	default:
		return false
	}
}

// Channel is a notification delivery channel.
type Channel string

// Channel constants.
const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
)

// Booking represents a hotel reservation being monitored for price drops.
type Booking struct {
	ID        string    `json:"id"         db:"id"`
	UserID    string    `json:"user_id"    db:"user_id"`
	HotelName string    `json:"hotel_name" db:"hotel_name"`
	Location  string    `json:"location"   db:"location"`
	CheckIn   time.Time `json:"check_in"   db:"check_in"`
	CheckOut  time.Time `json:"check_out"  db:"check_out"`
	Guests    int       `json:"guests"     db:"guests"`
	Currency  string    `json:"currency"   db:"currency"`

	// Pricing
	ReferencePrice    decimal.Decimal  `json:"reference_price"             db:"reference_price"`
	CurrentPrice      decimal.Decimal  `json:"current_price"               db:"current_price"`
	PriceDropDetected bool             `json:"price_drop_detected"         db:"price_drop_detected"`
	PriceDropAmount   *decimal.Decimal `json:"price_drop_amount,omitempty" db:"price_drop_amount"`

	Status      BookingStatus `json:"status"                 db:"status"`
	LastChecked *time.Time    `json:"last_checked,omitempty" db:"last_checked"`
	CreatedAt   time.Time     `json:"created_at"             db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"             db:"updated_at"`
}

// Validate checks the structural invariants of a booking.
func (b *Booking) Validate() error {
	var errs []error
	if b.UserID == "" {
		errs = append(errs, errors.New("user_id is required"))
	}
	if b.HotelName == "" {
		errs = append(errs, errors.New("hotel_name is required"))
	}
	if !b.CheckOut.After(b.CheckIn) {
		errs = append(errs, errors.New("check_out must be after check_in"))
	}
	if b.ReferencePrice.IsNegative() {
		errs = append(errs, errors.New("reference_price must not be negative"))
	}
	if b.Guests < 0 {
		errs = append(errs, errors.New("guests must not be negative"))
	}
	if b.Status != "" && !b.Status.Valid() {
		errs = append(errs, fmt.Errorf("unknown status %q", b.Status))
	}
	return errors.Join(errs...)
}

// CanTransition reports whether the booking may move to the given status.
// Active and paused toggle; active may complete; completed is terminal.
func (b *Booking) CanTransition(to BookingStatus) bool {
	switch b.Status {
	case BookingActive:
		return to == BookingPaused || to == BookingCompleted
	case BookingPaused:
		return to == BookingActive
	default:
		return false
	}
}

// Nights returns the number of nights in the stay, counted on calendar
// dates so check-in and check-out times do not matter.
func (b *Booking) Nights() int {
	in := time.Date(b.CheckIn.Year(), b.CheckIn.Month(), b.CheckIn.Day(), 0, 0, 0, 0, time.UTC)
	out := time.Date(b.CheckOut.Year(), b.CheckOut.Month(), b.CheckOut.Day(), 0, 0, 0, 0, time.UTC)
	return int(out.Sub(in).Hours() / 24)
}

// AlertSetting holds a user's notification preferences.
type AlertSetting struct {
	UserID         string          `json:"user_id"          db:"user_id"`
	MinDropAmount  decimal.Decimal `json:"min_drop_amount"  db:"min_drop_amount"`
	MinDropPercent decimal.Decimal `json:"min_drop_percent" db:"min_drop_percent"`
	EmailEnabled   bool            `json:"email_enabled"    db:"email_enabled"`
	PushEnabled    bool            `json:"push_enabled"     db:"push_enabled"`
	SMSEnabled     bool            `json:"sms_enabled"      db:"sms_enabled"`
	Frequency      Frequency       `json:"frequency"        db:"frequency"`

	// Quiet hours as "HH:MM" in Timezone. Either bound absent disables them.
	QuietHoursStart *string `json:"quiet_hours_start,omitempty" db:"quiet_hours_start"`
	QuietHoursEnd   *string `json:"quiet_hours_end,omitempty"   db:"quiet_hours_end"`
	Timezone        string  `json:"timezone,omitempty"          db:"timezone"`

	ExcludedProviders []string  `json:"excluded_providers" db:"excluded_providers"`
	IncludedLocations []string  `json:"included_locations" db:"included_locations"`
	CreatedAt         time.Time `json:"created_at"         db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"         db:"updated_at"`
}

// DefaultAlertSetting returns the settings created for a user on first use.
func DefaultAlertSetting(userID string) *AlertSetting {
	return &AlertSetting{
		UserID:            userID,
		MinDropAmount:     decimal.NewFromInt(10),
		MinDropPercent:    decimal.NewFromInt(5),
		EmailEnabled:      true,
		PushEnabled:       true,
		Frequency:         FrequencyImmediate,
		ExcludedProviders: []string{},
		IncludedLocations: []string{},
	}
}

// PriceAlert records a detected price drop for a booking.
type PriceAlert struct {
	ID        string `json:"id"                 db:"id"`
	BookingID string `json:"booking_id"         db:"booking_id"`
	UserID    string `json:"user_id"            db:"user_id"`
	HotelName string `json:"hotel_name"         db:"hotel_name"`
	Location  string `json:"location"           db:"location"`
	Provider  string `json:"provider,omitempty" db:"provider"`

	BookedPrice    decimal.Decimal `json:"booked_price"    db:"booked_price"`
	CurrentPrice   decimal.Decimal `json:"current_price"   db:"current_price"`
	DeltaAmount    decimal.Decimal `json:"delta_amount"    db:"delta_amount"`
	DeltaPercent   decimal.Decimal `json:"delta_percent"   db:"delta_percent"`
	Currency       string          `json:"currency"        db:"currency"`
	ThresholdLabel string          `json:"threshold_label" db:"threshold_label"`

	Status      AlertStatus `json:"status"                 db:"status"`
	Severity    Severity    `json:"severity"               db:"severity"`
	TriggeredAt time.Time   `json:"triggered_at"           db:"triggered_at"`
	ActionedAt  *time.Time  `json:"actioned_at,omitempty"  db:"actioned_at"`
	NotifiedAt  *time.Time  `json:"notified_at,omitempty"  db:"notified_at"`
	Notes       string      `json:"notes,omitempty"        db:"notes"`
}

// Quote is a single price observation returned by a price source.
type Quote struct {
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
	Provider   string          `json:"provider"`
	ObservedAt time.Time       `json:"observed_at"`
}

// UserContact holds the delivery addresses for a user.
type UserContact struct {
	UserID string `json:"user_id"         db:"user_id"`
	Email  string `json:"email,omitempty" db:"email"`
	Phone  string `json:"phone,omitempty" db:"phone"`
}

// JobRun records a single execution of a scheduled job.
type JobRun struct {
	ID           string     `json:"id"                      db:"id"`
	JobName      string     `json:"job_name"                db:"job_name"`
	StartedAt    time.Time  `json:"started_at"              db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"  db:"completed_at"`
	Status       string     `json:"status"                  db:"status"`
	ErrorText    string     `json:"error_text,omitempty"    db:"error_text"`
	RowsAffected *int       `json:"rows_affected,omitempty" db:"rows_affected"`
}

// JobStatus pairs a scheduled job with its next fire time and latest run.
type JobStatus struct {
	Name      string     `json:"name"`
	Scheduled bool       `json:"scheduled"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastRun   *JobRun    `json:"last_run,omitempty"`
}
