// Package store defines the datastore abstraction for hotel-price-tracker.
// All business logic depends on the Store interface, never on concrete
// implementations. This enables testing without a running database.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a status change is not allowed
	// from the row's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// AlertQuery defines optional filters for alert queries.
type AlertQuery struct {
	UserID    string
	BookingID string
	Statuses  []domain.AlertStatus
	Limit     int // default 50
	Offset    int
}

// BookingPriceUpdate carries the fields the monitor writes after a check.
// The monitor never changes a booking's status.
type BookingPriceUpdate struct {
	BookingID         string
	CurrentPrice      decimal.Decimal
	LastChecked       time.Time
	PriceDropDetected bool
	PriceDropAmount   *decimal.Decimal
}

// Store defines all data access operations for hotel-price-tracker.
type Store interface {
	// Bookings
	CreateBooking(ctx context.Context, b *domain.Booking) error
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	ListBookings(ctx context.Context, userID string) ([]domain.Booking, error)
	ListActiveBookings(ctx context.Context) ([]domain.Booking, error)
	UpdateBookingPrice(ctx context.Context, u *BookingPriceUpdate) error
	SetBookingStatus(ctx context.Context, id string, status domain.BookingStatus) error

	// Alert settings
	GetAlertSetting(ctx context.Context, userID string) (*domain.AlertSetting, error)
	UpsertAlertSetting(ctx context.Context, s *domain.AlertSetting) error
	EnsureAlertSetting(ctx context.Context, userID string) (*domain.AlertSetting, error)

	// Alerts
	CreateAlert(ctx context.Context, a *domain.PriceAlert) error
	CreateAlertAndUpdateBooking(ctx context.Context, a *domain.PriceAlert, u *BookingPriceUpdate) error
	GetAlert(ctx context.Context, id string) (*domain.PriceAlert, error)
	ListAlerts(ctx context.Context, q *AlertQuery) ([]domain.PriceAlert, int, error)
	LatestAlertForBooking(ctx context.Context, bookingID string) (*domain.PriceAlert, error)
	UpdateAlertStatus(ctx context.Context, id string, status domain.AlertStatus, actionedAt time.Time) error
	ListAlertsOlderThan(ctx context.Context, statuses []domain.AlertStatus, cutoff time.Time) ([]domain.PriceAlert, error)
	DeleteAlertsOlderThan(ctx context.Context, statuses []domain.AlertStatus, cutoff time.Time) (int, error)
	ListUndigestedAlerts(ctx context.Context, frequency domain.Frequency) ([]domain.PriceAlert, error)
	MarkAlertsNotified(ctx context.Context, ids []string, at time.Time) error

	// Contacts
	GetUserContact(ctx context.Context, userID string) (*domain.UserContact, error)

	// Scheduler
	InsertJobRun(ctx context.Context, jobName string) (id string, err error)
	CompleteJobRun(ctx context.Context, id string, status string, errText string, rowsAffected int) error
	ListJobRuns(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error)
	ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error)
	RecoverStaleJobRuns(ctx context.Context, olderThan time.Duration) (int, error)
	AcquireSchedulerLock(ctx context.Context, jobName string, holder string, ttl time.Duration) (bool, error)
	ReleaseSchedulerLock(ctx context.Context, jobName string, holder string) error

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}
