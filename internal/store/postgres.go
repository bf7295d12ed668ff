package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string, maxConns int32) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// CreateBooking inserts a new booking. The current price starts at the
// reference price.
func (s *PostgresStore) CreateBooking(ctx context.Context, b *domain.Booking) error {
	if b.Status == "" {
		b.Status = domain.BookingActive
	}
	if b.Guests == 0 {
		b.Guests = 1
	}

	args := pgx.NamedArgs{
		"user_id":         b.UserID,
		"hotel_name":      b.HotelName,
		"location":        b.Location,
		"check_in":        b.CheckIn,
		"check_out":       b.CheckOut,
		"guests":          b.Guests,
		"currency":        b.Currency,
		"reference_price": b.ReferencePrice,
		"status":          string(b.Status),
	}

	err := s.pool.QueryRow(ctx, queryCreateBooking, args).Scan(
		&b.ID, &b.CurrentPrice, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating booking: %w", err)
	}
	return nil
}

// GetBooking retrieves a booking by ID.
func (s *PostgresStore) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	b := &domain.Booking{}
	err := scanBooking(s.pool.QueryRow(ctx, queryGetBooking, id), b)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting booking: %w", err)
	}
	return b, nil
}

// ListBookings returns a user's bookings ordered by check-in. An empty
// userID lists every booking.
func (s *PostgresStore) ListBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	if userID == "" {
		return s.queryBookings(ctx, queryListAllBookings)
	}
	return s.queryBookings(ctx, queryListBookingsByUser, userID)
}

// ListActiveBookings returns all active bookings, least recently checked first.
func (s *PostgresStore) ListActiveBookings(ctx context.Context) ([]domain.Booking, error) {
	return s.queryBookings(ctx, queryListActiveBookings)
}

// UpdateBookingPrice writes the result of a price check.
func (s *PostgresStore) UpdateBookingPrice(ctx context.Context, u *BookingPriceUpdate) error {
	tag, err := s.pool.Exec(ctx, queryUpdateBookingPrice, priceUpdateArgs(u))
	if err != nil {
		return fmt.Errorf("updating booking price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", u.BookingID, ErrNotFound)
	}
	return nil
}

func priceUpdateArgs(u *BookingPriceUpdate) pgx.NamedArgs {
	return pgx.NamedArgs{
		"id":                  u.BookingID,
		"current_price":       u.CurrentPrice,
		"last_checked":        u.LastChecked,
		"price_drop_detected": u.PriceDropDetected,
		"price_drop_amount":   u.PriceDropAmount,
	}
}

// SetBookingStatus changes a booking's status after validating the transition.
func (s *PostgresStore) SetBookingStatus(
	ctx context.Context,
	id string,
	status domain.BookingStatus,
) error {
	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if !b.CanTransition(status) {
		return fmt.Errorf("booking %s %s -> %s: %w", id, b.Status, status, ErrInvalidTransition)
	}

	if _, err := s.pool.Exec(ctx, querySetBookingStatus, id, string(status)); err != nil {
		return fmt.Errorf("setting booking status: %w", err)
	}
	return nil
}

// GetAlertSetting retrieves a user's alert settings.
func (s *PostgresStore) GetAlertSetting(ctx context.Context, userID string) (*domain.AlertSetting, error) {
	as := &domain.AlertSetting{}
	err := s.pool.QueryRow(ctx, queryGetAlertSetting, userID).Scan(
		&as.UserID, &as.MinDropAmount, &as.MinDropPercent,
		&as.EmailEnabled, &as.PushEnabled, &as.SMSEnabled, &as.Frequency,
		&as.QuietHoursStart, &as.QuietHoursEnd, &as.Timezone,
		&as.ExcludedProviders, &as.IncludedLocations, &as.CreatedAt, &as.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("alert settings for %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting alert settings: %w", err)
	}
	return as, nil
}

// UpsertAlertSetting inserts or replaces a user's alert settings.
func (s *PostgresStore) UpsertAlertSetting(ctx context.Context, as *domain.AlertSetting) error {
	args := pgx.NamedArgs{
		"user_id":            as.UserID,
		"min_drop_amount":    as.MinDropAmount,
		"min_drop_percent":   as.MinDropPercent,
		"email_enabled":      as.EmailEnabled,
		"push_enabled":       as.PushEnabled,
		"sms_enabled":        as.SMSEnabled,
		"frequency":          string(as.Frequency),
		"quiet_hours_start":  as.QuietHoursStart,
		"quiet_hours_end":    as.QuietHoursEnd,
		"timezone":           as.Timezone,
		"excluded_providers": nonNil(as.ExcludedProviders),
		"included_locations": nonNil(as.IncludedLocations),
	}

	if err := s.pool.QueryRow(ctx, queryUpsertAlertSetting, args).Scan(
		&as.CreatedAt, &as.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upserting alert settings: %w", err)
	}
	return nil
}

// EnsureAlertSetting returns a user's settings, inserting the defaults first
// if none exist. Concurrent callers race safely on the primary key.
func (s *PostgresStore) EnsureAlertSetting(ctx context.Context, userID string) (*domain.AlertSetting, error) {
	if _, err := s.pool.Exec(ctx, queryInsertDefaultAlertSetting, userID); err != nil {
		return nil, fmt.Errorf("inserting default alert settings: %w", err)
	}
	return s.GetAlertSetting(ctx, userID)
}

// CreateAlert inserts a new price alert and sets its ID.
func (s *PostgresStore) CreateAlert(ctx context.Context, a *domain.PriceAlert) error {
	if err := s.pool.QueryRow(ctx, queryCreateAlert, alertArgs(a)).Scan(&a.ID); err != nil {
		return fmt.Errorf("creating alert: %w", err)
	}
	return nil
}

// CreateAlertAndUpdateBooking inserts an alert and writes the booking's
// check result in one transaction. Either both rows change or neither does.
func (s *PostgresStore) CreateAlertAndUpdateBooking(
	ctx context.Context,
	a *domain.PriceAlert,
	u *BookingPriceUpdate,
) error {
	var id string
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, queryCreateAlert, alertArgs(a)).Scan(&id); err != nil {
			return fmt.Errorf("creating alert: %w", err)
		}
		tag, err := tx.Exec(ctx, queryUpdateBookingPrice, priceUpdateArgs(u))
		if err != nil {
			return fmt.Errorf("updating booking price: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("booking %s: %w", u.BookingID, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// alertArgs fills in the status and trigger time defaults and returns the
// insert arguments for a.
func alertArgs(a *domain.PriceAlert) pgx.NamedArgs {
	if a.Status == "" {
		a.Status = domain.AlertNew
	}
	if a.TriggeredAt.IsZero() {
		a.TriggeredAt = time.Now()
	}

	return pgx.NamedArgs{
		"booking_id":      a.BookingID,
		"user_id":         a.UserID,
		"hotel_name":      a.HotelName,
		"location":        a.Location,
		"provider":        a.Provider,
		"booked_price":    a.BookedPrice,
		"current_price":   a.CurrentPrice,
		"delta_amount":    a.DeltaAmount,
		"delta_percent":   a.DeltaPercent,
		"currency":        a.Currency,
		"threshold_label": a.ThresholdLabel,
		"status":          string(a.Status),
		"severity":        string(a.Severity),
		"triggered_at":    a.TriggeredAt,
		"notes":           a.Notes,
	}
}

// GetAlert retrieves an alert by ID.
func (s *PostgresStore) GetAlert(ctx context.Context, id string) (*domain.PriceAlert, error) {
	a := &domain.PriceAlert{}
	err := scanAlert(s.pool.QueryRow(ctx, queryGetAlert, id), a)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting alert: %w", err)
	}
	return a, nil
}

// ListAlerts queries alerts with optional filters, returning results and
// the total count.
func (s *PostgresStore) ListAlerts(
	ctx context.Context,
	q *AlertQuery,
) ([]domain.PriceAlert, int, error) {
	dataSQL, countSQL, args := q.ToSQL()

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting alerts: %w", err)
	}

	alerts, err := s.queryAlerts(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// LatestAlertForBooking returns the most recently triggered alert for a booking.
func (s *PostgresStore) LatestAlertForBooking(ctx context.Context, bookingID string) (*domain.PriceAlert, error) {
	a := &domain.PriceAlert{}
	err := scanAlert(s.pool.QueryRow(ctx, queryLatestAlertForBooking, bookingID), a)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("alerts for booking %s: %w", bookingID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest alert: %w", err)
	}
	return a, nil
}

// UpdateAlertStatus moves a new alert to actioned or dismissed. Alerts that
// have already left the new state return ErrInvalidTransition.
func (s *PostgresStore) UpdateAlertStatus(
	ctx context.Context,
	id string,
	status domain.AlertStatus,
	actionedAt time.Time,
) error {
	tag, err := s.pool.Exec(ctx, queryUpdateAlertStatus, id, string(status), actionedAt)
	if err != nil {
		return fmt.Errorf("updating alert status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := s.GetAlert(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("alert %s -> %s: %w", id, status, ErrInvalidTransition)
}

// ListAlertsOlderThan returns alerts in the given statuses triggered before cutoff.
func (s *PostgresStore) ListAlertsOlderThan(
	ctx context.Context,
	statuses []domain.AlertStatus,
	cutoff time.Time,
) ([]domain.PriceAlert, error) {
	return s.queryAlerts(ctx, queryListAlertsOlderThan, statusStrings(statuses), cutoff)
}

// DeleteAlertsOlderThan deletes alerts in the given statuses triggered before
// cutoff and returns how many were removed.
func (s *PostgresStore) DeleteAlertsOlderThan(
	ctx context.Context,
	statuses []domain.AlertStatus,
	cutoff time.Time,
) (int, error) {
	tag, err := s.pool.Exec(ctx, queryDeleteAlertsOlderThan, statusStrings(statuses), cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting old alerts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListUndigestedAlerts returns new, un-notified alerts for users whose
// delivery frequency matches.
func (s *PostgresStore) ListUndigestedAlerts(
	ctx context.Context,
	frequency domain.Frequency,
) ([]domain.PriceAlert, error) {
	return s.queryAlerts(ctx, queryListUndigestedAlerts, string(frequency))
}

// MarkAlertsNotified stamps notified_at on the given alerts.
func (s *PostgresStore) MarkAlertsNotified(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, queryMarkAlertsNotified, ids, at); err != nil {
		return fmt.Errorf("marking alerts notified: %w", err)
	}
	return nil
}

// GetUserContact returns the delivery addresses for a user.
func (s *PostgresStore) GetUserContact(ctx context.Context, userID string) (*domain.UserContact, error) {
	c := &domain.UserContact{}
	err := s.pool.QueryRow(ctx, queryGetUserContact, userID).Scan(&c.UserID, &c.Email, &c.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("contact for %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user contact: %w", err)
	}
	return c, nil
}

// InsertJobRun creates a new job_run row with status 'running' and returns its ID.
func (s *PostgresStore) InsertJobRun(ctx context.Context, jobName string) (string, error) {
	var id string
	if err := s.pool.QueryRow(ctx, queryInsertJobRun, jobName).Scan(&id); err != nil {
		return "", fmt.Errorf("inserting job run: %w", err)
	}
	return id, nil
}

// CompleteJobRun marks a job run as finished with the given status and metadata.
func (s *PostgresStore) CompleteJobRun(
	ctx context.Context,
	id string,
	status string,
	errText string,
	rowsAffected int,
) error {
	_, err := s.pool.Exec(ctx, queryCompleteJobRun, id, status, errText, rowsAffected)
	if err != nil {
		return fmt.Errorf("completing job run: %w", err)
	}
	return nil
}

// ListJobRuns returns the most recent runs for a specific job, newest first.
func (s *PostgresStore) ListJobRuns(
	ctx context.Context,
	jobName string,
	limit int,
) ([]domain.JobRun, error) {
	rows, err := s.pool.Query(ctx, queryListJobRuns, jobName, limit)
	if err != nil {
		return nil, fmt.Errorf("querying job runs: %w", err)
	}
	defer rows.Close()

	return scanJobRuns(rows)
}

// ListLatestJobRuns returns the single most recent run for each distinct job name.
func (s *PostgresStore) ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error) {
	rows, err := s.pool.Query(ctx, queryListLatestJobRuns)
	if err != nil {
		return nil, fmt.Errorf("querying latest job runs: %w", err)
	}
	defer rows.Close()

	return scanJobRuns(rows)
}

// RecoverStaleJobRuns marks any 'running' job rows older than olderThan as 'crashed',
// then deletes all rows older than 30 days. Returns the number of rows marked as crashed.
func (s *PostgresStore) RecoverStaleJobRuns(
	ctx context.Context,
	olderThan time.Duration,
) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	tag, err := s.pool.Exec(ctx, queryMarkStaleJobRunsCrashed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("marking stale job runs crashed: %w", err)
	}
	affected := int(tag.RowsAffected())

	if _, err := s.pool.Exec(ctx, queryDeleteOldJobRuns); err != nil {
		return affected, fmt.Errorf("deleting old job runs: %w", err)
	}

	return affected, nil
}

// AcquireSchedulerLock attempts to acquire a distributed lock for the given job.
// Returns true if the lock was acquired, false if another holder already owns it.
func (s *PostgresStore) AcquireSchedulerLock(
	ctx context.Context,
	jobName string,
	holder string,
	ttl time.Duration,
) (bool, error) {
	expiresAt := time.Now().Add(ttl)

	var gotName string
	err := s.pool.QueryRow(ctx, queryAcquireSchedulerLock, jobName, holder, expiresAt).Scan(&gotName)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil // held by another holder and not yet expired
	}
	if err != nil {
		return false, fmt.Errorf("acquiring scheduler lock: %w", err)
	}

	return true, nil
}

// ReleaseSchedulerLock deletes the lock row for the given job and holder.
func (s *PostgresStore) ReleaseSchedulerLock(
	ctx context.Context,
	jobName string,
	holder string,
) error {
	_, err := s.pool.Exec(ctx, queryReleaseSchedulerLock, jobName, holder)
	if err != nil {
		return fmt.Errorf("releasing scheduler lock: %w", err)
	}
	return nil
}

func (s *PostgresStore) queryBookings(
	ctx context.Context,
	query string,
	args ...any,
) ([]domain.Booking, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}

func (s *PostgresStore) queryAlerts(
	ctx context.Context,
	query string,
	args ...any,
) ([]domain.PriceAlert, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.PriceAlert
	for rows.Next() {
		var a domain.PriceAlert
		if err := scanAlert(rows, &a); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// scanJobRuns scans rows from a job_runs query into a slice.
func scanJobRuns(rows pgx.Rows) ([]domain.JobRun, error) {
	var runs []domain.JobRun
	for rows.Next() {
		var r domain.JobRun
		if err := rows.Scan(
			&r.ID, &r.JobName, &r.StartedAt, &r.CompletedAt,
			&r.Status, &r.ErrorText, &r.RowsAffected,
		); err != nil {
			return nil, fmt.Errorf("scanning job run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// scannable abstracts pgx.Row and pgx.Rows for reuse.
type scannable interface {
	Scan(dest ...any) error
}

func scanBooking(row scannable, b *domain.Booking) error {
	return row.Scan(
		&b.ID, &b.UserID, &b.HotelName, &b.Location, &b.CheckIn, &b.CheckOut,
		&b.Guests, &b.Currency, &b.ReferencePrice, &b.CurrentPrice,
		&b.PriceDropDetected, &b.PriceDropAmount, &b.Status, &b.LastChecked,
		&b.CreatedAt, &b.UpdatedAt,
	)
}

func scanAlert(row scannable, a *domain.PriceAlert) error {
	return row.Scan(
		&a.ID, &a.BookingID, &a.UserID, &a.HotelName, &a.Location, &a.Provider,
		&a.BookedPrice, &a.CurrentPrice, &a.DeltaAmount, &a.DeltaPercent, &a.Currency,
		&a.ThresholdLabel, &a.Status, &a.Severity, &a.TriggeredAt, &a.ActionedAt,
		&a.NotifiedAt, &a.Notes,
	)
}

func statusStrings(statuses []domain.AlertStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
