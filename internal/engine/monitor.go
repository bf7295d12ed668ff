// Package engine runs price checks for tracked bookings, turns qualifying
// drops into alerts, and schedules the periodic jobs around them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/donaldgifford/hotel-price-tracker/internal/lock"
	"github.com/donaldgifford/hotel-price-tracker/internal/metrics"
	"github.com/donaldgifford/hotel-price-tracker/internal/notify"
	"github.com/donaldgifford/hotel-price-tracker/internal/quotes"
	"github.com/donaldgifford/hotel-price-tracker/internal/store"
	"github.com/donaldgifford/hotel-price-tracker/pkg/prefs"
	"github.com/donaldgifford/hotel-price-tracker/pkg/pricedrop"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

const (
	instrumentation = "github.com/donaldgifford/hotel-price-tracker/internal/engine"

	defaultConcurrency = 4
	defaultRetention   = 30 * 24 * time.Hour
	defaultLockTTL     = 2 * time.Minute
)

// cleanupStatuses are the alert statuses eligible for retention cleanup.
// New alerts are never deleted.
var cleanupStatuses = []domain.AlertStatus{domain.AlertActioned, domain.AlertDismissed}

// Outcome describes what a single booking check did.
type Outcome string

// Check outcomes.
const (
	OutcomeSkipped      Outcome = "skipped"
	OutcomeUnavailable  Outcome = "unavailable"
	OutcomeNoDrop       Outcome = "no_drop"
	OutcomeSuppressed   Outcome = "drop_suppressed"
	OutcomeAlertCreated Outcome = "alert_created"
	OutcomeDuplicate    Outcome = "duplicate"
)

// CheckResult is the result of checking one booking.
type CheckResult struct {
	BookingID string             `json:"booking_id"`
	Outcome   Outcome            `json:"outcome"`
	Reason    string             `json:"reason,omitempty"`
	Quote     *domain.Quote      `json:"quote,omitempty"`
	Alert     *domain.PriceAlert `json:"alert,omitempty"`
}

// Monitor checks bookings against fresh quotes and records price drops.
type Monitor struct {
	store      store.Store
	source     quotes.Source
	dispatcher notify.Dispatcher
	locker     lock.Locker
	policy     EligibilityPolicy
	log        *slog.Logger
	tracer     trace.Tracer
	nowFunc    func() time.Time

	concurrency       int
	retention         time.Duration
	cycleTimeout      time.Duration
	minPlausibleRatio float64
	lockTTL           time.Duration
}

// MonitorOption configures the Monitor.
type MonitorOption func(*Monitor)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.log = l
	}
}

// WithNowFunc overrides the clock.
func WithNowFunc(f func() time.Time) MonitorOption {
	return func(m *Monitor) {
		m.nowFunc = f
	}
}

// WithLocker sets the per-booking single-flight locker.
func WithLocker(l lock.Locker) MonitorOption {
	return func(m *Monitor) {
		m.locker = l
	}
}

// WithConcurrency sets how many bookings are checked at once.
func WithConcurrency(n int) MonitorOption {
	return func(m *Monitor) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithRetention sets how long actioned and dismissed alerts are kept.
func WithRetention(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.retention = d
		}
	}
}

// WithCycleTimeout bounds a full check cycle. Zero means no bound.
func WithCycleTimeout(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.cycleTimeout = d
	}
}

// WithMinPlausibleRatio rejects quotes cheaper than ratio times the
// reference price. Zero disables the check.
func WithMinPlausibleRatio(ratio float64) MonitorOption {
	return func(m *Monitor) {
		m.minPlausibleRatio = ratio
	}
}

// WithPolicy sets the eligibility policy.
func WithPolicy(p EligibilityPolicy) MonitorOption {
	return func(m *Monitor) {
		m.policy = p
	}
}

// WithLockTTL sets how long a per-booking lock may be held.
func WithLockTTL(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.lockTTL = d
		}
	}
}

// NewMonitor creates a Monitor with injected dependencies.
func NewMonitor(
	s store.Store,
	src quotes.Source,
	d notify.Dispatcher,
	opts ...MonitorOption,
) *Monitor {
	m := &Monitor{
		store:       s,
		source:      src,
		dispatcher:  d,
		locker:      lock.NewLocalLocker(),
		policy:      DefaultEligibilityPolicy(),
		log:         slog.Default(),
		tracer:      otel.Tracer(instrumentation),
		nowFunc:     time.Now,
		concurrency: defaultConcurrency,
		retention:   defaultRetention,
		lockTTL:     defaultLockTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Policy returns the eligibility policy in use.
func (m *Monitor) Policy() EligibilityPolicy {
	return m.policy
}

// RunCycle checks every eligible active booking and returns the number of
// alerts created. A non-empty targetBookingID checks only that booking,
// ignoring the throttle and the arrival cutoff; it must still be active.
// Per-booking failures are logged and do not stop the cycle.
func (m *Monitor) RunCycle(ctx context.Context, targetBookingID string) (int, error) {
	start := time.Now()
	defer func() {
		metrics.CheckCycleDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, span := m.tracer.Start(ctx, "engine.RunCycle")
	defer span.End()

	if m.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cycleTimeout)
		defer cancel()
	}

	if targetBookingID != "" {
		span.SetAttributes(attribute.String("booking.id", targetBookingID))
		res, err := m.check(ctx, targetBookingID, modeForced)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, err
		}
		if res.Outcome == OutcomeAlertCreated {
			return 1, nil
		}
		return 0, nil
	}

	bookings, err := m.store.ListActiveBookings(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("listing active bookings: %w", err)
	}

	now := m.nowFunc()
	candidates := make([]string, 0, len(bookings))
	for i := range bookings {
		if reason := m.policy.Reason(&bookings[i], now); reason != "" {
			metrics.BookingsSkippedTotal.WithLabelValues(reason).Inc()
			m.log.Debug("booking not eligible", "booking_id", bookings[i].ID, "reason", reason)
			continue
		}
		candidates = append(candidates, bookings[i].ID)
	}
	span.SetAttributes(
		attribute.Int("bookings.active", len(bookings)),
		attribute.Int("bookings.candidates", len(candidates)),
	)

	var created, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(m.concurrency)

	for _, id := range candidates {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := m.check(ctx, id, modeCycle)
			if err != nil {
				failed.Add(1)
				metrics.CheckErrorsTotal.Inc()
				m.log.Error("booking check failed", "booking_id", id, "error", err)
				return nil
			}
			if res.Outcome == OutcomeAlertCreated {
				created.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	n := int(created.Load())
	m.log.Info("check cycle complete",
		"active", len(bookings),
		"candidates", len(candidates),
		"alerts_created", n,
		"failed", failed.Load(),
		"duration", time.Since(start),
	)

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cycle stopped early")
		return n, fmt.Errorf("check cycle stopped early: %w", err)
	}
	return n, nil
}

// CheckBooking checks a single booking. The arrival cutoff never applies;
// force also bypasses the minimum check interval. A booking that is not
// active is reported as skipped.
func (m *Monitor) CheckBooking(ctx context.Context, id string, force bool) (*CheckResult, error) {
	mode := modeTargeted
	if force {
		mode = modeForced
	}
	return m.check(ctx, id, mode)
}

func (m *Monitor) check(ctx context.Context, id string, mode checkMode) (*CheckResult, error) {
	ctx, span := m.tracer.Start(ctx, "engine.CheckBooking",
		trace.WithAttributes(attribute.String("booking.id", id)),
	)
	defer span.End()

	res, err := m.checkLocked(ctx, id, mode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("check.outcome", string(res.Outcome)))
	if res.Outcome == OutcomeSkipped {
		metrics.BookingsSkippedTotal.WithLabelValues(res.Reason).Inc()
	} else {
		metrics.BookingsCheckedTotal.WithLabelValues(string(res.Outcome)).Inc()
	}
	return res, nil
}

// checkLocked runs the read, decide, quote and write sequence for one
// booking under its single-flight lock.
func (m *Monitor) checkLocked(ctx context.Context, id string, mode checkMode) (*CheckResult, error) {
	release, err := m.locker.TryLock(ctx, "booking:"+id, m.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			m.log.Debug("booking check already in flight", "booking_id", id)
			return &CheckResult{BookingID: id, Outcome: OutcomeSkipped, Reason: SkipInFlight}, nil
		}
		return nil, fmt.Errorf("locking booking %s: %w", id, err)
	}
	defer release()

	b, err := m.store.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting booking %s: %w", id, err)
	}

	now := m.nowFunc()
	if reason := m.policy.reason(b, now, mode); reason != "" {
		return &CheckResult{BookingID: id, Outcome: OutcomeSkipped, Reason: reason}, nil
	}

	q, err := m.quote(ctx, b)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("quoting booking %s: %w", id, ctx.Err())
		}
		reason := quotes.UnavailableReason(err)
		metrics.QuoteUnavailableTotal.WithLabelValues(reason).Inc()
		m.log.Warn("no usable quote", "booking_id", id, "reason", reason, "error", err)
		return &CheckResult{BookingID: id, Outcome: OutcomeUnavailable, Reason: reason}, nil
	}

	result := &CheckResult{BookingID: id, Quote: q}
	drop := pricedrop.Evaluate(b.ReferencePrice, q.Price)
	update := &store.BookingPriceUpdate{
		BookingID:    id,
		CurrentPrice: q.Price,
		LastChecked:  now,
	}

	if !drop.IsDrop {
		if err := m.store.UpdateBookingPrice(ctx, update); err != nil {
			return nil, fmt.Errorf("updating booking %s: %w", id, err)
		}
		result.Outcome = OutcomeNoDrop
		return result, nil
	}

	// The drop flag and amount change only when an alert is written.
	update.PriceDropDetected = b.PriceDropDetected
	update.PriceDropAmount = b.PriceDropAmount

	dup, err := m.alreadyAlerted(ctx, b, q)
	if err != nil {
		return nil, err
	}
	if dup {
		if err := m.store.UpdateBookingPrice(ctx, update); err != nil {
			return nil, fmt.Errorf("updating booking %s: %w", id, err)
		}
		result.Outcome = OutcomeDuplicate
		return result, nil
	}

	setting, err := m.store.EnsureAlertSetting(ctx, b.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading alert settings for %s: %w", b.UserID, err)
	}

	candidate := prefs.Candidate{
		DeltaAmount:  drop.DeltaAmount,
		DeltaPercent: drop.DeltaPercent,
		Provider:     q.Provider,
		Location:     b.Location,
	}
	if !prefs.ShouldNotify(setting, candidate, now) {
		if err := m.store.UpdateBookingPrice(ctx, update); err != nil {
			return nil, fmt.Errorf("updating booking %s: %w", id, err)
		}
		metrics.AlertsSuppressedTotal.Inc()
		m.log.Debug("price drop suppressed by preferences",
			"booking_id", id,
			"delta_amount", drop.DeltaAmount.String(),
			"delta_percent", drop.DeltaPercent.String(),
		)
		result.Outcome = OutcomeSuppressed
		return result, nil
	}

	amount := drop.DeltaAmount
	update.PriceDropDetected = true
	update.PriceDropAmount = &amount

	alert := newAlert(b, q, drop, now)
	if err := m.store.CreateAlertAndUpdateBooking(ctx, alert, update); err != nil {
		return nil, fmt.Errorf("recording alert for booking %s: %w", id, err)
	}
	metrics.AlertsCreatedTotal.WithLabelValues(string(alert.Severity)).Inc()

	m.log.Info("price drop alert created",
		"booking_id", id,
		"alert_id", alert.ID,
		"delta_amount", alert.DeltaAmount.String(),
		"delta_percent", alert.DeltaPercent.String(),
		"severity", alert.Severity,
	)

	if setting.Frequency == domain.FrequencyImmediate {
		m.deliver(ctx, setting, alert, now)
	}

	result.Outcome = OutcomeAlertCreated
	result.Alert = alert
	return result, nil
}

// alreadyAlerted reports whether an outstanding drop on b was already
// alerted at a price q does not beat.
func (m *Monitor) alreadyAlerted(ctx context.Context, b *domain.Booking, q *domain.Quote) (bool, error) {
	if !b.PriceDropDetected {
		return false, nil
	}
	last, err := m.store.LatestAlertForBooking(ctx, b.ID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("getting latest alert for booking %s: %w", b.ID, err)
	}
	return !q.Price.LessThan(last.CurrentPrice), nil
}

func (m *Monitor) quote(ctx context.Context, b *domain.Booking) (*domain.Quote, error) {
	q, err := m.source.GetQuote(ctx, quotes.RequestFor(b))
	if err != nil {
		return nil, err
	}
	if err := quotes.Validate(q, b.Currency, b.ReferencePrice, m.minPlausibleRatio); err != nil {
		return nil, err
	}
	return q, nil
}

func (m *Monitor) deliver(ctx context.Context, s *domain.AlertSetting, a *domain.PriceAlert, now time.Time) {
	channels := prefs.Channels(s)
	if len(channels) == 0 {
		return
	}
	m.dispatcher.Dispatch(ctx, a, channels)

	if err := m.store.MarkAlertsNotified(ctx, []string{a.ID}, now); err != nil {
		m.log.Error("marking alert notified", "alert_id", a.ID, "error", err)
		return
	}
	a.NotifiedAt = &now
}

func newAlert(b *domain.Booking, q *domain.Quote, d pricedrop.Result, now time.Time) *domain.PriceAlert {
	return &domain.PriceAlert{
		BookingID:      b.ID,
		UserID:         b.UserID,
		HotelName:      b.HotelName,
		Location:       b.Location,
		Provider:       q.Provider,
		BookedPrice:    b.ReferencePrice,
		CurrentPrice:   q.Price,
		DeltaAmount:    d.DeltaAmount,
		DeltaPercent:   d.DeltaPercent,
		Currency:       b.Currency,
		ThresholdLabel: pricedrop.ClassifyThreshold(d.DeltaAmount, d.DeltaPercent),
		Status:         domain.AlertNew,
		Severity:       pricedrop.ClassifySeverity(d.DeltaAmount, d.DeltaPercent),
		TriggeredAt:    now,
	}
}

// CleanupOldAlerts deletes actioned and dismissed alerts triggered before
// the retention window and returns how many were removed.
func (m *Monitor) CleanupOldAlerts(ctx context.Context) (int, error) {
	ctx, span := m.tracer.Start(ctx, "engine.CleanupOldAlerts")
	defer span.End()

	cutoff := m.nowFunc().Add(-m.retention)
	n, err := m.store.DeleteAlertsOlderThan(ctx, cleanupStatuses, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("deleting alerts older than %s: %w", cutoff.Format(time.RFC3339), err)
	}

	metrics.AlertsCleanedTotal.Add(float64(n))
	m.log.Info("alert cleanup complete", "deleted", n, "cutoff", cutoff)
	return n, nil
}

// MarkActioned moves a new alert to actioned.
func (m *Monitor) MarkActioned(ctx context.Context, id string) (*domain.PriceAlert, error) {
	return m.transition(ctx, id, domain.AlertActioned)
}

// Dismiss moves a new alert to dismissed.
func (m *Monitor) Dismiss(ctx context.Context, id string) (*domain.PriceAlert, error) {
	return m.transition(ctx, id, domain.AlertDismissed)
}

func (m *Monitor) transition(ctx context.Context, id string, to domain.AlertStatus) (*domain.PriceAlert, error) {
	if err := m.store.UpdateAlertStatus(ctx, id, to, m.nowFunc()); err != nil {
		return nil, fmt.Errorf("marking alert %s %s: %w", id, to, err)
	}
	a, err := m.store.GetAlert(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting alert %s: %w", id, err)
	}
	return a, nil
}

// SendDigests delivers pending alerts for users on the given digest
// frequency, one message per user and channel, and marks them notified.
// It returns the number of alerts delivered.
func (m *Monitor) SendDigests(ctx context.Context, freq domain.Frequency) (int, error) {
	if freq != domain.FrequencyDaily && freq != domain.FrequencyWeekly {
		return 0, fmt.Errorf("digest frequency must be daily or weekly, got %q", freq)
	}

	ctx, span := m.tracer.Start(ctx, "engine.SendDigests",
		trace.WithAttributes(attribute.String("digest.frequency", string(freq))),
	)
	defer span.End()

	pending, err := m.store.ListUndigestedAlerts(ctx, freq)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("listing undigested alerts: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	users, grouped := groupByUser(pending)
	now := m.nowFunc()
	sent := 0

	for _, userID := range users {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		alerts := grouped[userID]
		setting, err := m.store.EnsureAlertSetting(ctx, userID)
		if err != nil {
			m.log.Error("loading alert settings for digest", "user_id", userID, "error", err)
			continue
		}

		if channels := prefs.Channels(setting); len(channels) > 0 {
			m.dispatcher.DispatchDigest(ctx, userID, alerts, channels)
		}

		ids := make([]string, len(alerts))
		for i := range alerts {
			ids[i] = alerts[i].ID
		}
		if err := m.store.MarkAlertsNotified(ctx, ids, now); err != nil {
			m.log.Error("marking digest alerts notified", "user_id", userID, "error", err)
			continue
		}
		sent += len(alerts)
	}

	m.log.Info("digests sent", "frequency", freq, "users", len(users), "alerts", sent)
	return sent, nil
}

// groupByUser groups alerts by user, keeping first-seen user order.
func groupByUser(alerts []domain.PriceAlert) ([]string, map[string][]domain.PriceAlert) {
	var users []string
	grouped := make(map[string][]domain.PriceAlert)
	for _, a := range alerts {
		if _, ok := grouped[a.UserID]; !ok {
			users = append(users, a.UserID)
		}
		grouped[a.UserID] = append(grouped[a.UserID], a)
	}
	return users, grouped
}
