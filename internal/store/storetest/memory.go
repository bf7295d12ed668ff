// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/donaldgifford/hotel-price-tracker/internal/store"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// Memory is a goroutine-safe in-memory implementation of store.Store.
// Error fields let tests inject failures for specific operations.
type Memory struct {
	mu       sync.Mutex
	seq      int
	bookings map[string]*domain.Booking
	settings map[string]*domain.AlertSetting
	alerts   map[string]*domain.PriceAlert
	contacts map[string]*domain.UserContact
	jobRuns  []domain.JobRun
	locks    map[string]schedulerLock

	// ListActiveErr is returned by ListActiveBookings when set.
	ListActiveErr error
	// UpdatePriceErr maps booking IDs to an error returned by UpdateBookingPrice.
	UpdatePriceErr map[string]error
	// CreateAlertErr is returned by CreateAlert when set.
	CreateAlertErr error
	// PingErr is returned by Ping when set.
	PingErr error

	// PriceUpdates counts UpdateBookingPrice calls per booking.
	PriceUpdates map[string]int
}

type schedulerLock struct {
	holder    string
	expiresAt time.Time
}

var _ store.Store = (*Memory)(nil)

// New returns an empty Memory store.
func New() *Memory {
	return &Memory{
		bookings:       make(map[string]*domain.Booking),
		settings:       make(map[string]*domain.AlertSetting),
		alerts:         make(map[string]*domain.PriceAlert),
		contacts:       make(map[string]*domain.UserContact),
		locks:          make(map[string]schedulerLock),
		UpdatePriceErr: make(map[string]error),
		PriceUpdates:   make(map[string]int),
	}
}

func (m *Memory) nextID(prefix string) string {
	m.seq++
	return prefix + "-" + strconv.Itoa(m.seq)
}

// AddBooking stores b as-is, assigning an ID when empty, and returns the ID.
func (m *Memory) AddBooking(b domain.Booking) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b.ID == "" {
		b.ID = m.nextID("booking")
	}
	if b.Status == "" {
		b.Status = domain.BookingActive
	}
	if b.CurrentPrice.IsZero() {
		b.CurrentPrice = b.ReferencePrice
	}
	m.bookings[b.ID] = &b
	return b.ID
}

// AddAlert stores a as-is, assigning an ID when empty, and returns the ID.
func (m *Memory) AddAlert(a domain.PriceAlert) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID == "" {
		a.ID = m.nextID("alert")
	}
	m.alerts[a.ID] = &a
	return a.ID
}

// AddContact stores delivery addresses for a user.
func (m *Memory) AddContact(c domain.UserContact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts[c.UserID] = &c
}

// Alerts returns a snapshot of all stored alerts ordered by trigger time.
func (m *Memory) Alerts() []domain.PriceAlert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.PriceAlert, 0, len(m.alerts))
	for _, a := range m.alerts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TriggeredAt.Before(out[j].TriggeredAt) })
	return out
}

// CreateBooking implements store.Store.
func (m *Memory) CreateBooking(_ context.Context, b *domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b.ID = m.nextID("booking")
	if b.Status == "" {
		b.Status = domain.BookingActive
	}
	b.CurrentPrice = b.ReferencePrice
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

// GetBooking implements store.Store.
func (m *Memory) GetBooking(_ context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, store.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

// ListBookings implements store.Store.
func (m *Memory) ListBookings(_ context.Context, userID string) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Booking
	for _, b := range m.bookings {
		if userID == "" || b.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out, nil
}

// ListActiveBookings implements store.Store.
func (m *Memory) ListActiveBookings(_ context.Context) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListActiveErr != nil {
		return nil, m.ListActiveErr
	}

	var out []domain.Booking
	for _, b := range m.bookings {
		if b.Status == domain.BookingActive {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateBookingPrice implements store.Store.
func (m *Memory) UpdateBookingPrice(_ context.Context, u *store.BookingPriceUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.priceTarget(u)
	if err != nil {
		return err
	}
	m.applyPrice(b, u)
	return nil
}

// priceTarget returns the booking u writes to, or the injected error.
func (m *Memory) priceTarget(u *store.BookingPriceUpdate) (*domain.Booking, error) {
	if err := m.UpdatePriceErr[u.BookingID]; err != nil {
		return nil, err
	}
	b, ok := m.bookings[u.BookingID]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", u.BookingID, store.ErrNotFound)
	}
	return b, nil
}

func (m *Memory) applyPrice(b *domain.Booking, u *store.BookingPriceUpdate) {
	last := u.LastChecked
	b.CurrentPrice = u.CurrentPrice
	b.LastChecked = &last
	b.PriceDropDetected = u.PriceDropDetected
	b.PriceDropAmount = u.PriceDropAmount
	b.UpdatedAt = time.Now()
	m.PriceUpdates[u.BookingID]++
}

// SetBookingStatus implements store.Store.
func (m *Memory) SetBookingStatus(_ context.Context, id string, status domain.BookingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return fmt.Errorf("booking %s: %w", id, store.ErrNotFound)
	}
	if !b.CanTransition(status) {
		return fmt.Errorf("booking %s %s -> %s: %w", id, b.Status, status, store.ErrInvalidTransition)
	}
	b.Status = status
	return nil
}

// GetAlertSetting implements store.Store.
func (m *Memory) GetAlertSetting(_ context.Context, userID string) (*domain.AlertSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.settings[userID]
	if !ok {
		return nil, fmt.Errorf("alert settings for %s: %w", userID, store.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

// UpsertAlertSetting implements store.Store.
func (m *Memory) UpsertAlertSetting(_ context.Context, s *domain.AlertSetting) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.settings[s.UserID]; ok {
		s.CreatedAt = existing.CreatedAt
	} else {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	cp := *s
	m.settings[s.UserID] = &cp
	return nil
}

// EnsureAlertSetting implements store.Store.
func (m *Memory) EnsureAlertSetting(_ context.Context, userID string) (*domain.AlertSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.settings[userID]
	if !ok {
		s = domain.DefaultAlertSetting(userID)
		s.CreatedAt = time.Now()
		s.UpdatedAt = s.CreatedAt
		m.settings[userID] = s
	}
	cp := *s
	return &cp, nil
}

// CreateAlert implements store.Store.
func (m *Memory) CreateAlert(_ context.Context, a *domain.PriceAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateAlertErr != nil {
		return m.CreateAlertErr
	}
	m.insertAlert(a)
	return nil
}

// CreateAlertAndUpdateBooking implements store.Store. Injected errors from
// either write leave both the alert table and the booking unchanged.
func (m *Memory) CreateAlertAndUpdateBooking(
	_ context.Context,
	a *domain.PriceAlert,
	u *store.BookingPriceUpdate,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateAlertErr != nil {
		return m.CreateAlertErr
	}
	b, err := m.priceTarget(u)
	if err != nil {
		return err
	}
	m.insertAlert(a)
	m.applyPrice(b, u)
	return nil
}

func (m *Memory) insertAlert(a *domain.PriceAlert) {
	a.ID = m.nextID("alert")
	if a.Status == "" {
		a.Status = domain.AlertNew
	}
	if a.TriggeredAt.IsZero() {
		a.TriggeredAt = time.Now()
	}
	cp := *a
	m.alerts[a.ID] = &cp
}

// GetAlert implements store.Store.
func (m *Memory) GetAlert(_ context.Context, id string) (*domain.PriceAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, store.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

// ListAlerts implements store.Store.
func (m *Memory) ListAlerts(_ context.Context, q *store.AlertQuery) ([]domain.PriceAlert, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []domain.PriceAlert
	for _, a := range m.alerts {
		if q.UserID != "" && a.UserID != q.UserID {
			continue
		}
		if q.BookingID != "" && a.BookingID != q.BookingID {
			continue
		}
		if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, a.Status) {
			continue
		}
		matched = append(matched, *a)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].TriggeredAt.After(matched[j].TriggeredAt) })

	total := len(matched)
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := min(max(q.Offset, 0), total)
	end := min(offset+limit, total)
	return matched[offset:end], total, nil
}

// LatestAlertForBooking implements store.Store.
func (m *Memory) LatestAlertForBooking(_ context.Context, bookingID string) (*domain.PriceAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *domain.PriceAlert
	for _, a := range m.alerts {
		if a.BookingID != bookingID {
			continue
		}
		if latest == nil || a.TriggeredAt.After(latest.TriggeredAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("alerts for booking %s: %w", bookingID, store.ErrNotFound)
	}
	cp := *latest
	return &cp, nil
}

// UpdateAlertStatus implements store.Store.
func (m *Memory) UpdateAlertStatus(
	_ context.Context,
	id string,
	status domain.AlertStatus,
	actionedAt time.Time,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alerts[id]
	if !ok {
		return fmt.Errorf("alert %s: %w", id, store.ErrNotFound)
	}
	if a.Status != domain.AlertNew {
		return fmt.Errorf("alert %s -> %s: %w", id, status, store.ErrInvalidTransition)
	}
	a.Status = status
	a.ActionedAt = &actionedAt
	return nil
}

// ListAlertsOlderThan implements store.Store.
func (m *Memory) ListAlertsOlderThan(
	_ context.Context,
	statuses []domain.AlertStatus,
	cutoff time.Time,
) ([]domain.PriceAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.PriceAlert
	for _, a := range m.alerts {
		if slices.Contains(statuses, a.Status) && a.TriggeredAt.Before(cutoff) {
			out = append(out, *a)
		}
	}
	return out, nil
}

// DeleteAlertsOlderThan implements store.Store.
func (m *Memory) DeleteAlertsOlderThan(
	_ context.Context,
	statuses []domain.AlertStatus,
	cutoff time.Time,
) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, a := range m.alerts {
		if slices.Contains(statuses, a.Status) && a.TriggeredAt.Before(cutoff) {
			delete(m.alerts, id)
			deleted++
		}
	}
	return deleted, nil
}

// ListUndigestedAlerts implements store.Store.
func (m *Memory) ListUndigestedAlerts(_ context.Context, frequency domain.Frequency) ([]domain.PriceAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.PriceAlert
	for _, a := range m.alerts {
		s, ok := m.settings[a.UserID]
		if !ok || s.Frequency != frequency {
			continue
		}
		if a.Status == domain.AlertNew && a.NotifiedAt == nil {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].TriggeredAt.Before(out[j].TriggeredAt)
	})
	return out, nil
}

// MarkAlertsNotified implements store.Store.
func (m *Memory) MarkAlertsNotified(_ context.Context, ids []string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		if a, ok := m.alerts[id]; ok {
			t := at
			a.NotifiedAt = &t
		}
	}
	return nil
}

// GetUserContact implements store.Store.
func (m *Memory) GetUserContact(_ context.Context, userID string) (*domain.UserContact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.contacts[userID]
	if !ok {
		return nil, fmt.Errorf("contact for %s: %w", userID, store.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

// InsertJobRun implements store.Store.
func (m *Memory) InsertJobRun(_ context.Context, jobName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID("run")
	m.jobRuns = append(m.jobRuns, domain.JobRun{
		ID:        id,
		JobName:   jobName,
		StartedAt: time.Now(),
		Status:    "running",
	})
	return id, nil
}

// CompleteJobRun implements store.Store.
func (m *Memory) CompleteJobRun(_ context.Context, id, status, errText string, rowsAffected int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.jobRuns {
		if m.jobRuns[i].ID == id {
			now := time.Now()
			rows := rowsAffected
			m.jobRuns[i].CompletedAt = &now
			m.jobRuns[i].Status = status
			m.jobRuns[i].ErrorText = errText
			m.jobRuns[i].RowsAffected = &rows
			return nil
		}
	}
	return fmt.Errorf("job run %s: %w", id, store.ErrNotFound)
}

// ListJobRuns implements store.Store.
func (m *Memory) ListJobRuns(_ context.Context, jobName string, limit int) ([]domain.JobRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.JobRun
	for i := len(m.jobRuns) - 1; i >= 0; i-- {
		if m.jobRuns[i].JobName == jobName {
			out = append(out, m.jobRuns[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ListLatestJobRuns implements store.Store.
func (m *Memory) ListLatestJobRuns(_ context.Context) ([]domain.JobRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	latest := make(map[string]domain.JobRun)
	for _, r := range m.jobRuns {
		latest[r.JobName] = r
	}
	out := make([]domain.JobRun, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobName < out[j].JobName })
	return out, nil
}

// RecoverStaleJobRuns implements store.Store.
func (m *Memory) RecoverStaleJobRuns(_ context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	n := 0
	for i := range m.jobRuns {
		if m.jobRuns[i].Status == "running" && m.jobRuns[i].StartedAt.Before(cutoff) {
			m.jobRuns[i].Status = "crashed"
			n++
		}
	}
	return n, nil
}

// AcquireSchedulerLock implements store.Store.
func (m *Memory) AcquireSchedulerLock(_ context.Context, jobName, holder string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if l, ok := m.locks[jobName]; ok && l.expiresAt.After(now) {
		return false, nil
	}
	m.locks[jobName] = schedulerLock{holder: holder, expiresAt: now.Add(ttl)}
	return true, nil
}

// ReleaseSchedulerLock implements store.Store.
func (m *Memory) ReleaseSchedulerLock(_ context.Context, jobName, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.locks[jobName]; ok && l.holder == holder {
		delete(m.locks, jobName)
	}
	return nil
}

// Migrate implements store.Store.
func (m *Memory) Migrate(context.Context) error { return nil }

// Ping implements store.Store.
func (m *Memory) Ping(context.Context) error { return m.PingErr }
