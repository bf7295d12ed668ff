package quotes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/donaldgifford/hotel-price-tracker/internal/metrics"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// ErrDailyLimitReached is returned when the daily quote budget is exhausted.
var ErrDailyLimitReached = errors.New("daily quote limit reached")

// RateLimiter controls quote call rate and daily usage. It uses a token
// bucket for per-second limiting and a rolling 24-hour window for the
// daily budget. A zero daily limit means unlimited.
type RateLimiter struct {
	limiter  *rate.Limiter
	daily    atomic.Int64
	maxDaily int64
	resetAt  time.Time
	mu       sync.Mutex
	nowFunc  func() time.Time
}

// RateLimiterOption configures the RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterNowFunc overrides the time function for testing.
func WithRateLimiterNowFunc(f func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		r.nowFunc = f
	}
}

// NewRateLimiter creates a rate limiter with the given per-second rate,
// burst size, and daily limit.
func NewRateLimiter(
	perSecond float64,
	burst int,
	maxDaily int64,
	opts ...RateLimiterOption,
) *RateLimiter {
	r := &RateLimiter{
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		maxDaily: maxDaily,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.resetAt = r.nowFunc().Add(24 * time.Hour)
	return r
}

// Wait blocks until a call is allowed or ctx is done. It returns
// ErrDailyLimitReached once the window's budget is spent. A call's slot in
// the daily budget is reserved before waiting and returned if the wait fails.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.reserve(); err != nil {
		return err
	}

	if err := r.limiter.Wait(ctx); err != nil {
		r.daily.Add(-1)
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

// reserve rolls the window over if it has expired and claims one call.
func (r *RateLimiter) reserve() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resetIfExpired()
	used := r.daily.Load()
	if r.maxDaily > 0 && used >= r.maxDaily {
		return fmt.Errorf("%w (%d/%d)", ErrDailyLimitReached, used, r.maxDaily)
	}
	r.daily.Add(1)
	return nil
}

// MaxDaily returns the configured daily budget; zero means unlimited.
func (r *RateLimiter) MaxDaily() int64 {
	return r.maxDaily
}

// DailyCount returns the current daily call count.
func (r *RateLimiter) DailyCount() int64 {
	return r.daily.Load()
}

// Remaining returns the calls left in the current window.
func (r *RateLimiter) Remaining() int64 {
	if r.maxDaily <= 0 {
		return -1
	}
	return max(r.maxDaily-r.daily.Load(), 0)
}

// ResetAt returns when the current 24-hour window expires.
func (r *RateLimiter) ResetAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetAt
}

// resetIfExpired must be called with mu held.
func (r *RateLimiter) resetIfExpired() {
	now := r.nowFunc()
	if now.After(r.resetAt) {
		r.daily.Store(0)
		r.resetAt = now.Add(24 * time.Hour)
	}
}

type rateLimitedSource struct {
	next    Source
	limiter *RateLimiter
}

// RateLimited wraps a source so every call first waits on the limiter.
// An exhausted daily budget surfaces as ErrUnavailable.
func RateLimited(next Source, limiter *RateLimiter) Source {
	return &rateLimitedSource{next: next, limiter: limiter}
}

func (s *rateLimitedSource) GetQuote(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		if errors.Is(err, ErrDailyLimitReached) {
			metrics.QuoteDailyLimitHits.Inc()
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}
	metrics.QuoteRequestsTotal.Inc()
	metrics.QuoteDailyUsage.Set(float64(s.limiter.DailyCount()))

	return s.next.GetQuote(ctx, req)
}

type timeoutSource struct {
	next    Source
	timeout time.Duration
}

// WithTimeout bounds each call to d. An expired call is reported as
// ErrUnavailable wrapping context.DeadlineExceeded. A non-positive d
// returns next unchanged.
func WithTimeout(next Source, d time.Duration) Source {
	if d <= 0 {
		return next
	}
	return &timeoutSource{next: next, timeout: d}
}

func (s *timeoutSource) GetQuote(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q, err := s.next.GetQuote(callCtx, req)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, context.DeadlineExceeded)
	}
	return q, err
}
