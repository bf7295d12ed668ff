// Package quotes provides the price source used to re-quote bookings, an
// HTTP client for a quote service, and rate-limit and timeout decorators.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

var (
	// ErrUnavailable means the source had no quote for the request.
	ErrUnavailable = errors.New("quote unavailable")

	// ErrInvalidQuote means a quote was returned but cannot be trusted.
	ErrInvalidQuote = errors.New("invalid quote")
)

// QuoteRequest identifies the stay to be priced.
type QuoteRequest struct {
	HotelName string
	Location  string
	CheckIn   time.Time
	CheckOut  time.Time
	Currency  string
	Guests    int
}

// RequestFor builds the quote request for a booking.
func RequestFor(b *domain.Booking) QuoteRequest {
	return QuoteRequest{
		HotelName: b.HotelName,
		Location:  b.Location,
		CheckIn:   b.CheckIn,
		CheckOut:  b.CheckOut,
		Currency:  b.Currency,
		Guests:    b.Guests,
	}
}

// Source returns a current price for a stay.
type Source interface {
	GetQuote(ctx context.Context, req QuoteRequest) (*domain.Quote, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, req QuoteRequest) (*domain.Quote, error)

// GetQuote implements Source.
func (f SourceFunc) GetQuote(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	return f(ctx, req)
}

// Validate rejects quotes that cannot be compared to the reference price:
// non-positive prices, a currency other than the booking's, and prices
// below minRatio of the reference. A zero minRatio disables the last check.
func Validate(q *domain.Quote, currency string, reference decimal.Decimal, minRatio float64) error {
	if q == nil {
		return ErrUnavailable
	}
	if !q.Price.IsPositive() {
		return fmt.Errorf("%w: non-positive price %s", ErrInvalidQuote, q.Price)
	}
	if q.Currency != "" && currency != "" && !strings.EqualFold(q.Currency, currency) {
		return fmt.Errorf("%w: currency %s, booking is in %s", ErrInvalidQuote, q.Currency, currency)
	}
	if minRatio > 0 && reference.IsPositive() {
		floor := reference.Mul(decimal.NewFromFloat(minRatio))
		if q.Price.LessThan(floor) {
			return fmt.Errorf("%w: price %s below plausible floor %s", ErrInvalidQuote, q.Price, floor.Round(2))
		}
	}
	return nil
}

// UnavailableReason maps a quote error to a short metric label.
func UnavailableReason(err error) string {
	switch {
	case errors.Is(err, ErrDailyLimitReached):
		return "daily_limit"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrInvalidQuote):
		return "invalid"
	case errors.Is(err, ErrUnavailable):
		return "no_data"
	default:
		return "error"
	}
}
