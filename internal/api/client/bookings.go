package client

import (
	"context"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/donaldgifford/hotel-price-tracker/internal/engine"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// NewBooking contains the fields the API accepts when tracking a booking.
type NewBooking struct {
	UserID         string          `json:"user_id"`
	HotelName      string          `json:"hotel_name"`
	Location       string          `json:"location,omitempty"`
	CheckIn        time.Time       `json:"check_in"`
	CheckOut       time.Time       `json:"check_out"`
	Guests         int             `json:"guests,omitempty"`
	Currency       string          `json:"currency"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
}

// ListBookings returns all bookings, or one user's when userID is set.
func (c *Client) ListBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	q := url.Values{}
	if userID != "" {
		q.Set("user_id", userID)
	}
	var bookings []domain.Booking
	if err := c.get(ctx, "/api/v1/bookings", q, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// GetBooking returns a single booking.
func (c *Client) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := c.get(ctx, "/api/v1/bookings/"+url.PathEscape(id), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBooking starts tracking a booking.
func (c *Client) CreateBooking(ctx context.Context, nb *NewBooking) (*domain.Booking, error) {
	var b domain.Booking
	if err := c.post(ctx, "/api/v1/bookings", nb, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// SetBookingStatus pauses, resumes or completes a booking.
func (c *Client) SetBookingStatus(
	ctx context.Context,
	id string,
	status domain.BookingStatus,
) (*domain.Booking, error) {
	var b domain.Booking
	body := map[string]domain.BookingStatus{"status": status}
	if err := c.put(ctx, "/api/v1/bookings/"+url.PathEscape(id)+"/status", body, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// CheckBooking runs a price check for one booking.
func (c *Client) CheckBooking(ctx context.Context, id string, force bool) (*engine.CheckResult, error) {
	path := "/api/v1/bookings/" + url.PathEscape(id) + "/check"
	if force {
		path += "?force=true"
	}
	var res engine.CheckResult
	if err := c.post(ctx, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
