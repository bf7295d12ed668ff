package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"github.com/donaldgifford/hotel-price-tracker/internal/engine"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// BookingStore defines the store methods required by the bookings handler.
type BookingStore interface {
	CreateBooking(ctx context.Context, b *domain.Booking) error
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	ListBookings(ctx context.Context, userID string) ([]domain.Booking, error)
	SetBookingStatus(ctx context.Context, id string, status domain.BookingStatus) error
}

// BookingChecker runs an on-demand price check for one booking.
type BookingChecker interface {
	CheckBooking(ctx context.Context, id string, force bool) (*engine.CheckResult, error)
}

// BookingHandler handles booking endpoints.
type BookingHandler struct {
	store   BookingStore
	checker BookingChecker
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(s BookingStore, c BookingChecker) *BookingHandler {
	return &BookingHandler{store: s, checker: c}
}

// --- Input/Output types ---

// ListBookingsInput filters bookings by owner.
type ListBookingsInput struct {
	UserID string `query:"user_id" doc:"Only return bookings owned by this user"`
}

// ListBookingsOutput is the response for listing bookings.
type ListBookingsOutput struct {
	Body []domain.Booking
}

// BookingIDInput identifies a single booking.
type BookingIDInput struct {
	ID string `path:"id" doc:"Booking ID"`
}

// BookingOutput is the response for a single booking.
type BookingOutput struct {
	Body *domain.Booking
}

// CreateBookingBody is the request body for creating a booking.
type CreateBookingBody struct {
	UserID         string    `json:"user_id"            minLength:"1" doc:"Owner of the booking"`
	HotelName      string    `json:"hotel_name"         minLength:"1" doc:"Hotel name as the quote provider knows it"`
	Location       string    `json:"location,omitempty"               doc:"City or area"`
	CheckIn        time.Time `json:"check_in"                         doc:"Arrival time (RFC 3339)"`
	CheckOut       time.Time `json:"check_out"                        doc:"Departure time (RFC 3339)"`
	Guests         int       `json:"guests,omitempty"   minimum:"0"   doc:"Number of guests"`
	Currency       string    `json:"currency"           minLength:"3" maxLength:"3" doc:"ISO 4217 currency code" example:"EUR"`
	ReferencePrice string    `json:"reference_price"                  doc:"Price paid, as a decimal string" example:"200.00"`
}

// CreateBookingInput is the request for creating a booking.
type CreateBookingInput struct {
	Body CreateBookingBody
}

// SetBookingStatusInput is the request for changing a booking's status.
type SetBookingStatusInput struct {
	ID   string `path:"id" doc:"Booking ID"`
	Body struct {
		Status domain.BookingStatus `json:"status" enum:"active,paused,completed" doc:"Target status"`
	}
}

// CheckBookingInput is the request for an on-demand booking check.
type CheckBookingInput struct {
	ID    string `path:"id"     doc:"Booking ID"`
	Force bool   `query:"force" doc:"Bypass the minimum check interval"`
}

// CheckBookingOutput is the response for an on-demand booking check.
type CheckBookingOutput struct {
	Body *engine.CheckResult
}

// --- Handlers ---

// ListBookings returns all bookings, or one user's bookings.
func (h *BookingHandler) ListBookings(
	ctx context.Context,
	input *ListBookingsInput,
) (*ListBookingsOutput, error) {
	bookings, err := h.store.ListBookings(ctx, input.UserID)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing bookings failed: " + err.Error())
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	return &ListBookingsOutput{Body: bookings}, nil
}

// GetBooking returns a single booking.
func (h *BookingHandler) GetBooking(ctx context.Context, input *BookingIDInput) (*BookingOutput, error) {
	b, err := h.store.GetBooking(ctx, input.ID)
	if err != nil {
		return nil, storeError("getting booking", err)
	}
	return &BookingOutput{Body: b}, nil
}

// CreateBooking stores a new active booking priced at its reference price.
func (h *BookingHandler) CreateBooking(ctx context.Context, input *CreateBookingInput) (*BookingOutput, error) {
	in := input.Body

	price, err := decimal.NewFromString(in.ReferencePrice)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("reference_price must be a decimal: " + err.Error())
	}

	b := &domain.Booking{
		UserID:         in.UserID,
		HotelName:      in.HotelName,
		Location:       in.Location,
		CheckIn:        in.CheckIn,
		CheckOut:       in.CheckOut,
		Guests:         in.Guests,
		Currency:       strings.ToUpper(in.Currency),
		ReferencePrice: price,
		CurrentPrice:   price,
		Status:         domain.BookingActive,
	}
	if err := b.Validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	if err := h.store.CreateBooking(ctx, b); err != nil {
		return nil, huma.Error500InternalServerError("creating booking failed: " + err.Error())
	}
	return &BookingOutput{Body: b}, nil
}

// SetBookingStatus pauses, resumes or completes a booking.
func (h *BookingHandler) SetBookingStatus(
	ctx context.Context,
	input *SetBookingStatusInput,
) (*BookingOutput, error) {
	if err := h.store.SetBookingStatus(ctx, input.ID, input.Body.Status); err != nil {
		return nil, storeError("setting booking status", err)
	}
	b, err := h.store.GetBooking(ctx, input.ID)
	if err != nil {
		return nil, storeError("getting booking", err)
	}
	return &BookingOutput{Body: b}, nil
}

// CheckBooking runs a price check for one booking and reports the outcome.
func (h *BookingHandler) CheckBooking(
	ctx context.Context,
	input *CheckBookingInput,
) (*CheckBookingOutput, error) {
	res, err := h.checker.CheckBooking(ctx, input.ID, input.Force)
	if err != nil {
		return nil, storeError("checking booking", err)
	}
	return &CheckBookingOutput{Body: res}, nil
}

// RegisterBookingRoutes registers booking endpoints with the Huma API.
func RegisterBookingRoutes(api huma.API, h *BookingHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-bookings",
		Method:      http.MethodGet,
		Path:        "/api/v1/bookings",
		Summary:     "List bookings",
		Description: "Returns tracked bookings ordered by check-in, optionally for a single user.",
		Tags:        []string{"bookings"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.ListBookings)

	huma.Register(api, huma.Operation{
		OperationID: "get-booking",
		Method:      http.MethodGet,
		Path:        "/api/v1/bookings/{id}",
		Summary:     "Get a booking",
		Tags:        []string{"bookings"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.GetBooking)

	huma.Register(api, huma.Operation{
		OperationID:   "create-booking",
		Method:        http.MethodPost,
		Path:          "/api/v1/bookings",
		Summary:       "Track a booking",
		Description:   "Stores a booking and starts monitoring its price.",
		Tags:          []string{"bookings"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}, h.CreateBooking)

	huma.Register(api, huma.Operation{
		OperationID: "set-booking-status",
		Method:      http.MethodPut,
		Path:        "/api/v1/bookings/{id}/status",
		Summary:     "Change booking status",
		Description: "Active and paused toggle; an active booking may be completed. Completed is final.",
		Tags:        []string{"bookings"},
		Errors: []int{
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, h.SetBookingStatus)

	huma.Register(api, huma.Operation{
		OperationID: "check-booking",
		Method:      http.MethodPost,
		Path:        "/api/v1/bookings/{id}/check",
		Summary:     "Check a booking now",
		Description: "Runs a price check for one booking. The arrival cutoff does not apply; " +
			"force also bypasses the minimum check interval.",
		Tags:   []string{"bookings"},
		Errors: []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.CheckBooking)
}
