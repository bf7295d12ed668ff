package handlers_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/shopspring/decimal"

	"github.com/donaldgifford/hotel-price-tracker/internal/engine"
	"github.com/donaldgifford/hotel-price-tracker/internal/notify"
	"github.com/donaldgifford/hotel-price-tracker/internal/quotes"
	"github.com/donaldgifford/hotel-price-tracker/internal/store/storetest"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

var testNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedSource quotes every booking at the same price.
func fixedSource(price string) quotes.Source {
	return quotes.SourceFunc(func(_ context.Context, req quotes.QuoteRequest) (*domain.Quote, error) {
		return &domain.Quote{
			Price:      decimal.RequireFromString(price),
			Currency:   req.Currency,
			Provider:   "RoomHub",
			ObservedAt: testNow,
		}, nil
	})
}

func newTestMonitor(st *storetest.Memory, src quotes.Source) *engine.Monitor {
	return engine.NewMonitor(st, src,
		notify.NewChannelDispatcher(notify.WithLogger(discardLogger())),
		engine.WithLogger(discardLogger()),
		engine.WithNowFunc(func() time.Time { return testNow }),
	)
}

func harbourView() domain.Booking {
	return domain.Booking{
		UserID:         "user-1",
		HotelName:      "Harbour View",
		Location:       "Lisbon",
		CheckIn:        testNow.AddDate(0, 1, 0),
		CheckOut:       testNow.AddDate(0, 1, 3),
		Guests:         2,
		Currency:       "EUR",
		ReferencePrice: decimal.NewFromInt(200),
	}
}

func newAPI(t *testing.T) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	return api
}

func ptr[T any](v T) *T { return &v }
