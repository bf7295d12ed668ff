package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/hotel-price-tracker/internal/api/handlers"
	"github.com/donaldgifford/hotel-price-tracker/internal/engine"
	"github.com/donaldgifford/hotel-price-tracker/internal/store/storetest"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) RunCycle(ctx context.Context, target string) (int, error) {
	args := m.Called(ctx, target)
	return args.Int(0), args.Error(1)
}

func (m *mockRunner) CheckBooking(ctx context.Context, id string, force bool) (*engine.CheckResult, error) {
	args := m.Called(ctx, id, force)
	res, _ := args.Get(0).(*engine.CheckResult)
	return res, args.Error(1)
}

func (m *mockRunner) CleanupOldAlerts(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Enqueue(req engine.CheckRequest) (engine.CheckRequest, error) {
	args := m.Called(req)
	return args.Get(0).(engine.CheckRequest), args.Error(1)
}

type checkResponse struct {
	Status        string              `json:"status"`
	RequestID     string              `json:"request_id"`
	AlertsCreated int                 `json:"alerts_created"`
	Result        *engine.CheckResult `json:"result"`
}

func TestRunChecks_FullCycle(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	st.AddBooking(harbourView())
	cheap := harbourView()
	cheap.HotelName = "Casa Azul"
	cheap.ReferencePrice = decimal.NewFromInt(185) // a 5 EUR drop is under the default thresholds
	st.AddBooking(cheap)

	api := newAPI(t)
	handlers.RegisterCheckRoutes(api, handlers.NewCheckHandler(newTestMonitor(st, fixedSource("180")), nil))

	resp := api.Post("/api/v1/checks", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var got checkResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, 1, got.AlertsCreated)
	assert.Nil(t, got.Result)
	assert.Len(t, st.Alerts(), 1)
}

func TestRunChecks_SingleBooking(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	id := st.AddBooking(harbourView())

	api := newAPI(t)
	handlers.RegisterCheckRoutes(api, handlers.NewCheckHandler(newTestMonitor(st, fixedSource("180")), nil))

	resp := api.Post("/api/v1/checks", map[string]any{"booking_id": id})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var got checkResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, 1, got.AlertsCreated)
	require.NotNil(t, got.Result)
	assert.Equal(t, engine.OutcomeAlertCreated, got.Result.Outcome)
	assert.Equal(t, domain.SeverityMedium, got.Result.Alert.Severity)

	resp = api.Post("/api/v1/checks", map[string]any{"booking_id": "missing"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRunChecks_Async(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		queueErr   error
		nilQueue   bool
		wantStatus int
		wantBody   string
	}{
		{name: "queued", wantStatus: http.StatusAccepted, wantBody: `"request_id":"req-1"`},
		{name: "queue full", queueErr: engine.ErrQueueFull, wantStatus: http.StatusServiceUnavailable, wantBody: "queue is full"},
		{name: "async disabled", nilQueue: true, wantStatus: http.StatusServiceUnavailable, wantBody: "not enabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runner := &mockRunner{}
			var h *handlers.CheckHandler
			q := &mockQueue{}
			if tt.nilQueue {
				h = handlers.NewCheckHandler(runner, nil)
			} else {
				want := engine.CheckRequest{BookingID: "booking-1", Force: true}
				q.On("Enqueue", want).
					Return(engine.CheckRequest{ID: "req-1", BookingID: "booking-1", Force: true}, tt.queueErr).
					Once()
				h = handlers.NewCheckHandler(runner, q)
			}

			api := newAPI(t)
			handlers.RegisterCheckRoutes(api, h)

			resp := api.Post("/api/v1/checks", map[string]any{
				"booking_id": "booking-1",
				"force":      true,
				"async":      true,
			})
			require.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
			assert.Contains(t, resp.Body.String(), tt.wantBody)

			q.AssertExpectations(t)
			runner.AssertNotCalled(t, "RunCycle", mock.Anything, mock.Anything)
			runner.AssertNotCalled(t, "CheckBooking", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRunChecks_CycleError(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	runner.On("RunCycle", mock.Anything, "").Return(0, errors.New("listing active bookings: connection reset")).Once()

	api := newAPI(t)
	handlers.RegisterCheckRoutes(api, handlers.NewCheckHandler(runner, nil))

	resp := api.Post("/api/v1/checks", map[string]any{})
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, resp.Body.String(), "check cycle failed")
	runner.AssertExpectations(t)
}

func TestCleanup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		deleted    int
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "reports deleted", deleted: 7, wantStatus: http.StatusOK, wantBody: `"deleted":7`},
		{name: "store error", err: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantBody: "alert cleanup failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runner := &mockRunner{}
			runner.On("CleanupOldAlerts", mock.Anything).Return(tt.deleted, tt.err).Once()

			api := newAPI(t)
			handlers.RegisterCheckRoutes(api, handlers.NewCheckHandler(runner, nil))

			resp := api.Post("/api/v1/cleanup")
			require.Equal(t, tt.wantStatus, resp.Code)
			assert.Contains(t, resp.Body.String(), tt.wantBody)
			runner.AssertExpectations(t)
		})
	}
}
