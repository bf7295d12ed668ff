package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/hotel-price-tracker/internal/engine"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// recorded captures what the fake server saw.
type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
}

// newServer answers every request with status and resp. The returned func
// reports the last request seen.
func newServer(t *testing.T, status int, resp any) (*httptest.Server, func() recorded) {
	t.Helper()

	var (
		mu   sync.Mutex
		last recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		mu.Lock()
		last = rec
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	return srv, func() recorded {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	t.Parallel()

	c := New("http://127.0.0.1:1") // nothing listening
	_, err := c.ListBookings(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API server not running")
}

func TestClient_APIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       any
		wantDetail string
		notFound   bool
	}{
		{
			name:       "problem json detail",
			status:     http.StatusNotFound,
			body:       map[string]any{"title": "Not Found", "status": 404, "detail": "getting booking: not found"},
			wantDetail: "getting booking: not found",
			notFound:   true,
		},
		{
			name:       "plain error body",
			status:     http.StatusInternalServerError,
			body:       map[string]string{"error": "internal server error"},
			wantDetail: "internal server error",
		},
		{
			name:       "conflict",
			status:     http.StatusConflict,
			body:       map[string]any{"detail": "invalid status transition"},
			wantDetail: "invalid status transition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, _ := newServer(t, tt.status, tt.body)
			_, err := New(srv.URL).GetBooking(context.Background(), "b1")
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
			assert.Equal(t, tt.notFound, IsNotFound(err))
		})
	}
}

func TestClient_Bookings(t *testing.T) {
	t.Parallel()

	t.Run("list with user filter", func(t *testing.T) {
		t.Parallel()

		srv, last := newServer(t, http.StatusOK, []domain.Booking{{ID: "b1", HotelName: "Harbour View"}})
		got, err := New(srv.URL).ListBookings(context.Background(), "user-1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		rec := last()
		assert.Equal(t, "/api/v1/bookings", rec.path)
		assert.Equal(t, "user_id=user-1", rec.query)
	})

	t.Run("create sends decimal as string", func(t *testing.T) {
		t.Parallel()

		srv, last := newServer(t, http.StatusCreated, domain.Booking{ID: "b1", Status: domain.BookingActive})
		b, err := New(srv.URL).CreateBooking(context.Background(), &NewBooking{
			UserID:         "user-1",
			HotelName:      "Harbour View",
			CheckIn:        time.Date(2026, 11, 1, 15, 0, 0, 0, time.UTC),
			CheckOut:       time.Date(2026, 11, 4, 11, 0, 0, 0, time.UTC),
			Currency:       "EUR",
			ReferencePrice: decimal.RequireFromString("200.50"),
		})
		require.NoError(t, err)
		assert.Equal(t, "b1", b.ID)
		rec := last()
		assert.Equal(t, http.MethodPost, rec.method)
		assert.Equal(t, "200.5", rec.body["reference_price"])
		assert.Equal(t, "2026-11-01T15:00:00Z", rec.body["check_in"])
	})

	t.Run("set status", func(t *testing.T) {
		t.Parallel()

		srv, last := newServer(t, http.StatusOK, domain.Booking{ID: "b1", Status: domain.BookingPaused})
		b, err := New(srv.URL).SetBookingStatus(context.Background(), "b1", domain.BookingPaused)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingPaused, b.Status)
		rec := last()
		assert.Equal(t, http.MethodPut, rec.method)
		assert.Equal(t, "/api/v1/bookings/b1/status", rec.path)
		assert.Equal(t, "paused", rec.body["status"])
	})

	t.Run("forced check", func(t *testing.T) {
		t.Parallel()

		srv, last := newServer(t, http.StatusOK, engine.CheckResult{BookingID: "b1", Outcome: engine.OutcomeNoDrop})
		res, err := New(srv.URL).CheckBooking(context.Background(), "b1", true)
		require.NoError(t, err)
		assert.Equal(t, engine.OutcomeNoDrop, res.Outcome)
		rec := last()
		assert.Equal(t, "/api/v1/bookings/b1/check", rec.path)
		assert.Equal(t, "force=true", rec.query)
	})
}

func TestClient_Alerts(t *testing.T) {
	t.Parallel()

	t.Run("list encodes filters", func(t *testing.T) {
		t.Parallel()

		srv, last := newServer(t, http.StatusOK, AlertsPage{Total: 0, Limit: 10})
		page, err := New(srv.URL).ListAlerts(context.Background(), &ListAlertsParams{
			UserID: "user-1",
			Status: domain.AlertNew,
			Limit:  10,
		})
		require.NoError(t, err)
		assert.Equal(t, 10, page.Limit)
		rec := last()
		assert.Equal(t, "limit=10&status=new&user_id=user-1", rec.query)
	})

	t.Run("action and dismiss", func(t *testing.T) {
		t.Parallel()

		for verb, call := range map[string]func(*Client) (*domain.PriceAlert, error){
			"action":  func(c *Client) (*domain.PriceAlert, error) { return c.ActionAlert(context.Background(), "a1") },
			"dismiss": func(c *Client) (*domain.PriceAlert, error) { return c.DismissAlert(context.Background(), "a1") },
		} {
			srv, last := newServer(t, http.StatusOK, domain.PriceAlert{ID: "a1"})
			a, err := call(New(srv.URL))
			require.NoError(t, err)
			assert.Equal(t, "a1", a.ID)
			rec := last()
			assert.Equal(t, http.MethodPost, rec.method)
			assert.Equal(t, "/api/v1/alerts/a1/"+verb, rec.path)
		}
	})
}

func TestClient_Settings(t *testing.T) {
	t.Parallel()

	srv, last := newServer(t, http.StatusOK, domain.AlertSetting{UserID: "user-1", Frequency: domain.FrequencyDaily})

	daily := "daily"
	s, err := New(srv.URL).UpdateSettings(context.Background(), "user-1", &SettingsUpdate{Frequency: &daily})
	require.NoError(t, err)
	assert.Equal(t, domain.FrequencyDaily, s.Frequency)
	rec := last()
	assert.Equal(t, "/api/v1/users/user-1/settings", rec.path)
	assert.Equal(t, map[string]any{"frequency": "daily"}, rec.body)
}

func TestClient_Checks(t *testing.T) {
	t.Parallel()

	t.Run("async check", func(t *testing.T) {
		t.Parallel()

		srv, last := newServer(t, http.StatusAccepted, CheckResponse{Status: "queued", RequestID: "req-1"})
		resp, err := New(srv.URL).RunChecks(context.Background(), &CheckRequest{Async: true})
		require.NoError(t, err)
		assert.Equal(t, "req-1", resp.RequestID)
		rec := last()
		assert.Equal(t, map[string]any{"async": true}, rec.body)
	})

	t.Run("cleanup", func(t *testing.T) {
		t.Parallel()

		srv, last := newServer(t, http.StatusOK, map[string]int{"deleted": 4})
		n, err := New(srv.URL).Cleanup(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		rec := last()
		assert.Equal(t, "/api/v1/cleanup", rec.path)
	})

	t.Run("quota", func(t *testing.T) {
		t.Parallel()

		srv, _ := newServer(t, http.StatusOK, Quota{DailyLimit: 100, DailyUsed: 3, Remaining: 97})
		q, err := New(srv.URL).GetQuota(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(97), q.Remaining)
	})
}

func TestClient_JobHistory(t *testing.T) {
	t.Parallel()

	srv, last := newServer(t, http.StatusOK, []domain.JobRun{{JobName: "price_check", Status: "succeeded"}})
	runs, err := New(srv.URL).GetJobHistory(context.Background(), "price_check", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	rec := last()
	assert.Equal(t, "/api/v1/jobs/price_check", rec.path)
	assert.Equal(t, "limit=5", rec.query)
}

func TestClient_ListJobs(t *testing.T) {
	t.Parallel()

	srv, last := newServer(t, http.StatusOK, []domain.JobStatus{{Name: "price_check", Scheduled: true}})
	jobs, err := New(srv.URL).ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.True(t, jobs[0].Scheduled)
	assert.Equal(t, "/api/v1/jobs", last().path)
}

func TestWithHTTPClient(t *testing.T) {
	t.Parallel()

	hc := &http.Client{Timeout: 5 * time.Second}
	c := New("http://localhost:8080/", WithHTTPClient(hc))
	assert.Same(t, hc, c.httpClient)
	assert.Equal(t, "http://localhost:8080", c.baseURL)
}
