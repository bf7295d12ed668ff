package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiclient "github.com/donaldgifford/hotel-price-tracker/internal/api/client"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// fakeAPI records requests and answers from a route table keyed by
// "METHOD path".
type fakeAPI struct {
	mu     sync.Mutex
	routes map[string]any
	seen   []*http.Request
	bodies []map[string]any
}

func newFakeAPI(t *testing.T, routes map[string]any) (*fakeAPI, string) {
	t.Helper()
	f := &fakeAPI{routes: routes}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.seen = append(f.seen, r)
		f.bodies = append(f.bodies, body)
		resp, ok := f.routes[r.Method+" "+r.URL.Path]
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"not found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func (f *fakeAPI) last() (*http.Request, map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[len(f.seen)-1], f.bodies[len(f.bodies)-1]
}

// run executes hpt with args against server. The root command and viper are
// package globals, so these tests do not run in parallel.
func run(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--server", server, "--output", "table", "--user", ""}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func sampleBooking() domain.Booking {
	drop := decimal.NewFromInt(30)
	return domain.Booking{
		ID:                "b1",
		UserID:            "user-1",
		HotelName:         "Harbour View",
		Location:          "Lisbon",
		CheckIn:           time.Date(2026, 11, 1, 15, 0, 0, 0, time.UTC),
		CheckOut:          time.Date(2026, 11, 4, 11, 0, 0, 0, time.UTC),
		Currency:          "EUR",
		ReferencePrice:    decimal.NewFromInt(200),
		CurrentPrice:      decimal.NewFromInt(170),
		PriceDropDetected: true,
		PriceDropAmount:   &drop,
		Status:            domain.BookingActive,
	}
}

func TestBookingsList(t *testing.T) {
	api, url := newFakeAPI(t, map[string]any{
		"GET /api/v1/bookings": []domain.Booking{sampleBooking()},
	})

	out, err := run(t, url, "bookings", "list", "--user", "user-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Harbour View")
	assert.Contains(t, out, "200.00 EUR")
	assert.Contains(t, out, "30.00")

	req, _ := api.last()
	assert.Equal(t, "user-1", req.URL.Query().Get("user_id"))
}

func TestBookingsList_JSON(t *testing.T) {
	_, url := newFakeAPI(t, map[string]any{
		"GET /api/v1/bookings": []domain.Booking{sampleBooking()},
	})

	out, err := run(t, url, "bookings", "list", "--output", "json")
	require.NoError(t, err)

	var got []domain.Booking
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].ID)
}

func TestBookingsAdd(t *testing.T) {
	api, url := newFakeAPI(t, map[string]any{
		"POST /api/v1/bookings": sampleBooking(),
	})

	out, err := run(t, url, "bookings", "add", "--user", "user-1",
		"--hotel", "Harbour View", "--location", "Lisbon",
		"--check-in", "2026-11-01", "--check-out", "2026-11-04",
		"--price", "200", "--currency", "EUR")
	require.NoError(t, err)
	assert.Contains(t, out, "Booking tracked: Harbour View (b1)")

	_, body := api.last()
	assert.Equal(t, "200", body["reference_price"])
	assert.Equal(t, "2026-11-01T00:00:00Z", body["check_in"])
}

func TestBuildNewBooking_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		checkIn string
		price   string
		wantErr string
	}{
		{name: "missing price", checkIn: "2026-11-01", wantErr: "are required"},
		{name: "bad date", checkIn: "11/01/2026", price: "200", wantErr: "parsing --check-in"},
		{name: "bad price", checkIn: "2026-11-01", price: "lots", wantErr: "parsing --price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := buildNewBooking("user-1", "Harbour View", "", tt.checkIn, "2026-11-04", tt.price, "EUR", 0)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBookingsPause(t *testing.T) {
	paused := sampleBooking()
	paused.Status = domain.BookingPaused
	api, url := newFakeAPI(t, map[string]any{
		"PUT /api/v1/bookings/b1/status": paused,
	})

	out, err := run(t, url, "bookings", "pause", "b1")
	require.NoError(t, err)
	assert.Equal(t, "Booking b1 is now paused.\n", out)

	_, body := api.last()
	assert.Equal(t, "paused", body["status"])
}

func TestBookingsShow_NotFound(t *testing.T) {
	_, url := newFakeAPI(t, map[string]any{})

	_, err := run(t, url, "bookings", "show", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestAlertsList(t *testing.T) {
	api, url := newFakeAPI(t, map[string]any{
		"GET /api/v1/alerts": map[string]any{
			"alerts": []domain.PriceAlert{{
				ID:           "a1",
				HotelName:    "Harbour View",
				BookedPrice:  decimal.NewFromInt(200),
				CurrentPrice: decimal.NewFromInt(170),
				DeltaAmount:  decimal.NewFromInt(30),
				DeltaPercent: decimal.NewFromInt(15),
				Severity:     domain.SeverityHigh,
				Status:       domain.AlertNew,
				TriggeredAt:  time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
			}},
			"total":  3,
			"limit":  1,
			"offset": 0,
		},
	})

	out, err := run(t, url, "alerts", "list", "--status", "new", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "30.00 (15.0%)")
	assert.Contains(t, out, "Showing 1 of 3.")

	req, _ := api.last()
	assert.Equal(t, "new", req.URL.Query().Get("status"))
	assert.Equal(t, "1", req.URL.Query().Get("limit"))
}

func TestAlertsDismiss(t *testing.T) {
	api, url := newFakeAPI(t, map[string]any{
		"POST /api/v1/alerts/a1/dismiss": domain.PriceAlert{ID: "a1", Status: domain.AlertDismissed},
	})

	out, err := run(t, url, "alerts", "dismiss", "a1")
	require.NoError(t, err)
	assert.Contains(t, out, "dismissed")

	req, _ := api.last()
	assert.Equal(t, http.MethodPost, req.Method)
}

func TestSettingsSet_OnlyChangedFlags(t *testing.T) {
	api, url := newFakeAPI(t, map[string]any{
		"PUT /api/v1/users/user-1/settings": domain.DefaultAlertSetting("user-1"),
	})

	_, err := run(t, url, "settings", "set", "--user", "user-1",
		"--min-percent", "7.5", "--sms=true", "--quiet-start", "")
	require.NoError(t, err)

	_, body := api.last()
	assert.Equal(t, map[string]any{
		"min_drop_percent":  "7.5",
		"sms_enabled":       true,
		"quiet_hours_start": "",
	}, body)
}

func TestSettingsShow_RequiresUser(t *testing.T) {
	_, url := newFakeAPI(t, map[string]any{})

	_, err := run(t, url, "settings", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user is required")
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		args []string
		resp map[string]any
		want string
	}{
		{
			name: "cycle",
			resp: map[string]any{"status": "completed", "alerts_created": 2},
			want: "Check cycle complete: 2 alerts created.\n",
		},
		{
			name: "async",
			args: []string{"--async"},
			resp: map[string]any{"status": "queued", "request_id": "req-1"},
			want: "Check queued: req-1\n",
		},
		{
			name: "single booking",
			args: []string{"--booking", "b1", "--force"},
			resp: map[string]any{"status": "completed", "result": map[string]any{"booking_id": "b1", "outcome": "duplicate"}},
			want: "Booking b1: duplicate\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, url := newFakeAPI(t, map[string]any{"POST /api/v1/checks": tt.resp})
			// Reset flags left over from previous cases.
			args := append([]string{"check", "--async=false", "--force=false", "--booking", ""}, tt.args...)
			out, err := run(t, url, args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestJobsHistory(t *testing.T) {
	rows := 4
	api, url := newFakeAPI(t, map[string]any{
		"GET /api/v1/jobs/price_check": []domain.JobRun{{
			JobName:      "price_check",
			Status:       "succeeded",
			StartedAt:    time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
			RowsAffected: &rows,
		}},
	})

	out, err := run(t, url, "jobs", "history", "price_check", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "2026-10-01 12:00:00")

	req, _ := api.last()
	assert.Equal(t, "5", req.URL.Query().Get("limit"))
}

func TestJobsList(t *testing.T) {
	next := time.Date(2026, 10, 1, 13, 0, 0, 0, time.UTC)
	_, url := newFakeAPI(t, map[string]any{
		"GET /api/v1/jobs": []domain.JobStatus{
			{
				Name:      "price_check",
				Scheduled: true,
				NextRun:   &next,
				LastRun:   &domain.JobRun{JobName: "price_check", Status: "failed", StartedAt: next.Add(-time.Hour)},
			},
			{Name: "alert_cleanup", Scheduled: true},
		},
	})

	out, err := run(t, url, "jobs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NEXT RUN")
	assert.Contains(t, out, "2026-10-01 13:00:00")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "alert_cleanup")
}

func TestPrintQuota(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, printQuota(&buf, &quotaFixture))
	assert.Contains(t, buf.String(), "unlimited")
	assert.NotContains(t, buf.String(), "Remaining")
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "The Gra...", truncate("The Grand Budapest", 10))
}

var quotaFixture = apiclient.Quota{DailyLimit: 0, DailyUsed: 12, Remaining: -1}
