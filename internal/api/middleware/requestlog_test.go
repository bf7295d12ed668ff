package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		method        string
		path          string
		route         string
		status        int
		providedReqID string
		wantLogFields []string
		notLogFields  []string
	}{
		{
			name:   "logs GET request with generated ID",
			method: http.MethodGet,
			path:   "/api/v1/bookings",
			status: http.StatusOK,
			wantLogFields: []string{
				"method=GET",
				"path=/api/v1/bookings",
				"status=200",
				"duration_ms=",
				"request_id=",
			},
			notLogFields: []string{"route="},
		},
		{
			name:   "logs route template for parameterized paths",
			method: http.MethodPost,
			path:   "/api/v1/bookings/b-42/check",
			route:  "/api/v1/bookings/:id/check",
			status: http.StatusOK,
			wantLogFields: []string{
				"path=/api/v1/bookings/b-42/check",
				"route=/api/v1/bookings/:id/check",
			},
		},
		{
			name:   "logs POST request",
			method: http.MethodPost,
			path:   "/api/v1/bookings",
			status: http.StatusCreated,
			wantLogFields: []string{
				"method=POST",
				"status=201",
			},
		},
		{
			name:          "uses provided request ID",
			method:        http.MethodGet,
			path:          "/test",
			status:        http.StatusOK,
			providedReqID: "custom-req-id-123",
			wantLogFields: []string{
				"request_id=custom-req-id-123",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			e := echo.New()
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			if tt.providedReqID != "" {
				req.Header.Set(requestIDHeader, tt.providedReqID)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.route != "" {
				c.SetPath(tt.route)
			}

			handler := RequestLog(logger)(func(c echo.Context) error {
				return c.NoContent(tt.status)
			})

			err := handler(c)
			require.NoError(t, err)

			logOutput := buf.String()
			for _, field := range tt.wantLogFields {
				assert.Contains(t, logOutput, field)
			}
			for _, field := range tt.notLogFields {
				assert.NotContains(t, logOutput, field)
			}

			// Response should have the request ID header.
			respID := rec.Header().Get(requestIDHeader)
			assert.NotEmpty(t, respID)

			if tt.providedReqID != "" {
				assert.Equal(t, tt.providedReqID, respID)
			}

			// Context should have request_id.
			assert.NotEmpty(t, c.Get("request_id"))
		})
	}
}

func TestRequestLog_Probes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		statuses []int
		// wantLogged reports, per request, whether it should add log output.
		wantLogged []bool
	}{
		{
			name:       "healthz logs first success only",
			path:       "/healthz",
			statuses:   []int{http.StatusOK, http.StatusOK, http.StatusOK},
			wantLogged: []bool{true, false, false},
		},
		{
			name:       "readyz failures always logged",
			path:       "/readyz",
			statuses:   []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable},
			wantLogged: []bool{true, true},
		},
		{
			name:       "failure after suppressed successes",
			path:       "/readyz",
			statuses:   []int{http.StatusOK, http.StatusOK, http.StatusServiceUnavailable},
			wantLogged: []bool{true, false, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			e := echo.New()
			call := 0
			handler := RequestLog(logger)(func(c echo.Context) error {
				status := tt.statuses[call]
				call++
				return c.NoContent(status)
			})

			for i, want := range tt.wantLogged {
				before := buf.Len()
				rec := httptest.NewRecorder()
				req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
				require.NoError(t, handler(e.NewContext(req, rec)))

				if want {
					assert.Greater(t, buf.Len(), before, "request %d", i)
				} else {
					assert.Equal(t, before, buf.Len(), "request %d", i)
				}
			}

			if tt.statuses[len(tt.statuses)-1] != http.StatusOK {
				assert.Contains(t, buf.String(), "level=WARN")
				assert.Contains(t, buf.String(), "status=503")
			}
		})
	}
}

func TestRequestLog_NonHealthPathAlwaysLogged(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	e := echo.New()
	mw := RequestLog(logger)

	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// First request.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", http.NoBody)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))

	firstLen := buf.Len()
	assert.Positive(t, firstLen)

	// Second request: should ALSO be logged.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/bookings", http.NoBody)
	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))

	assert.Greater(t, buf.Len(), firstLen,
		"non-health paths should always be logged")
}
