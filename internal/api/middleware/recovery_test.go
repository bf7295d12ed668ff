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

func TestRecovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		method   string
		path     string
		handler  echo.HandlerFunc
		wantCode int
		wantLog  []string
	}{
		{
			name:   "no panic",
			method: http.MethodGet,
			path:   "/api/v1/bookings",
			handler: func(c echo.Context) error {
				return c.String(http.StatusOK, "ok")
			},
			wantCode: http.StatusOK,
		},
		{
			name:   "string panic",
			method: http.MethodGet,
			path:   "/api/v1/alerts",
			handler: func(echo.Context) error {
				panic("nil booking")
			},
			wantCode: http.StatusInternalServerError,
			wantLog:  []string{"panic recovered", "nil booking", "path=/api/v1/alerts"},
		},
		{
			name:   "non-string panic",
			method: http.MethodPost,
			path:   "/api/v1/checks",
			handler: func(echo.Context) error {
				panic(42)
			},
			wantCode: http.StatusInternalServerError,
			wantLog:  []string{"error=42", "method=POST"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(tt.method, tt.path, http.NoBody), rec)

			require.NoError(t, Recovery(logger)(tt.handler)(c))
			assert.Equal(t, tt.wantCode, rec.Code)

			if len(tt.wantLog) == 0 {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, rec.Body.String(), "internal server error")
			for _, s := range tt.wantLog {
				assert.Contains(t, buf.String(), s)
			}
		})
	}
}
