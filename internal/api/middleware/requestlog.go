package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestLog returns Echo middleware that logs each request with structured
// fields and tags it with a request ID, reusing the caller's X-Request-ID
// when present.
//
// Probe paths log their first success and every failure; repeated
// successes are dropped. Failed probes log at WARN.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	var seen sync.Map // probe path -> struct{}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqID := c.Request().Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Set(requestIDKey, reqID)
			c.Response().Header().Set(requestIDHeader, reqID)

			err := next(c)

			path := c.Request().URL.Path
			status := c.Response().Status
			level := slog.LevelInfo

			if isProbe(path) {
				if !succeeded(status) {
					level = slog.LevelWarn
				} else if _, loaded := seen.LoadOrStore(path, struct{}{}); loaded {
					return err
				}
			}

			attrs := []any{
				"method", c.Request().Method,
				"path", path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", reqID,
			}
			if route := c.Path(); route != "" && route != path {
				attrs = append(attrs, "route", route)
			}
			log.Log(c.Request().Context(), level, "request", attrs...)

			return err
		}
	}
}
