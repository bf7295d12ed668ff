package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
)

// Recovery returns Echo middleware that turns a handler panic into a logged
// stack trace and a 500 response.
func Recovery(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				log.Error("panic recovered",
					"error", fmt.Sprint(r),
					"method", c.Request().Method,
					"path", c.Request().URL.Path,
					"request_id", c.Get(requestIDKey),
					"stack", string(debug.Stack()),
				)

				if c.Response().Committed {
					return
				}
				err = c.JSON(http.StatusInternalServerError, map[string]string{
					"error": "internal server error",
				})
			}()
			return next(c)
		}
	}
}
