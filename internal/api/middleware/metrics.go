package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/donaldgifford/hotel-price-tracker/internal/metrics"
)

// Metrics returns Echo middleware that records request duration and count
// labelled by route template. Probe paths only flip their up gauge.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}

			if isProbe(route) {
				err := next(c)
				if gauge := probePaths[route]; gauge != nil {
					if succeeded(c.Response().Status) {
						gauge.Set(1)
					} else {
						gauge.Set(0)
					}
				}
				return err
			}

			start := time.Now()
			err := next(c)

			labels := []string{c.Request().Method, route, strconv.Itoa(c.Response().Status)}
			metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()

			return err
		}
	}
}
