package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const readyTimeout = 2 * time.Second

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides liveness and readiness endpoints. They are plain
// Echo routes so probes bypass the OpenAPI layer.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz returns 200 while the process is running.
func (*HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// Readyz returns 200 when the database answers a ping, 503 otherwise.
func (h *HealthHandler) Readyz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readyTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, StatusResponse{Status: "unavailable"})
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ready"})
}

// RegisterHealthRoutes mounts the probe endpoints on e.
func RegisterHealthRoutes(e *echo.Echo, h *HealthHandler) {
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
}
