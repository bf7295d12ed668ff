// Package handlers implements the Huma operations for the hotel-price-tracker
// API. Each handler depends on the narrowest interface it needs so tests can
// swap in fakes or the in-memory store.
package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/hotel-price-tracker/internal/store"
)

// StatusResponse is a generic status response body.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// storeError maps store sentinels onto HTTP status codes. Anything else is
// reported as a 500 prefixed with msg.
func storeError(msg string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return huma.Error404NotFound(msg + ": " + err.Error())
	case errors.Is(err, store.ErrInvalidTransition):
		return huma.Error409Conflict(msg + ": " + err.Error())
	default:
		return huma.Error500InternalServerError(msg + ": " + err.Error())
	}
}
