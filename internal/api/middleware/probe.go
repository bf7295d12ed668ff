// Package middleware provides Echo middleware for the hotel-price-tracker API.
package middleware

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/donaldgifford/hotel-price-tracker/internal/metrics"
)

// probePaths are hit by orchestrators and scrapers many times a minute.
// They are kept out of request metrics and quiet in the request log.
var probePaths = map[string]prometheus.Gauge{
	"/healthz": metrics.HealthzUp,
	"/readyz":  metrics.ReadyzUp,
	"/metrics": nil,
}

func isProbe(path string) bool {
	_, ok := probePaths[path]
	return ok
}

func succeeded(status int) bool {
	return status >= 200 && status < 300
}
