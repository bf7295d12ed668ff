package main

import "errors"

// KnownMetrics is the set of metric names exported by hotel-price-tracker
// plus recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"hpt_http_request_duration_seconds": true,
	"hpt_http_requests_total":           true,

	// Health metrics.
	"hpt_healthz_up": true,
	"hpt_readyz_up":  true,

	// Check cycle metrics.
	"hpt_check_cycle_duration_seconds": true,
	"hpt_bookings_checked_total":       true,
	"hpt_bookings_skipped_total":       true,
	"hpt_check_errors_total":           true,
	"hpt_check_queue_depth":            true,

	// Quote provider metrics.
	"hpt_quote_requests_total":         true,
	"hpt_quote_unavailable_total":      true,
	"hpt_quote_daily_usage":            true,
	"hpt_quote_daily_limit_hits_total": true,

	// Alert and notification metrics.
	"hpt_alerts_created_total":        true,
	"hpt_alerts_suppressed_total":     true,
	"hpt_alerts_cleaned_total":        true,
	"hpt_notifications_sent_total":    true,
	"hpt_notification_failures_total": true,

	// Scheduler metrics.
	"hpt_scheduler_next_run_timestamp":   true,
	"hpt_scheduler_job_duration_seconds": true,

	// Recording rules.
	"hpt:http_requests:rate5m":         true,
	"hpt:http_errors:rate5m":           true,
	"hpt:bookings_checked:rate5m":      true,
	"hpt:check_errors:rate5m":          true,
	"hpt:quote_requests:rate5m":        true,
	"hpt:quote_unavailable:rate5m":     true,
	"hpt:alerts_created:rate5m":        true,
	"hpt:notification_failures:rate5m": true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
