package rules

// AlertRules returns the operational alerts for hotel-price-tracker.
func AlertRules() PrometheusRule {
	return newPrometheusRule("hpt-alerts", RuleGroup{
		Name: "hpt-alerts",
		Rules: []Rule{
			{
				Alert:  "HptDown",
				Expr:   `absent(up{job="hotel-price-tracker"})`,
				For:    "2m",
				Labels: severity("critical"),
				Annotations: annotate(
					"Hotel Price Tracker is down",
					"The hotel-price-tracker job has been absent for more than 2 minutes.",
				),
			},
			{
				Alert:  "HptReadinessDown",
				Expr:   `hpt_readyz_up == 0`,
				For:    "2m",
				Labels: severity("critical"),
				Annotations: annotate(
					"Hotel Price Tracker readiness check is failing",
					"The readiness probe has reported not-ready for more than 2 minutes. The database is likely unreachable.",
				),
			},
			{
				Alert:  "HptHighErrorRate",
				Expr:   `hpt:http_errors:rate5m / hpt:http_requests:rate5m > 0.05`,
				For:    "5m",
				Labels: severity("warning"),
				Annotations: annotate(
					"High HTTP error rate on Hotel Price Tracker",
					"More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes.",
				),
			},
			{
				Alert:  "HptCheckErrors",
				Expr:   `hpt:check_errors:rate5m > 0`,
				For:    "15m",
				Labels: severity("warning"),
				Annotations: annotate(
					"Booking checks are failing",
					"Price checks have been failing on store or lock errors for 15 minutes.",
				),
			},
			{
				Alert:  "HptQuoteLimitReached",
				Expr:   `increase(hpt_quote_daily_limit_hits_total[1h]) > 0`,
				Labels: severity("warning"),
				Annotations: annotate(
					"Daily quote budget exhausted",
					"Quote calls are being refused because the daily budget is spent. Bookings are not being checked.",
				),
			},
			{
				Alert:  "HptQuoteUnavailableHigh",
				Expr:   `sum(hpt:quote_unavailable:rate5m) / hpt:quote_requests:rate5m > 0.5`,
				For:    "15m",
				Labels: severity("warning"),
				Annotations: annotate(
					"Most quotes are unavailable",
					"More than half of quote calls returned no usable price over the last 15 minutes.",
				),
			},
			{
				Alert:  "HptNotificationFailures",
				Expr:   `sum(increase(hpt_notification_failures_total[1h])) > 0`,
				Labels: severity("warning"),
				Annotations: annotate(
					"Notification delivery failures",
					"One or more alert notifications failed to send in the last hour.",
				),
			},
		},
	})
}

func severity(s string) map[string]string {
	return map[string]string{"severity": s}
}

func annotate(summary, description string) map[string]string {
	return map[string]string{
		"summary":     summary,
		"description": description,
	}
}
