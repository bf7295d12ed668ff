package rules

// RecordingRules returns the pre-computed rates used by the overview
// dashboard and the alert rules.
func RecordingRules() PrometheusRule {
	return newPrometheusRule("hpt-recording-rules", RuleGroup{
		Name: "hpt-recording",
		Rules: []Rule{
			{
				Record: "hpt:http_requests:rate5m",
				Expr:   `sum(rate(hpt_http_requests_total[5m]))`,
			},
			{
				Record: "hpt:http_errors:rate5m",
				Expr:   `sum(rate(hpt_http_requests_total{status=~"5.."}[5m]))`,
			},
			{
				Record: "hpt:bookings_checked:rate5m",
				Expr:   `sum by (outcome) (rate(hpt_bookings_checked_total[5m]))`,
			},
			{
				Record: "hpt:check_errors:rate5m",
				Expr:   `sum(rate(hpt_check_errors_total[5m]))`,
			},
			{
				Record: "hpt:quote_requests:rate5m",
				Expr:   `sum(rate(hpt_quote_requests_total[5m]))`,
			},
			{
				Record: "hpt:quote_unavailable:rate5m",
				Expr:   `sum by (reason) (rate(hpt_quote_unavailable_total[5m]))`,
			},
			{
				Record: "hpt:alerts_created:rate5m",
				Expr:   `sum by (severity) (rate(hpt_alerts_created_total[5m]))`,
			},
			{
				Record: "hpt:notification_failures:rate5m",
				Expr:   `sum by (channel) (rate(hpt_notification_failures_total[5m]))`,
			},
		},
	})
}
