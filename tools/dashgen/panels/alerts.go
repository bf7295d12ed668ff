package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// AlertsRate shows alerts created per hour by severity next to drops held
// back by user thresholds.
func AlertsRate() *timeseries.PanelBuilder {
	return lineSeries("Price Alerts",
		"Alerts created per hour by severity, and drops below user thresholds", TSWidth).
		WithTarget(PromQuery(
			`sum by (severity) (increase(`+sel("hpt_alerts_created_total")+`[1h]))`,
			"{{severity}}", "A",
		)).
		WithTarget(PromQuery(`increase(`+sel("hpt_alerts_suppressed_total")+`[1h])`, "suppressed", "B")).
		Legend(TableLegend("sum", "max"))
}

// NotificationsSent shows deliveries per hour by channel.
func NotificationsSent() *timeseries.PanelBuilder {
	return lineSeries("Notifications Sent", "Delivered notifications per hour by channel", TSWidth).
		WithTarget(PromQuery(
			`sum by (channel) (increase(`+sel("hpt_notifications_sent_total")+`[1h]))`,
			"{{channel}}", "A",
		))
}

// NotificationFailures shows failed deliveries in the last day.
func NotificationFailures() *stat.PanelBuilder {
	return singleStat("Notification Failures (24h)", "Failed email, push and SMS deliveries in the last 24 hours",
		`sum(increase(`+sel("hpt_notification_failures_total")+`[24h]))`, TSHeight, TSWidth).
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}

// AlertsCleaned shows handled alerts removed by retention this week.
func AlertsCleaned() *stat.PanelBuilder {
	return singleStat("Alerts Cleaned (7d)", "Handled alerts deleted by the retention job",
		`increase(`+sel("hpt_alerts_cleaned_total")+`[7d])`, TSHeight, TSWidth).
		Thresholds(ThresholdsGreenOnly()).
		GraphMode(common.BigValueGraphModeNone)
}
