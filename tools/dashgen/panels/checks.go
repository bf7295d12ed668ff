package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// CheckOutcomes shows booking checks per second by outcome.
func CheckOutcomes() *timeseries.PanelBuilder {
	return lineSeries("Check Outcomes", "Booking checks per second by outcome", TSWidth).
		WithTarget(PromQuery(`hpt:bookings_checked:rate5m`, "{{outcome}}", "A")).
		Unit("ops").
		Legend(TableLegend("mean", "max"))
}

// SkipReasons shows active bookings the eligibility policy passed over.
func SkipReasons() *timeseries.PanelBuilder {
	return lineSeries("Skipped Bookings",
		"Active bookings skipped per hour by reason (throttled, arrival cutoff)", TSWidth).
		WithTarget(PromQuery(
			`sum by (reason) (increase(`+sel("hpt_bookings_skipped_total")+`[1h]))`,
			"{{reason}}", "A",
		)).
		Legend(TableLegend("last", "max"))
}

// CycleDuration shows p50 and p95 check cycle duration.
func CycleDuration() *timeseries.PanelBuilder {
	bucket := sel("hpt_check_cycle_duration_seconds_bucket")
	return lineSeries("Cycle Duration", "Time to check every eligible booking", TSWidth).
		WithTarget(PromQuery(`histogram_quantile(0.50, sum(rate(`+bucket+`[15m])) by (le))`, "p50", "A")).
		WithTarget(PromQuery(`histogram_quantile(0.95, sum(rate(`+bucket+`[15m])) by (le))`, "p95", "B")).
		Unit("s")
}

// CheckErrors shows per-booking failures in the last hour.
func CheckErrors() *stat.PanelBuilder {
	return singleStat("Check Errors (1h)", "Bookings whose check failed on a store or lock error",
		`increase(`+sel("hpt_check_errors_total")+`[1h])`, TSHeight, TSWidth).
		Thresholds(ThresholdsGreenYellowRed(1, 10)).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}
