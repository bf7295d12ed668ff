package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// QuoteRate shows provider calls against checks that got no usable quote.
func QuoteRate() *timeseries.PanelBuilder {
	return lineSeries("Quote Calls",
		"Quote provider calls per second, and checks with no usable quote by reason", ThirdWidth).
		WithTarget(PromQuery(`hpt:quote_requests:rate5m`, "calls/s", "A")).
		WithTarget(PromQuery(`hpt:quote_unavailable:rate5m`, "unavailable: {{reason}}", "B")).
		Unit("reqps")
}

// DailyUsage shows calls spent in the current 24h budget window.
func DailyUsage() *timeseries.PanelBuilder {
	return lineSeries("Daily Quote Usage", "Quote calls in the current 24h budget window", ThirdWidth).
		WithTarget(PromQuery(sel("hpt_quote_daily_usage"), "usage", "A"))
}

// LimitHits shows how often the daily budget refused a call.
func LimitHits() *stat.PanelBuilder {
	return singleStat("Budget Exhausted (24h)", "Quote calls refused because the daily budget was spent",
		`increase(`+sel("hpt_quote_daily_limit_hits_total")+`[24h])`, TSHeight, ThirdWidth).
		Thresholds(ThresholdsGreenYellowRed(1, 3)).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}
