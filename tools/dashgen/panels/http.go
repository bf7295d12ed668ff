package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// RequestRate shows API requests per second in total and per route. Probe
// endpoints are not counted by the middleware.
func RequestRate() *timeseries.PanelBuilder {
	return lineSeries("Request Rate", "API requests per second by route", TSWidth).
		WithTarget(PromQuery(`hpt:http_requests:rate5m`, "total", "A")).
		WithTarget(PromQuery(
			`sum by (method, route) (rate(`+sel("hpt_http_requests_total")+`[5m]))`,
			"{{method}} {{route}}", "B",
		)).
		Unit("reqps").
		Legend(TableLegend("mean", "max"))
}

// LatencyPercentiles shows p50, p95 and p99 request latency.
func LatencyPercentiles() *timeseries.PanelBuilder {
	p := lineSeries("Latency Percentiles", "HTTP request duration percentiles", TSWidth).
		Unit("s").
		Legend(TableLegend("mean", "max"))
	for i, q := range []string{"0.50", "0.95", "0.99"} {
		p.WithTarget(PromQuery(
			fmt.Sprintf(`histogram_quantile(%s, sum(rate(%s[5m])) by (le))`,
				q, sel("hpt_http_request_duration_seconds_bucket")),
			"p"+q[2:], string(rune('A'+i)),
		))
	}
	return p
}

// ErrorRate shows 5xx responses as a percentage of all requests.
func ErrorRate() *timeseries.PanelBuilder {
	return lineSeries("Error Rate %", "HTTP 5xx responses as a percentage of all requests", TSWidth).
		WithTarget(PromQuery(`hpt:http_errors:rate5m / hpt:http_requests:rate5m * 100`, "error %", "A")).
		Unit("percent").
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(colorMode(dashboard.FieldColorModeIdThresholds))
}
