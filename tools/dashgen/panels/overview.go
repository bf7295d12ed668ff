package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
)

func probeStat(title, description, metric string) *stat.PanelBuilder {
	return singleStat(title, description, metric, StatHeight, StatWidth).
		Thresholds(ThresholdsRedGreen(1)).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone).
		TextMode(common.BigValueTextModeValue)
}

// HealthzStat shows the liveness probe (1 = ok).
func HealthzStat() *stat.PanelBuilder {
	return probeStat("Healthz", "Liveness probe (1 = ok, 0 = failing)", `hpt_healthz_up`)
}

// ReadyzStat shows the readiness probe (0 means the database is unreachable).
func ReadyzStat() *stat.PanelBuilder {
	return probeStat("Readyz", "Readiness probe (1 = ready, 0 = database unreachable)", `hpt_readyz_up`)
}

// QueueDepthStat shows asynchronous checks waiting to run.
func QueueDepthStat() *stat.PanelBuilder {
	return singleStat("Check Queue", "Asynchronous check requests waiting to run",
		sel("hpt_check_queue_depth"), StatHeight, StatWidth).
		Thresholds(ThresholdsGreenYellowRed(16, 48)).
		GraphMode(common.BigValueGraphModeArea)
}

// UptimeStat shows time since the process started.
func UptimeStat() *stat.PanelBuilder {
	return singleStat("Uptime", "Time since process start",
		`time() - `+sel("process_start_time_seconds"), StatHeight, StatWidth).
		Unit("s").
		Thresholds(ThresholdsGreenOnly()).
		GraphMode(common.BigValueGraphModeNone)
}
