// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/hotel-price-tracker/tools/dashgen/panels"
)

// BuildOverview constructs the HPT Overview dashboard with all metric rows.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("HPT Overview").
		Uid("hpt-overview").
		Tags([]string{"hpt", "hotel-price-tracker"}).
		Refresh("30s").
		Time("now-24h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.QueueDepthStat()).
		WithPanel(panels.UptimeStat()))

	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	b.WithRow(dashboard.NewRowBuilder("Checks").
		WithPanel(panels.CheckOutcomes()).
		WithPanel(panels.SkipReasons()).
		WithPanel(panels.CycleDuration()).
		WithPanel(panels.CheckErrors()))

	b.WithRow(dashboard.NewRowBuilder("Quotes").
		WithPanel(panels.QuoteRate()).
		WithPanel(panels.DailyUsage()).
		WithPanel(panels.LimitHits()))

	b.WithRow(dashboard.NewRowBuilder("Alerts").
		WithPanel(panels.AlertsRate()).
		WithPanel(panels.NotificationsSent()).
		WithPanel(panels.NotificationFailures()).
		WithPanel(panels.AlertsCleaned()))

	b.WithRow(dashboard.NewRowBuilder("Scheduler").
		WithPanel(panels.JobDuration()).
		WithPanel(panels.NextRun()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
