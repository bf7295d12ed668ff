// Package panels provides Grafana panel builders for hotel-price-tracker
// metrics. Every panel queries the ${datasource} template variable.
package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/cog"
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/prometheus"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// Job is the Prometheus scrape job name used in panel selectors.
const Job = "hotel-price-tracker"

// Grid sizes on Grafana's 24-column layout.
const (
	StatWidth  = 6
	StatHeight = 4

	TSWidth  = 12
	TSHeight = 8

	ThirdWidth = 8
)

// sel returns a selector for metric scoped to the service's scrape job.
func sel(metric string) string {
	return metric + `{job="` + Job + `"}`
}

// DSRef returns a datasource reference pointing at the ${datasource}
// template variable.
func DSRef() dashboard.DataSourceRef {
	return dashboard.DataSourceRef{
		Type: cog.ToPtr("prometheus"),
		Uid:  cog.ToPtr("${datasource}"),
	}
}

// PromQuery builds a Prometheus target.
func PromQuery(expr, legendFormat, refID string) *prometheus.DataqueryBuilder {
	return prometheus.NewDataqueryBuilder().
		Expr(expr).
		LegendFormat(legendFormat).
		RefId(refID)
}

// step is one threshold boundary: color applies from at upward.
type step struct {
	at    float64
	color string
}

func thresholds(base string, steps ...step) cog.Builder[dashboard.ThresholdsConfig] {
	out := []dashboard.Threshold{{Color: base}}
	for _, s := range steps {
		out = append(out, dashboard.Threshold{Value: cog.ToPtr(s.at), Color: s.color})
	}
	return dashboard.NewThresholdsConfigBuilder().
		Mode(dashboard.ThresholdsModeAbsolute).
		Steps(out)
}

// ThresholdsRedGreen is red below greenAbove.
func ThresholdsRedGreen(greenAbove float64) cog.Builder[dashboard.ThresholdsConfig] {
	return thresholds("red", step{greenAbove, "green"})
}

// ThresholdsGreenYellowRed is green, then yellow at yellow, red at red.
func ThresholdsGreenYellowRed(yellow, red float64) cog.Builder[dashboard.ThresholdsConfig] {
	return thresholds("green", step{yellow, "yellow"}, step{red, "red"})
}

// ThresholdsGreenOnly never changes color.
func ThresholdsGreenOnly() cog.Builder[dashboard.ThresholdsConfig] {
	return thresholds("green")
}

func colorMode(mode dashboard.FieldColorModeId) cog.Builder[dashboard.FieldColor] {
	return dashboard.NewFieldColorBuilder().Mode(mode)
}

// TableLegend shows the legend as a table under the graph with calcs as
// columns.
func TableLegend(calcs ...string) *common.VizLegendOptionsBuilder {
	return common.NewVizLegendOptionsBuilder().
		DisplayMode(common.LegendDisplayModeTable).
		Placement(common.LegendPlacementBottom).
		Calcs(calcs)
}

// MultiTooltip lists every series, largest first.
func MultiTooltip() *common.VizTooltipOptionsBuilder {
	return common.NewVizTooltipOptionsBuilder().
		Mode(common.TooltipDisplayModeMulti).
		Sort(common.SortOrderDescending)
}

// lineSeries is the base for every graph: palette colors, 2px lines with a
// light fill and a shared tooltip.
func lineSeries(title, description string, width uint32) *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title(title).
		Description(description).
		Datasource(DSRef()).
		Height(TSHeight).
		Span(width).
		FillOpacity(10).
		LineWidth(2).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(colorMode(dashboard.FieldColorModeIdPaletteClassic)).
		DrawStyle(common.GraphDrawStyleLine)
}

// singleStat is the base for every stat panel: one query, colored by
// thresholds.
func singleStat(title, description, expr string, height, width uint32) *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title(title).
		Description(description).
		Datasource(DSRef()).
		Height(height).
		Span(width).
		WithTarget(PromQuery(expr, "", "A")).
		ColorScheme(colorMode(dashboard.FieldColorModeIdThresholds))
}
