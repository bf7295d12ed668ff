package panels

import "github.com/grafana/grafana-foundation-sdk/go/timeseries"

// JobDuration shows p95 run time per scheduled job.
func JobDuration() *timeseries.PanelBuilder {
	return lineSeries("Job Duration (p95)", "95th percentile run time of scheduled jobs", TSWidth).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(`+sel("hpt_scheduler_job_duration_seconds_bucket")+`[1h])) by (le, job_name))`,
			"{{job_name}}", "A",
		)).
		Unit("s")
}

// NextRun shows seconds until each job fires.
func NextRun() *timeseries.PanelBuilder {
	return lineSeries("Next Run In", "Seconds until each scheduled job fires", TSWidth).
		WithTarget(PromQuery(sel("hpt_scheduler_next_run_timestamp")+` - time()`, "{{job_name}}", "A")).
		Unit("s")
}
