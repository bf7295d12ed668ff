package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func jobsCmd() *cobra.Command {
	jobsRoot := &cobra.Command{
		Use:   "jobs",
		Short: "View scheduler job history",
		Long: "View the execution history of scheduled jobs (price_check, alert_cleanup,\n" +
			"alert_digest_daily, alert_digest_weekly). Each run records status and errors.",
	}

	jobsRoot.AddCommand(
		jobsListCmd(),
		jobsHistoryCmd(),
	)

	return jobsRoot
}

func jobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scheduled jobs with next and last run",
		Example: `  hpt jobs list
  hpt jobs list --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobs, err := newClient().ListJobs(context.Background())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput() {
				return writeJSON(out, jobs)
			}
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs scheduled or run.")
				return nil
			}
			return printJobsTable(out, jobs)
		},
	}
}

func jobsHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <job_name>",
		Short: "Show run history for a job",
		Args:  cobra.ExactArgs(1),
		Example: `  hpt jobs history price_check
  hpt jobs history alert_cleanup --limit 5 --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := newClient().GetJobHistory(context.Background(), args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput() {
				return writeJSON(out, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintf(out, "No runs found for job %q.\n", args[0])
				return nil
			}
			return printJobRunsTable(out, runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of runs (server default 20)")
	return cmd
}
