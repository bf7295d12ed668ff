package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/hotel-price-tracker/internal/api/client"
)

func checkCmd() *cobra.Command {
	var (
		bookingID string
		force     bool
		async     bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Trigger a price check cycle on the server",
		Long: "Runs a price check cycle over all eligible bookings, or just one with --booking.\n" +
			"With --async the request is queued and the command returns immediately.",
		Example: `  hpt check
  hpt check --booking 7f1c... --force
  hpt check --async`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := newClient().RunChecks(context.Background(), &apiclient.CheckRequest{
				BookingID: bookingID,
				Force:     force,
				Async:     async,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput() {
				return writeJSON(out, resp)
			}
			switch {
			case resp.RequestID != "":
				fmt.Fprintf(out, "Check queued: %s\n", resp.RequestID)
			case resp.Result != nil:
				fmt.Fprintf(out, "Booking %s: %s\n", resp.Result.BookingID, resp.Result.Outcome)
			default:
				fmt.Fprintf(out, "Check cycle complete: %d alerts created.\n", resp.AlertsCreated)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&bookingID, "booking", "", "check only this booking")
	cmd.Flags().BoolVar(&force, "force", false, "ignore the check throttle")
	cmd.Flags().BoolVar(&async, "async", false, "queue the check and return")
	return cmd
}

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete alerts older than the retention period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := newClient().Cleanup(context.Background())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), map[string]int{"deleted": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired alerts.\n", n)
			return nil
		},
	}
}

func quotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show the quote provider call budget",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := newClient().GetQuota(context.Background())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), q)
			}
			return printQuota(cmd.OutOrStdout(), q)
		},
	}
}
