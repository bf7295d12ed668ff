package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/hotel-price-tracker/internal/api/client"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

func alertsCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "alerts",
		Short: "Review price drop alerts",
	}
	root.AddCommand(
		alertsListCmd(),
		alertTransitionCmd("action", "Mark an alert as acted on", (*apiclient.Client).ActionAlert),
		alertTransitionCmd("dismiss", "Dismiss an alert", (*apiclient.Client).DismissAlert),
	)
	return root
}

func alertsListCmd() *cobra.Command {
	var (
		bookingID     string
		status        string
		limit, offset int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts, newest first",
		Example: `  hpt alerts list --user user-1 --status new
  hpt alerts list --booking 7f1c... --limit 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := newClient().ListAlerts(context.Background(), &apiclient.ListAlertsParams{
				UserID:    userID(),
				BookingID: bookingID,
				Status:    domain.AlertStatus(status),
				Limit:     limit,
				Offset:    offset,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput() {
				return writeJSON(out, page)
			}
			if len(page.Alerts) == 0 {
				fmt.Fprintln(out, "No alerts found.")
				return nil
			}
			if err := printAlertsTable(out, page.Alerts); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nShowing %d of %d.\n", len(page.Alerts), page.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&bookingID, "booking", "", "only alerts for this booking")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (new, actioned, dismissed)")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (server default 50)")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func alertTransitionCmd(
	use, short string,
	call func(*apiclient.Client, context.Context, string) (*domain.PriceAlert, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := call(newClient(), context.Background(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), a)
			}
			return printAlertDetail(cmd.OutOrStdout(), a)
		},
	}
}
