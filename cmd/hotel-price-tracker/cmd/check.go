package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/hotel-price-tracker/internal/api/client"
)

var (
	checkBookingID   string
	checkCleanupOnly bool
	checkAsync       bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a price check cycle",
	Long: "Runs one price check cycle in process against the configured database and\n" +
		"quote service. --booking checks one active booking regardless of when it was\n" +
		"last checked or how close its check-in is. With --async the request is queued\n" +
		"on a running server instead.",
	Example: `  hotel-price-tracker check
  hotel-price-tracker check --booking 7f1c...
  hotel-price-tracker check --async --api-url http://tracker:8080`,
	RunE: runCheck,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete alerts older than the retention period",
	RunE: func(cmd *cobra.Command, _ []string) error {
		checkCleanupOnly = true
		return runCheck(cmd, nil)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd, cleanupCmd)

	checkCmd.Flags().StringVar(&checkBookingID, "booking", "", "check only this booking")
	checkCmd.Flags().BoolVar(&checkCleanupOnly, "cleanup-only", false, "only delete expired alerts")
	checkCmd.Flags().BoolVar(&checkAsync, "async", false, "queue the check on the API server")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if checkAsync {
		return queueRemote(ctx, out, apiclient.New(apiURL), currentCheckOptions())
	}

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	return runLocal(ctx, out, rt.monitor, currentCheckOptions())
}

type checkOptions struct {
	bookingID   string
	cleanupOnly bool
}

func currentCheckOptions() checkOptions {
	return checkOptions{bookingID: checkBookingID, cleanupOnly: checkCleanupOnly}
}

// checker is the part of the monitor the check command drives.
type checker interface {
	RunCycle(ctx context.Context, targetBookingID string) (int, error)
	CleanupOldAlerts(ctx context.Context) (int, error)
}

func runLocal(ctx context.Context, out io.Writer, m checker, opts checkOptions) error {
	if opts.cleanupOnly {
		n, err := m.CleanupOldAlerts(ctx)
		if err != nil {
			return fmt.Errorf("cleaning up alerts: %w", err)
		}
		fmt.Fprintf(out, "Deleted %d expired alerts.\n", n)
		return nil
	}

	n, err := m.RunCycle(ctx, opts.bookingID)
	if err != nil {
		if opts.bookingID != "" {
			return fmt.Errorf("checking booking %s: %w", opts.bookingID, err)
		}
		return fmt.Errorf("running check cycle: %w", err)
	}
	if opts.bookingID != "" {
		fmt.Fprintf(out, "Booking %s checked: %d alerts created.\n", opts.bookingID, n)
		return nil
	}
	fmt.Fprintf(out, "Check cycle complete: %d alerts created.\n", n)
	return nil
}

func queueRemote(ctx context.Context, out io.Writer, c *apiclient.Client, opts checkOptions) error {
	if opts.cleanupOnly {
		n, err := c.Cleanup(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d expired alerts.\n", n)
		return nil
	}

	resp, err := c.RunChecks(ctx, &apiclient.CheckRequest{
		BookingID: opts.bookingID,
		Force:     opts.bookingID != "",
		Async:     true,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Check queued: %s\n", resp.RequestID)
	return nil
}
