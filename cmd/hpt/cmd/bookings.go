package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/hotel-price-tracker/internal/api/client"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

func bookingsCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "bookings",
		Aliases: []string{"booking", "b"},
		Short:   "Manage tracked bookings",
	}

	root.AddCommand(
		bookingsListCmd(),
		bookingsShowCmd(),
		bookingsAddCmd(),
		bookingStatusCmd("pause", "Stop checking a booking", domain.BookingPaused),
		bookingStatusCmd("resume", "Resume checking a paused booking", domain.BookingActive),
		bookingStatusCmd("complete", "Mark a booking as completed", domain.BookingCompleted),
		bookingsCheckCmd(),
	)
	return root
}

func bookingsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List bookings",
		Example: `  hpt bookings list
  hpt bookings list --user user-1 --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bookings, err := newClient().ListBookings(context.Background(), userID())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput() {
				return writeJSON(out, bookings)
			}
			if len(bookings) == 0 {
				fmt.Fprintln(out, "No bookings found.")
				return nil
			}
			return printBookingsTable(out, bookings)
		},
	}
}

func bookingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show booking details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newClient().GetBooking(context.Background(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), b)
			}
			return printBookingDetail(cmd.OutOrStdout(), b)
		},
	}
}

func bookingsAddCmd() *cobra.Command {
	var (
		hotel, location, currency, price string
		checkIn, checkOut                string
		guests                           int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Track a new booking",
		Example: `  hpt bookings add --user user-1 --hotel "Harbour View" --location Lisbon \
    --check-in 2026-11-01 --check-out 2026-11-04 --price 200 --currency EUR`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			nb, err := buildNewBooking(userID(), hotel, location, checkIn, checkOut, price, currency, guests)
			if err != nil {
				return err
			}
			b, err := newClient().CreateBooking(context.Background(), nb)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), b)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Booking tracked: %s (%s)\n", b.HotelName, b.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&hotel, "hotel", "", "hotel name")
	cmd.Flags().StringVar(&location, "location", "", "hotel city or area")
	cmd.Flags().StringVar(&checkIn, "check-in", "", "check-in date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&checkOut, "check-out", "", "check-out date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&price, "price", "", "price paid for the stay")
	cmd.Flags().StringVar(&currency, "currency", "EUR", "ISO 4217 currency code")
	cmd.Flags().IntVar(&guests, "guests", 0, "number of guests")
	return cmd
}

func buildNewBooking(user, hotel, location, checkIn, checkOut, price, currency string, guests int) (*apiclient.NewBooking, error) {
	if user == "" || hotel == "" || checkIn == "" || checkOut == "" || price == "" {
		return nil, fmt.Errorf("--user, --hotel, --check-in, --check-out and --price are required")
	}
	in, err := time.Parse(time.DateOnly, checkIn)
	if err != nil {
		return nil, fmt.Errorf("parsing --check-in: %w", err)
	}
	out, err := time.Parse(time.DateOnly, checkOut)
	if err != nil {
		return nil, fmt.Errorf("parsing --check-out: %w", err)
	}
	ref, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parsing --price: %w", err)
	}
	return &apiclient.NewBooking{
		UserID:         user,
		HotelName:      hotel,
		Location:       location,
		CheckIn:        in,
		CheckOut:       out,
		Guests:         guests,
		Currency:       currency,
		ReferencePrice: ref,
	}, nil
}

func bookingStatusCmd(use, short string, to domain.BookingStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newClient().SetBookingStatus(context.Background(), args[0], to)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), b)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Booking %s is now %s.\n", b.ID, b.Status)
			return nil
		},
	}
}

func bookingsCheckCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "check <id>",
		Short: "Re-quote one booking now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := newClient().CheckBooking(context.Background(), args[0], force)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			msg := fmt.Sprintf("Booking %s: %s", res.BookingID, res.Outcome)
			if res.Reason != "" {
				msg += " (" + res.Reason + ")"
			}
			if res.Alert != nil {
				msg += fmt.Sprintf(", saving %s %s", res.Alert.DeltaAmount.StringFixed(2), res.Alert.Currency)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "ignore the check throttle")
	return cmd
}
