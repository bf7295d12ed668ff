package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/hotel-price-tracker/internal/api/client"
)

func settingsCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "settings",
		Short: "View and change a user's alert settings",
	}
	root.AddCommand(settingsShowCmd(), settingsSetCmd())
	return root
}

func requireUser() (string, error) {
	u := userID()
	if u == "" {
		return "", fmt.Errorf("--user is required")
	}
	return u, nil
}

func settingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show alert settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := requireUser()
			if err != nil {
				return err
			}
			s, err := newClient().GetSettings(context.Background(), u)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			return printSettings(cmd.OutOrStdout(), s)
		},
	}
}

func settingsSetCmd() *cobra.Command {
	var (
		minAmount, minPercent, frequency string
		quietStart, quietEnd, timezone   string
		email, push, sms                 bool
		excluded, included               []string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change alert settings; only the given flags are updated",
		Example: `  hpt settings set --user user-1 --min-amount 15 --min-percent 7.5
  hpt settings set --user user-1 --frequency daily --sms=false
  hpt settings set --user user-1 --quiet-start 22:00 --quiet-end 07:00 --timezone Europe/Lisbon`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := requireUser()
			if err != nil {
				return err
			}

			upd := &apiclient.SettingsUpdate{}
			flags := cmd.Flags()
			setString := func(name, v string, dst **string) {
				if flags.Changed(name) {
					*dst = &v
				}
			}
			setBool := func(name string, v bool, dst **bool) {
				if flags.Changed(name) {
					*dst = &v
				}
			}
			setString("min-amount", minAmount, &upd.MinDropAmount)
			setString("min-percent", minPercent, &upd.MinDropPercent)
			setString("frequency", frequency, &upd.Frequency)
			setString("quiet-start", quietStart, &upd.QuietHoursStart)
			setString("quiet-end", quietEnd, &upd.QuietHoursEnd)
			setString("timezone", timezone, &upd.Timezone)
			setBool("email", email, &upd.EmailEnabled)
			setBool("push", push, &upd.PushEnabled)
			setBool("sms", sms, &upd.SMSEnabled)
			if flags.Changed("exclude-provider") {
				upd.ExcludedProviders = excluded
			}
			if flags.Changed("include-location") {
				upd.IncludedLocations = included
			}

			s, err := newClient().UpdateSettings(context.Background(), u, upd)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			return printSettings(cmd.OutOrStdout(), s)
		},
	}

	f := cmd.Flags()
	f.StringVar(&minAmount, "min-amount", "", "minimum absolute drop")
	f.StringVar(&minPercent, "min-percent", "", "minimum drop percentage")
	f.StringVar(&frequency, "frequency", "", "immediate, daily or weekly")
	f.StringVar(&quietStart, "quiet-start", "", "quiet hours start (HH:MM, empty clears)")
	f.StringVar(&quietEnd, "quiet-end", "", "quiet hours end (HH:MM, empty clears)")
	f.StringVar(&timezone, "timezone", "", "IANA timezone for quiet hours")
	f.BoolVar(&email, "email", true, "deliver alerts by email")
	f.BoolVar(&push, "push", true, "deliver alerts by push")
	f.BoolVar(&sms, "sms", false, "deliver alerts by SMS")
	f.StringSliceVar(&excluded, "exclude-provider", nil, "providers whose quotes never alert")
	f.StringSliceVar(&included, "include-location", nil, "only alert for these locations")
	return cmd
}
