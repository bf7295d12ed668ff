// Package cmd implements the CLI commands for hotel-price-tracker.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
	apiURL  string
)

var rootCmd = &cobra.Command{
	Use:   "hotel-price-tracker",
	Short: "Watch booked hotel stays for price drops",
	Long: "An API-first service that re-quotes active hotel bookings, detects price drops\n" +
		"against the booked price, and alerts travellers through their preferred channels.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().
		StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")

	rootCmd.AddCommand(versionCommand())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
