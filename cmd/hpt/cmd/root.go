// Package cmd implements the hpt CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/hotel-price-tracker/internal/api/client"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "hpt",
		Short: "CLI client for Hotel Price Tracker",
		Long: "hpt is a command-line client for the Hotel Price Tracker API.\n" +
			"It lets you manage tracked bookings, review price alerts, tune\n" +
			"alert settings, and trigger price checks from the terminal.",
		SilenceUsage: true,
	}
)

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file (default $HOME/.hpt.yaml)")
	rootCmd.PersistentFlags().
		String("server", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().
		String("output", "table", "output format (table, json)")
	rootCmd.PersistentFlags().
		String("user", "", "user ID used by bookings, alerts and settings")

	cobra.CheckErr(viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server")))
	cobra.CheckErr(viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output")))
	cobra.CheckErr(viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user")))

	rootCmd.AddCommand(bookingsCmd())
	rootCmd.AddCommand(alertsCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(cleanupCmd())
	rootCmd.AddCommand(quotaCmd())
	rootCmd.AddCommand(jobsCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".hpt")
	}

	viper.SetEnvPrefix("HPT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("server"))
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}

// userID returns --user, falling back to HPT_USER or the config file.
func userID() string {
	return viper.GetString("user")
}
