// Package cmd defines the command-line interface for tally.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(dataCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the data subcommands to the parent data command
	dataCmd.AddCommand(dataClearCmd)
	dataCmd.AddCommand(dataDropCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().StringP("data-dir", "d", "./data", "Path to the data repo directory")
	rootCmd.PersistentFlags().String("db-backend", "sqlite", "Database backend: sqlite or postgresql")
	rootCmd.PersistentFlags().String("db-connect", "", "Database connection string (defaults to <data-dir>/.tally.db for sqlite)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fatal("Error binding root flags", err)
	}

	// Bind all flags of syncCmd to Viper
	syncCmd.Flags().Bool("skip-import", false, "Skip loading existing files into the database")
	syncCmd.Flags().Bool("skip-scrape", false, "Skip running plugins")
	syncCmd.Flags().Bool("skip-export", false, "Skip regenerating files from the database")
	if err := viper.BindPFlags(syncCmd.Flags()); err != nil {
		fatal("Error binding sync flags", err)
	}

	// Bind all flags of exportCmd to Viper
	exportCmd.Flags().Bool("parquet", false, "Also write the analytics parquet snapshot")
	if err := viper.BindPFlags(exportCmd.Flags()); err != nil {
		fatal("Error binding export flags", err)
	}

	// Bind all flags of leaderboardCmd to Viper
	leaderboardCmd.Flags().StringP("window", "w", "all-time", "Time window: all-time, yearly, monthly or weekly")
	leaderboardCmd.Flags().IntP("limit", "l", 10, "Number of rows to display")
	leaderboardCmd.Flags().Bool("by-category", false, "Show the top contributors per activity type instead")
	leaderboardCmd.Flags().String("color", "yes", "Enable colored output (yes/no)")
	leaderboardCmd.Flags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	if err := viper.BindPFlags(leaderboardCmd.Flags()); err != nil {
		fatal("Error binding leaderboard flags", err)
	}
}
