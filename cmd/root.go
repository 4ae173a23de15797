package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tallyboard/tally/internal/logging"
	"github.com/tallyboard/tally/internal/store"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "tally",
	Short:              "Sync, rank and publish contributor leaderboard data.",
	Long:               `Tally pulls contribution data in through plugins, computes aggregates and badges, and publishes the results back to a file-based data repo.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig wires environment variables into Viper.
func initConfig() {
	viper.SetEnvPrefix("TALLY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("data-dir", "./data")
	viper.SetDefault("db-backend", string(store.SQLiteBackend))
	viper.SetDefault("db-connect", "")
}

// dataDir is the resolved data directory for the current invocation.
func dataDir() string {
	return viper.GetString("data-dir")
}

// newLogger builds the shared logger honoring the --debug flag.
func newLogger() *slog.Logger {
	return logging.New(viper.GetBool("debug"))
}

// openStore opens the configured database and brings its schema up to
// date. The sqlite default lives inside the data dir so a data repo is
// self-contained.
func openStore() (*store.SQLStore, error) {
	backend, err := store.ParseBackend(viper.GetString("db-backend"))
	if err != nil {
		return nil, err
	}
	connect := viper.GetString("db-connect")
	if backend == store.SQLiteBackend && connect == "" {
		connect = filepath.Join(dataDir(), ".tally.db")
	}
	s, err := store.Open(backend, connect)
	if err != nil {
		return nil, err
	}
	if err := s.InitializeSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// fatal logs an error to stderr and exits non-zero.
func fatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
