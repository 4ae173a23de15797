package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tallyboard/tally/core"
	"github.com/tallyboard/tally/internal/config"
	"github.com/tallyboard/tally/internal/exporter"
	"github.com/tallyboard/tally/internal/importer"
	"github.com/tallyboard/tally/internal/plugin"
	"github.com/tallyboard/tally/internal/rules"
)

// syncCmd runs the full pipeline: import, scrape, aggregate, export.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the full data pipeline against the data repo.",
	Long: `Run the complete synchronization pipeline:

1. Import the data repo's files into the database
2. Run the configured plugins to pull in new contributions
3. Recompute aggregates and evaluate badge rules
4. Export the database back out as files

Each phase can be skipped individually, so a cron job can scrape
without re-importing, or a local run can preview aggregation without
touching the files on disk.

Examples:
  # Full pipeline against ./data
  tally sync

  # Recompute and re-export without hitting plugin sources
  tally sync --skip-scrape

  # Scrape into the database only
  tally sync --skip-export`,
	Run: func(_ *cobra.Command, _ []string) {
		logger := newLogger()

		cfg, err := config.Load(dataDir())
		if err != nil {
			fatal("Cannot load config", err)
		}

		db, err := openStore()
		if err != nil {
			fatal("Cannot open database", err)
		}
		defer func() { _ = db.Close() }()

		if !viper.GetBool("skip-import") {
			if _, err := importer.ImportAll(rootCtx, db, dataDir(), logger); err != nil {
				fatal("Cannot import data", err)
			}
		}

		if !viper.GetBool("skip-scrape") {
			if err := plugin.Run(rootCtx, cfg, db, logger); err != nil {
				fatal("Plugin run failed", err)
			}
		}

		now := time.Now().UTC()
		if err := core.ComputeAggregates(rootCtx, db, logger, now); err != nil {
			fatal("Cannot compute aggregates", err)
		}
		if err := rules.Evaluate(rootCtx, db, rules.StandardRules(), logger, now); err != nil {
			fatal("Cannot evaluate badge rules", err)
		}

		if !viper.GetBool("skip-export") {
			if err := exporter.ExportAll(rootCtx, db, dataDir(), logger); err != nil {
				fatal("Cannot export data", err)
			}
		}
	},
}
