package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tallyboard/tally/internal/exporter"
)

// exportCmd regenerates the data repo's files from the database.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Regenerate the data repo's files from the database.",
	Long: `Write the database back out as the data repo's file tree:
markdown contributor profiles, JSONL activity shards, and JSON
aggregate and badge catalogs. Exports fully rewrite their targets; an
unchanged database produces byte-identical files, so a git diff of the
data repo shows exactly what a sync changed.

With --parquet, a columnar snapshot of all activities is also written
under analytics/ for external analysis tools.`,
	Run: func(_ *cobra.Command, _ []string) {
		logger := newLogger()

		db, err := openStore()
		if err != nil {
			fatal("Cannot open database", err)
		}
		defer func() { _ = db.Close() }()

		if err := exporter.ExportAll(rootCtx, db, dataDir(), logger); err != nil {
			fatal("Cannot export data", err)
		}
		if viper.GetBool("parquet") {
			if _, err := exporter.ExportActivitiesParquet(rootCtx, db, dataDir(), logger); err != nil {
				fatal("Cannot export parquet snapshot", err)
			}
		}
	},
}
