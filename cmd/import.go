package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tallyboard/tally/internal/importer"
)

// importCmd loads the data repo's files into the database.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load the data repo's files into the database.",
	Long: `Read the data repo's markdown, JSONL and JSON files into the
database. Imports are idempotent: re-running against the same files
changes nothing. Missing directories mean zero records, and malformed
lines are skipped rather than aborting the run.`,
	Run: func(cmd *cobra.Command, _ []string) {
		logger := newLogger()

		db, err := openStore()
		if err != nil {
			fatal("Cannot open database", err)
		}
		defer func() { _ = db.Close() }()

		counts, err := importer.ImportAll(rootCtx, db, dataDir(), logger)
		if err != nil {
			fatal("Cannot import data", err)
		}
		cmd.Printf("Imported %d contributors, %d activities, %d badges\n",
			counts.Contributors, counts.Activities, counts.ContributorBadges)
	},
}
