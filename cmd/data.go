package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tallyboard/tally/internal/store"
)

// dataCmd groups destructive database maintenance commands.
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Manage the local database.",
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// dataClearCmd empties every table but keeps the schema.
var dataClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all rows while keeping the schema in place.",
	Long: `Delete every row from every table. The schema stays intact, so the
next import or sync starts from an empty but ready database. The files
in the data repo are not touched.`,
	Run: func(cmd *cobra.Command, _ []string) {
		db, err := openStore()
		if err != nil {
			fatal("Cannot open database", err)
		}
		defer func() { _ = db.Close() }()

		if err := store.ClearAllData(rootCtx, db); err != nil {
			fatal("Cannot clear data", err)
		}
		cmd.Println("All data cleared")
	},
}

// dataDropCmd removes the schema entirely.
var dataDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop every table, returning the database to a pristine state.",
	Run: func(cmd *cobra.Command, _ []string) {
		db, err := openStore()
		if err != nil {
			fatal("Cannot open database", err)
		}
		defer func() { _ = db.Close() }()

		if err := store.DropAllTables(rootCtx, db); err != nil {
			fatal("Cannot drop tables", err)
		}
		cmd.Println("All tables dropped")
	},
}
