package cmd

import (
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/tallyboard/tally/core"
)

// statsCmd prints the full profile view for one contributor.
var statsCmd = &cobra.Command{
	Use:   "stats <username>",
	Short: "Show one contributor's profile, totals and ranks.",
	Long: `Display everything tracked for a single contributor: all-time
points and activity counts, the per-activity breakdown, their rank in
every standard time window, and their most recent activities.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		username := args[0]

		db, err := openStore()
		if err != nil {
			fatal("Cannot open database", err)
		}
		defer func() { _ = db.Close() }()

		stats, err := core.ContributorStats(rootCtx, db, username, time.Now().UTC())
		if err != nil {
			fatal("Cannot build contributor stats", err)
		}
		if stats == nil {
			cmd.Printf("No contributor named %q.\n", username)
			return
		}

		cmd.Printf("%s\n", displayName(stats.Contributor))
		if stats.Contributor.Title != nil && *stats.Contributor.Title != "" {
			cmd.Printf("%s\n", *stats.Contributor.Title)
		}
		cmd.Printf("\nTotal points:  %d\n", stats.TotalPoints)
		cmd.Printf("Activities:    %d\n", stats.ActivityCount)
		cmd.Printf("Ranks:         all-time #%d  yearly #%d  monthly #%d  weekly #%d\n\n",
			stats.Ranks.AllTime, stats.Ranks.Yearly, stats.Ranks.Monthly, stats.Ranks.Weekly)

		if len(stats.ActivityBreakdown) > 0 {
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header([]string{"Activity", "Count", "Points"})
			table.Configure(func(cfg *tablewriter.Config) {
				cfg.Row.Alignment.Global = tw.AlignRight
			})
			var data [][]string
			for _, b := range stats.ActivityBreakdown {
				data = append(data, []string{
					b.ActivityName,
					strconv.Itoa(b.Count),
					strconv.Itoa(b.TotalPoints),
				})
			}
			if err := table.Bulk(data); err != nil {
				fatal("Cannot build table", err)
			}
			if err := table.Render(); err != nil {
				fatal("Cannot render table", err)
			}
			_ = table.Close()
		}

		if n := len(stats.RecentActivities); n > 0 {
			latest := stats.RecentActivities[0]
			cmd.Printf("\nLatest activity: %s on %s\n", latest.ActivityDefinition, latest.OccuredAt)
		}
	},
}
