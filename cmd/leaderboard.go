package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/tallyboard/tally/core"
	"github.com/tallyboard/tally/schema"
)

// leaderboardCmd prints the ranked contributor table.
var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the contributor leaderboard.",
	Long: `Rank contributors by effective activity points within a time window.
Ties share a rank and the next distinct score skips past them.

Examples:
  # All-time top 10
  tally leaderboard

  # This month's top 25
  tally leaderboard --window monthly --limit 25

  # Leaders per activity type
  tally leaderboard --by-category`,
	Run: func(cmd *cobra.Command, _ []string) {
		window, err := core.ParseWindow(viper.GetString("window"))
		if err != nil {
			fatal("Cannot parse window", err)
		}
		filter := core.TimeFilter{Window: window}
		limit := viper.GetInt("limit")
		now := time.Now().UTC()

		db, err := openStore()
		if err != nil {
			fatal("Cannot open database", err)
		}
		defer func() { _ = db.Close() }()

		if viper.GetBool("by-category") {
			leaders, err := core.TopByActivityCategory(rootCtx, db, limit, filter, now)
			if err != nil {
				fatal("Cannot build category leaders", err)
			}
			writeCategoryLeaders(cmd, leaders)
			return
		}

		entries, err := core.TopContributors(rootCtx, db, limit, filter, now)
		if err != nil {
			fatal("Cannot build leaderboard", err)
		}
		if len(entries) == 0 {
			cmd.Printf("No activity in the %s window.\n", window)
			return
		}
		writeLeaderboard(cmd, entries, window)
	},
}

// rankLabel colors the podium ranks when colors are enabled.
func rankLabel(rank int) string {
	label := strconv.Itoa(rank)
	if !useColors() {
		return label
	}
	switch rank {
	case 1:
		return color.New(color.FgYellow, color.Bold).Sprint(label)
	case 2:
		return color.New(color.FgCyan).Sprint(label)
	case 3:
		return color.New(color.FgGreen).Sprint(label)
	default:
		return label
	}
}

func useColors() bool {
	switch strings.ToLower(viper.GetString("color")) {
	case "no", "false", "0":
		return false
	default:
		return true
	}
}

// outputWidth resolves the terminal width, honoring the override flag.
func outputWidth() int {
	if w := viper.GetInt("width"); w > 0 {
		return w
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 120
}

func displayName(c schema.Contributor) string {
	if c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	return c.Username
}

// summarizeBreakdown renders "10x pr_merged, 3x issue_opened", truncated
// to fit the remaining table width.
func summarizeBreakdown(breakdown []schema.ActivityBreakdown, maxWidth int) string {
	parts := make([]string, 0, len(breakdown))
	for _, b := range breakdown {
		parts = append(parts, fmt.Sprintf("%dx %s", b.Count, b.ActivityDefinition))
	}
	s := strings.Join(parts, ", ")
	if maxWidth > 3 && len(s) > maxWidth {
		s = s[:maxWidth-3] + "..."
	}
	return s
}

func writeLeaderboard(cmd *cobra.Command, entries []schema.LeaderboardEntry, window core.Window) {
	cmd.Printf("Leaderboard (%s)\n\n", window)

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	defer func() { _ = table.Close() }()

	table.Header([]string{"Rank", "Contributor", "Points", "Activities", "Breakdown"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	// Leave the fixed columns and separators their share of the width.
	breakdownWidth := outputWidth() - 60

	var data [][]string
	for _, e := range entries {
		data = append(data, []string{
			rankLabel(e.Rank),
			displayName(e.Contributor),
			strconv.Itoa(e.TotalPoints),
			strconv.Itoa(e.ActivityCount),
			summarizeBreakdown(e.ActivityBreakdown, breakdownWidth),
		})
	}
	if err := table.Bulk(data); err != nil {
		fatal("Cannot build table", err)
	}
	if err := table.Render(); err != nil {
		fatal("Cannot render table", err)
	}
}

func writeCategoryLeaders(cmd *cobra.Command, leaders []core.CategoryLeaders) {
	if len(leaders) == 0 {
		cmd.Println("No activity in the selected window.")
		return
	}
	for _, cat := range leaders {
		cmd.Printf("%s (%s)\n", cat.Definition.Name, cat.Definition.Slug)

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header([]string{"Rank", "Contributor", "Points", "Activities"})
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignRight
		})

		var data [][]string
		for i, row := range cat.Entries {
			data = append(data, []string{
				rankLabel(i + 1),
				row.Contributor,
				strconv.Itoa(row.TotalPoints),
				strconv.Itoa(row.ActivityCount),
			})
		}
		if err := table.Bulk(data); err != nil {
			fatal("Cannot build table", err)
		}
		if err := table.Render(); err != nil {
			fatal("Cannot render table", err)
		}
		_ = table.Close()
		cmd.Println()
	}
}
