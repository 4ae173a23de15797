package core

import (
	"context"
	"time"

	"github.com/tallyboard/tally/internal/query"
	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

// recentActivityLimit caps the profile's activity feed.
const recentActivityLimit = 50

// ContributorRank returns the contributor's competition rank inside
// the filter's window, or 0 when they have no activity there.
func ContributorRank(ctx context.Context, db store.Store, username string, filter TimeFilter, now time.Time) (int, error) {
	entries, err := Leaderboard(ctx, db, filter, now)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.Contributor.Username == username {
			return e.Rank, nil
		}
	}
	return 0, nil
}

// ContributorStats assembles the full profile view: all-time totals
// and breakdown, the recent activity feed, and the contributor's rank
// in each standard window. Returns nil when the contributor does not
// exist.
func ContributorStats(ctx context.Context, db store.Store, username string, now time.Time) (*schema.ContributorStats, error) {
	contributor, err := query.ContributorByUsername(ctx, db, username)
	if err != nil {
		return nil, err
	}
	if contributor == nil {
		return nil, nil
	}

	stats := &schema.ContributorStats{Contributor: *contributor}

	rows, err := query.Leaderboard(ctx, db, 0, "", "")
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.Contributor == username {
			stats.TotalPoints = row.TotalPoints
			stats.ActivityCount = row.ActivityCount
			break
		}
	}

	if stats.ActivityBreakdown, err = query.ActivityBreakdownFor(ctx, db, username, "", ""); err != nil {
		return nil, err
	}
	if stats.RecentActivities, err = query.ActivitiesByContributor(ctx, db, username, recentActivityLimit); err != nil {
		return nil, err
	}

	for _, w := range []struct {
		window Window
		dest   *int
	}{
		{AllTime, &stats.Ranks.AllTime},
		{Yearly, &stats.Ranks.Yearly},
		{Monthly, &stats.Ranks.Monthly},
		{Weekly, &stats.Ranks.Weekly},
	} {
		rank, err := ContributorRank(ctx, db, username, TimeFilter{Window: w.window}, now)
		if err != nil {
			return nil, err
		}
		*w.dest = rank
	}
	return stats, nil
}
