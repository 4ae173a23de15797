package core

import (
	"context"
	"time"

	"github.com/tallyboard/tally/internal/query"
	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

// Leaderboard builds the ranked view for the filter's window.
// Contributors without activities in the window do not appear at all.
// Each entry carries its per-definition activity breakdown.
func Leaderboard(ctx context.Context, db store.Store, filter TimeFilter, now time.Time) ([]schema.LeaderboardEntry, error) {
	since, till := filter.Range(now).Bounds()

	rows, err := query.Leaderboard(ctx, db, 0, since, till)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []schema.LeaderboardEntry{}, nil
	}

	contributors, err := query.AllContributors(ctx, db)
	if err != nil {
		return nil, err
	}
	byUsername := make(map[string]schema.Contributor, len(contributors))
	for _, c := range contributors {
		byUsername[c.Username] = c
	}

	entries := make([]schema.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		contributor, ok := byUsername[row.Contributor]
		if !ok {
			// Activity rows can reference contributors that were never
			// profiled; surface them with a bare username.
			contributor = schema.Contributor{Username: row.Contributor}
		}
		breakdown, err := query.ActivityBreakdownFor(ctx, db, row.Contributor, since, till)
		if err != nil {
			return nil, err
		}
		entries = append(entries, schema.LeaderboardEntry{
			Contributor:       contributor,
			TotalPoints:       row.TotalPoints,
			ActivityCount:     row.ActivityCount,
			ActivityBreakdown: breakdown,
		})
	}

	assignRanks(entries)
	return entries, nil
}

// TopContributors returns the first n leaderboard entries.
func TopContributors(ctx context.Context, db store.Store, n int, filter TimeFilter, now time.Time) ([]schema.LeaderboardEntry, error) {
	entries, err := Leaderboard(ctx, db, filter, now)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// CategoryLeaders is the top of the board for one activity kind.
type CategoryLeaders struct {
	Definition schema.ActivityDefinition
	Entries    []query.LeaderboardRow
}

// TopByActivityCategory computes, for every activity definition, the
// top n contributors in that category within the filter's window.
// Categories with no activity in the window are omitted.
func TopByActivityCategory(ctx context.Context, db store.Store, n int, filter TimeFilter, now time.Time) ([]CategoryLeaders, error) {
	since, till := filter.Range(now).Bounds()

	defs, err := query.AllActivityDefinitions(ctx, db)
	if err != nil {
		return nil, err
	}

	out := make([]CategoryLeaders, 0, len(defs))
	for _, def := range defs {
		rows, err := query.LeaderboardForDefinition(ctx, db, def.Slug, n, since, till)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			continue
		}
		out = append(out, CategoryLeaders{Definition: def, Entries: rows})
	}
	return out, nil
}
