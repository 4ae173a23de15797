package query

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

func scanActivity(row store.Row) schema.Activity {
	return schema.Activity{
		Slug:               stringField(row, "slug"),
		Contributor:        stringField(row, "contributor"),
		ActivityDefinition: stringField(row, "activity_definition"),
		Title:              stringPtr(row, "title"),
		OccuredAt:          stringField(row, "occured_at"),
		Link:               stringPtr(row, "link"),
		Text:               stringPtr(row, "text"),
		Points:             intPtr(row, "points"),
		Meta:               mapField(row, "meta"),
	}
}

func activityParams(a schema.Activity) ([]any, error) {
	meta, err := jsonParam(a.Meta)
	if err != nil {
		return nil, fmt.Errorf("activity %s: %w", a.Slug, err)
	}
	return []any{
		a.Slug, a.Contributor, a.ActivityDefinition, ptrParam(a.Title),
		a.OccuredAt, ptrParam(a.Link), ptrParam(a.Text), ptrParam(a.Points), meta,
	}, nil
}

// AllActivities lists activities newest first; limit <= 0 means all.
func AllActivities(ctx context.Context, db store.Store, limit int) ([]schema.Activity, error) {
	sql := "SELECT * FROM activity ORDER BY occured_at DESC, slug"
	var params []any
	if limit > 0 {
		sql += " LIMIT ?"
		params = append(params, limit)
	}
	res, err := db.Execute(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	out := make([]schema.Activity, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, scanActivity(row))
	}
	return out, nil
}

// ActivityBySlug returns nil (and no error) when absent.
func ActivityBySlug(ctx context.Context, db store.Store, slug string) (*schema.Activity, error) {
	res, err := db.Execute(ctx, "SELECT * FROM activity WHERE slug = ?", slug)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	a := scanActivity(res.Rows[0])
	return &a, nil
}

// ActivitiesByContributor lists a contributor's activities newest
// first; limit <= 0 means all.
func ActivitiesByContributor(ctx context.Context, db store.Store, username string, limit int) ([]schema.Activity, error) {
	sql := "SELECT * FROM activity WHERE contributor = ? ORDER BY occured_at DESC, slug"
	params := []any{username}
	if limit > 0 {
		sql += " LIMIT ?"
		params = append(params, limit)
	}
	res, err := db.Execute(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	out := make([]schema.Activity, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, scanActivity(row))
	}
	return out, nil
}

// ActivitiesByDefinition lists activities of one kind newest first.
func ActivitiesByDefinition(ctx context.Context, db store.Store, definition string) ([]schema.Activity, error) {
	res, err := db.Execute(ctx,
		"SELECT * FROM activity WHERE activity_definition = ? ORDER BY occured_at DESC, slug", definition)
	if err != nil {
		return nil, err
	}
	out := make([]schema.Activity, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, scanActivity(row))
	}
	return out, nil
}

// ActivitiesByDateRange lists activities with occured_at inside the
// inclusive [since, till] bounds; either bound may be empty.
func ActivitiesByDateRange(ctx context.Context, db store.Store, since, till string) ([]schema.Activity, error) {
	var conds []string
	var params []any
	if since != "" {
		conds = append(conds, "occured_at >= ?")
		params = append(params, since)
	}
	if till != "" {
		conds = append(conds, "occured_at <= ?")
		params = append(params, till)
	}
	sql := "SELECT * FROM activity"
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	sql += " ORDER BY occured_at DESC, slug"
	res, err := db.Execute(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	out := make([]schema.Activity, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, scanActivity(row))
	}
	return out, nil
}

// InsertOrIgnoreActivity writes the activity only if the slug is new.
func InsertOrIgnoreActivity(ctx context.Context, db store.Store, a schema.Activity) error {
	params, err := activityParams(a)
	if err != nil {
		return err
	}
	_, err = db.Execute(ctx, `INSERT INTO activity
		(slug, contributor, activity_definition, title, occured_at, link, text, points, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO NOTHING`, params...)
	return err
}

// UpsertActivity inserts or fully replaces the activity.
func UpsertActivity(ctx context.Context, db store.Store, a schema.Activity) error {
	params, err := activityParams(a)
	if err != nil {
		return err
	}
	_, err = db.Execute(ctx, `INSERT INTO activity
		(slug, contributor, activity_definition, title, occured_at, link, text, points, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			contributor = excluded.contributor,
			activity_definition = excluded.activity_definition,
			title = excluded.title,
			occured_at = excluded.occured_at,
			link = excluded.link,
			text = excluded.text,
			points = excluded.points,
			meta = excluded.meta`, params...)
	return err
}

// DeleteActivity removes the row; deleting an absent slug is not an
// error.
func DeleteActivity(ctx context.Context, db store.Store, slug string) error {
	_, err := db.Execute(ctx, "DELETE FROM activity WHERE slug = ?", slug)
	return err
}

// CountActivities returns the total number of activities.
func CountActivities(ctx context.Context, db store.Store) (int, error) {
	res, err := db.Execute(ctx, "SELECT COUNT(*) AS count FROM activity")
	if err != nil {
		return 0, err
	}
	return countResult(res), nil
}

// LeaderboardRow is one grouped row from the leaderboard query.
type LeaderboardRow struct {
	Contributor   string
	TotalPoints   int
	ActivityCount int
}

// Leaderboard groups activities by contributor inside the inclusive
// [since, till] window (empty bounds mean unbounded). Each activity
// contributes its own points, falling back to its definition's points,
// falling back to zero. Ordered by total points descending; limit <= 0
// means all rows.
func Leaderboard(ctx context.Context, db store.Store, limit int, since, till string) ([]LeaderboardRow, error) {
	var conds []string
	var params []any
	if since != "" {
		conds = append(conds, "a.occured_at >= ?")
		params = append(params, since)
	}
	if till != "" {
		conds = append(conds, "a.occured_at <= ?")
		params = append(params, till)
	}

	sql := `SELECT a.contributor AS contributor,
			COALESCE(SUM(COALESCE(a.points, d.points, 0)), 0) AS total_points,
			COUNT(*) AS activity_count
		FROM activity a
		LEFT JOIN activity_definition d ON a.activity_definition = d.slug`
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	sql += " GROUP BY a.contributor ORDER BY total_points DESC"
	if limit > 0 {
		sql += " LIMIT " + strconv.Itoa(limit)
	}

	res, err := db.Execute(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardRow, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, LeaderboardRow{
			Contributor:   stringField(row, "contributor"),
			TotalPoints:   intField(row, "total_points"),
			ActivityCount: intField(row, "activity_count"),
		})
	}
	return out, nil
}

// LeaderboardForDefinition is Leaderboard restricted to one activity
// kind.
func LeaderboardForDefinition(ctx context.Context, db store.Store, definition string, limit int, since, till string) ([]LeaderboardRow, error) {
	conds := []string{"a.activity_definition = ?"}
	params := []any{definition}
	if since != "" {
		conds = append(conds, "a.occured_at >= ?")
		params = append(params, since)
	}
	if till != "" {
		conds = append(conds, "a.occured_at <= ?")
		params = append(params, till)
	}

	sql := `SELECT a.contributor AS contributor,
			COALESCE(SUM(COALESCE(a.points, d.points, 0)), 0) AS total_points,
			COUNT(*) AS activity_count
		FROM activity a
		LEFT JOIN activity_definition d ON a.activity_definition = d.slug
		WHERE ` + strings.Join(conds, " AND ") +
		" GROUP BY a.contributor ORDER BY total_points DESC"
	if limit > 0 {
		sql += " LIMIT " + strconv.Itoa(limit)
	}

	res, err := db.Execute(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardRow, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, LeaderboardRow{
			Contributor:   stringField(row, "contributor"),
			TotalPoints:   intField(row, "total_points"),
			ActivityCount: intField(row, "activity_count"),
		})
	}
	return out, nil
}

// ActivityBreakdownFor groups one contributor's activities by
// definition with effective point totals, ordered by points then count.
func ActivityBreakdownFor(ctx context.Context, db store.Store, username, since, till string) ([]schema.ActivityBreakdown, error) {
	conds := []string{"a.contributor = ?"}
	params := []any{username}
	if since != "" {
		conds = append(conds, "a.occured_at >= ?")
		params = append(params, since)
	}
	if till != "" {
		conds = append(conds, "a.occured_at <= ?")
		params = append(params, till)
	}

	sql := `SELECT a.activity_definition AS activity_definition,
			COALESCE(d.name, a.activity_definition) AS activity_name,
			COUNT(*) AS count,
			COALESCE(SUM(COALESCE(a.points, d.points, 0)), 0) AS total_points
		FROM activity a
		LEFT JOIN activity_definition d ON a.activity_definition = d.slug
		WHERE ` + strings.Join(conds, " AND ") +
		" GROUP BY a.activity_definition, d.name ORDER BY total_points DESC, count DESC"

	res, err := db.Execute(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	out := make([]schema.ActivityBreakdown, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, schema.ActivityBreakdown{
			ActivityDefinition: stringField(row, "activity_definition"),
			ActivityName:       stringField(row, "activity_name"),
			Count:              intField(row, "count"),
			TotalPoints:        intField(row, "total_points"),
		})
	}
	return out, nil
}
