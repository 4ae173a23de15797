package core

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/tallyboard/tally/internal/query"
	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

// Standard aggregate slugs computed by every run.
const (
	AggTotalContributors = "total_contributors"
	AggTotalActivities   = "total_activities"
	AggActiveLast30d     = "active_contributors_last_30d"

	AggTotalActivityPoints  = "total_activity_points"
	AggActivityCount        = "activity_count"
	AggFirstActivityDate    = "first_activity_date"
	AggLastActivityDate     = "last_activity_date"
	AggActiveDays           = "active_days"
	AggAvgPointsPerActivity = "avg_points_per_activity"
)

// ComputeAggregates recomputes the standard global and per-contributor
// aggregates from current activity data. The reference time feeds the
// 30-day activity window and the calculated_at meta, so runs are
// reproducible under test.
func ComputeAggregates(ctx context.Context, db store.Store, logger *slog.Logger, now time.Time) error {
	meta := map[string]any{"calculated_at": now.UTC().Format(time.RFC3339)}

	if err := computeGlobalAggregates(ctx, db, meta, now); err != nil {
		return fmt.Errorf("global aggregates: %w", err)
	}
	n, err := computeContributorAggregates(ctx, db, meta)
	if err != nil {
		return fmt.Errorf("contributor aggregates: %w", err)
	}
	logger.Info("aggregates computed", "contributors", n)
	return nil
}

func computeGlobalAggregates(ctx context.Context, db store.Store, meta map[string]any, now time.Time) error {
	totalContributors, err := query.CountContributors(ctx, db)
	if err != nil {
		return err
	}
	totalActivities, err := query.CountActivities(ctx, db)
	if err != nil {
		return err
	}

	since := now.AddDate(0, 0, -30).UTC().Format(time.RFC3339)
	recent, err := query.ActivitiesByDateRange(ctx, db, since, "")
	if err != nil {
		return err
	}
	active := make(map[string]struct{})
	for _, a := range recent {
		active[a.Contributor] = struct{}{}
	}

	globals := []schema.GlobalAggregate{
		{
			Slug:  AggTotalContributors,
			Name:  "Total Contributors",
			Value: schema.NumberValue{Value: float64(totalContributors), Format: "integer"},
			Meta:  meta,
		},
		{
			Slug:  AggTotalActivities,
			Name:  "Total Activities",
			Value: schema.NumberValue{Value: float64(totalActivities), Format: "integer"},
			Meta:  meta,
		},
		{
			Slug:  AggActiveLast30d,
			Name:  "Active Contributors (30 days)",
			Value: schema.NumberValue{Value: float64(len(active)), Format: "integer"},
			Meta:  meta,
		},
	}
	for _, g := range globals {
		if err := query.UpsertGlobalAggregate(ctx, db, g); err != nil {
			return err
		}
	}
	return nil
}

// standardContributorDefinitions is the catalog for the aggregates
// computed below. Definitions use upsert so names stay current.
var standardContributorDefinitions = []schema.ContributorAggregateDefinition{
	{Slug: AggTotalActivityPoints, Name: "Total Points"},
	{Slug: AggActivityCount, Name: "Activities"},
	{Slug: AggFirstActivityDate, Name: "First Activity"},
	{Slug: AggLastActivityDate, Name: "Latest Activity"},
	{Slug: AggActiveDays, Name: "Active Days"},
	{Slug: AggAvgPointsPerActivity, Name: "Avg Points per Activity"},
}

func computeContributorAggregates(ctx context.Context, db store.Store, meta map[string]any) (int, error) {
	for _, def := range standardContributorDefinitions {
		if err := query.UpsertContributorAggregateDefinition(ctx, db, def); err != nil {
			return 0, err
		}
	}

	defs, err := query.AllActivityDefinitions(ctx, db)
	if err != nil {
		return 0, err
	}
	defaultPoints := make(map[string]int, len(defs))
	for _, d := range defs {
		if d.Points != nil {
			defaultPoints[d.Slug] = *d.Points
		}
	}

	contributors, err := query.AllContributors(ctx, db)
	if err != nil {
		return 0, err
	}

	computed := 0
	for _, c := range contributors {
		activities, err := query.ActivitiesByContributor(ctx, db, c.Username, 0)
		if err != nil {
			return computed, err
		}
		if len(activities) == 0 {
			continue
		}

		totalPoints := 0
		days := make(map[string]struct{})
		first, last := "", ""
		for _, a := range activities {
			totalPoints += effectivePoints(a, defaultPoints)
			if day := dayOf(a.OccuredAt); day != "" {
				days[day] = struct{}{}
			}
			if first == "" || a.OccuredAt < first {
				first = a.OccuredAt
			}
			if a.OccuredAt > last {
				last = a.OccuredAt
			}
		}
		avg := math.Round(float64(totalPoints)/float64(len(activities))*100) / 100

		values := []schema.ContributorAggregate{
			{Aggregate: AggTotalActivityPoints, Contributor: c.Username,
				Value: schema.NumberValue{Value: float64(totalPoints), Format: "integer"}, Meta: meta},
			{Aggregate: AggActivityCount, Contributor: c.Username,
				Value: schema.NumberValue{Value: float64(len(activities)), Format: "integer"}, Meta: meta},
			{Aggregate: AggFirstActivityDate, Contributor: c.Username,
				Value: schema.StringValue{Value: dayOf(first)}, Meta: meta},
			{Aggregate: AggLastActivityDate, Contributor: c.Username,
				Value: schema.StringValue{Value: dayOf(last)}, Meta: meta},
			{Aggregate: AggActiveDays, Contributor: c.Username,
				Value: schema.NumberValue{Value: float64(len(days)), Format: "integer"}, Meta: meta},
			{Aggregate: AggAvgPointsPerActivity, Contributor: c.Username,
				Value: schema.NumberValue{Value: avg, Decimals: decimals(2)}, Meta: meta},
		}
		for _, v := range values {
			if err := query.UpsertContributorAggregate(ctx, db, v); err != nil {
				return computed, err
			}
		}
		computed++
	}
	return computed, nil
}

func effectivePoints(a schema.Activity, defaults map[string]int) int {
	if a.Points != nil {
		return *a.Points
	}
	return defaults[a.ActivityDefinition]
}

// dayOf extracts the yyyy-MM-dd prefix of an ISO timestamp.
func dayOf(ts string) string {
	if len(ts) < 10 {
		return ts
	}
	return ts[:10]
}

func decimals(n int) *int { return &n }
