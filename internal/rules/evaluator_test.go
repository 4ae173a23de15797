package rules

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyboard/tally/internal/query"
	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

var testNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.Open(store.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitializeSchema())
	return s
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func tieredBadge(slug string, variants ...string) schema.BadgeDefinition {
	vs := make(map[string]schema.BadgeVariant, len(variants))
	for i, v := range variants {
		order := i + 1
		vs[v] = schema.BadgeVariant{
			Description: v + " tier",
			SVGURL:      "https://badges.example.com/" + slug + "/" + v + ".svg",
			Order:       &order,
		}
	}
	return schema.BadgeDefinition{Slug: slug, Name: slug, Description: "d", Variants: vs}
}

func seedRules(t *testing.T, db store.Store) {
	t.Helper()
	ctx := context.Background()

	for _, username := range []string{"alice", "bob"} {
		require.NoError(t, query.UpsertContributor(ctx, db, schema.Contributor{Username: username}))
	}
	require.NoError(t, query.UpsertBadgeDefinition(ctx, db,
		tieredBadge("activity_milestone", "bronze", "silver", "gold", "platinum")))
	require.NoError(t, query.UpsertBadgeDefinition(ctx, db,
		tieredBadge("consistency_champion", "bronze", "silver", "gold")))
	require.NoError(t, query.UpsertContributorAggregateDefinition(ctx, db,
		schema.ContributorAggregateDefinition{Slug: "activity_count", Name: "Activity Count"}))
}

func setActivityCount(t *testing.T, db store.Store, username string, n float64) {
	t.Helper()
	require.NoError(t, query.UpsertContributorAggregate(context.Background(), db, schema.ContributorAggregate{
		Aggregate: "activity_count", Contributor: username,
		Value: schema.NumberValue{Value: n},
	}))
}

func countRule(enabled bool) Rule {
	return Rule{
		Kind:      ThresholdKind,
		Badge:     "activity_milestone",
		Enabled:   enabled,
		Aggregate: "activity_count",
		Thresholds: []Threshold{
			{Variant: "bronze", Value: 10},
			{Variant: "silver", Value: 50},
			{Variant: "gold", Value: 100},
			{Variant: "platinum", Value: 500},
		},
	}
}

func TestEvaluateThresholdRule(t *testing.T) {
	db := newTestStore(t)
	seedRules(t, db)
	ctx := context.Background()

	setActivityCount(t, db, "alice", 60)
	setActivityCount(t, db, "bob", 3)

	require.NoError(t, Evaluate(ctx, db, []Rule{countRule(true)}, discard(), testNow))

	got, err := query.ContributorBadgeFor(ctx, db, "activity_milestone", "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "silver", got.Variant)
	assert.Equal(t, "2026-06-15", got.AchievedOn)
	assert.Equal(t, "threshold", got.Meta["rule_kind"])

	// Below every threshold: nothing awarded.
	none, err := query.ContributorBadgeFor(ctx, db, "activity_milestone", "bob")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestEvaluateUpgradesButNeverDowngrades(t *testing.T) {
	db := newTestStore(t)
	seedRules(t, db)
	ctx := context.Background()

	setActivityCount(t, db, "alice", 12)
	require.NoError(t, Evaluate(ctx, db, []Rule{countRule(true)}, discard(), testNow))

	got, err := query.ContributorBadgeFor(ctx, db, "activity_milestone", "alice")
	require.NoError(t, err)
	assert.Equal(t, "bronze", got.Variant)

	t.Run("higher value upgrades", func(t *testing.T) {
		setActivityCount(t, db, "alice", 120)
		later := testNow.AddDate(0, 1, 0)
		require.NoError(t, Evaluate(ctx, db, []Rule{countRule(true)}, discard(), later))

		got, err := query.ContributorBadgeFor(ctx, db, "activity_milestone", "alice")
		require.NoError(t, err)
		assert.Equal(t, "gold", got.Variant)
		assert.Equal(t, "2026-07-15", got.AchievedOn)
	})

	t.Run("lower value keeps the held variant", func(t *testing.T) {
		setActivityCount(t, db, "alice", 11)
		require.NoError(t, Evaluate(ctx, db, []Rule{countRule(true)}, discard(), testNow.AddDate(0, 2, 0)))

		got, err := query.ContributorBadgeFor(ctx, db, "activity_milestone", "alice")
		require.NoError(t, err)
		assert.Equal(t, "gold", got.Variant)
		assert.Equal(t, "2026-07-15", got.AchievedOn)
	})
}

func TestEvaluateStreakRule(t *testing.T) {
	db := newTestStore(t)
	seedRules(t, db)
	ctx := context.Background()

	require.NoError(t, query.UpsertActivityDefinition(ctx, db, schema.ActivityDefinition{
		Slug: "commit_pushed", Name: "Commit", Description: "d",
	}))
	require.NoError(t, query.UpsertActivityDefinition(ctx, db, schema.ActivityDefinition{
		Slug: "issue_opened", Name: "Issue", Description: "d",
	}))

	// Eight consecutive days of commits, with a same-day duplicate and
	// an unrelated gap activity that must not extend the run.
	start := time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		require.NoError(t, query.UpsertActivity(ctx, db, schema.Activity{
			Slug:        fmt.Sprintf("c%02d", i),
			Contributor: "alice", ActivityDefinition: "commit_pushed",
			OccuredAt: start.AddDate(0, 0, i).Format(time.RFC3339),
		}))
	}
	require.NoError(t, query.UpsertActivity(ctx, db, schema.Activity{
		Slug: "cdup", Contributor: "alice", ActivityDefinition: "commit_pushed",
		OccuredAt: "2026-06-03T18:00:00Z",
	}))
	require.NoError(t, query.UpsertActivity(ctx, db, schema.Activity{
		Slug: "iso", Contributor: "alice", ActivityDefinition: "issue_opened",
		OccuredAt: "2026-06-11T10:00:00Z",
	}))

	rule := Rule{
		Kind:            StreakKind,
		Badge:           "consistency_champion",
		Enabled:         true,
		ActivityPattern: `^commit_`,
		Thresholds: []Threshold{
			{Variant: "bronze", Value: 7},
			{Variant: "silver", Value: 14},
			{Variant: "gold", Value: 30},
		},
	}
	require.NoError(t, Evaluate(ctx, db, []Rule{rule}, discard(), testNow))

	got, err := query.ContributorBadgeFor(ctx, db, "consistency_champion", "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "bronze", got.Variant)
	assert.Equal(t, 8, int(got.Meta["streak_days"].(float64)))
}

func TestEvaluateSkipsGracefully(t *testing.T) {
	db := newTestStore(t)
	seedRules(t, db)
	ctx := context.Background()

	setActivityCount(t, db, "alice", 60)

	t.Run("disabled rules do nothing", func(t *testing.T) {
		require.NoError(t, Evaluate(ctx, db, []Rule{countRule(false)}, discard(), testNow))
		got, err := query.ContributorBadgeFor(ctx, db, "activity_milestone", "alice")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("missing badge definition skips the rule", func(t *testing.T) {
		rule := countRule(true)
		rule.Badge = "not_in_catalog"
		require.NoError(t, Evaluate(ctx, db, []Rule{rule}, discard(), testNow))
	})

	t.Run("undeclared variant skips the award", func(t *testing.T) {
		rule := countRule(true)
		rule.Thresholds = []Threshold{{Variant: "diamond", Value: 1}}
		require.NoError(t, Evaluate(ctx, db, []Rule{rule}, discard(), testNow))
		got, err := query.ContributorBadgeFor(ctx, db, "activity_milestone", "alice")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("invalid rule is fatal", func(t *testing.T) {
		rule := countRule(true)
		rule.Aggregate = ""
		assert.Error(t, Evaluate(ctx, db, []Rule{rule}, discard(), testNow))
	})
}
