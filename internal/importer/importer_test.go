package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyboard/tally/internal/exporter"
	"github.com/tallyboard/tally/internal/query"
	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.Open(store.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitializeSchema())
	return s
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func strp(s string) *string { return &s }
func intp(n int) *int       { return &n }

// seedStore fills a store with one of everything.
func seedStore(t *testing.T, db store.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, query.UpsertContributor(ctx, db, schema.Contributor{
		Username:       "alice",
		Name:           strp("Alice Hartmann"),
		Role:           strp("core"),
		Bio:            strp("Systems tinkerer.\n\nLikes SQL."),
		SocialProfiles: map[string]string{"github": "https://github.com/alice"},
		JoiningDate:    strp("2024-03-15"),
	}))
	require.NoError(t, query.UpsertContributor(ctx, db, schema.Contributor{Username: "idle"}))

	require.NoError(t, query.UpsertActivityDefinition(ctx, db, schema.ActivityDefinition{
		Slug: "pr_merged", Name: "PR Merged", Description: "d", Points: intp(10),
	}))
	require.NoError(t, query.UpsertActivity(ctx, db, schema.Activity{
		Slug: "a1", Contributor: "alice", ActivityDefinition: "pr_merged",
		OccuredAt: "2026-05-01T10:00:00Z", Title: strp("Fix parser"),
		Meta: map[string]any{"repo": "tally"},
	}))
	require.NoError(t, query.UpsertActivity(ctx, db, schema.Activity{
		Slug: "a2", Contributor: "alice", ActivityDefinition: "pr_merged",
		OccuredAt: "2026-05-02T10:00:00Z", Points: intp(5),
	}))

	require.NoError(t, query.UpsertGlobalAggregate(ctx, db, schema.GlobalAggregate{
		Slug: "total_activities", Name: "Total Activities",
		Value: schema.NumberValue{Value: 2, Format: "integer"},
	}))
	require.NoError(t, query.UpsertContributorAggregateDefinition(ctx, db, schema.ContributorAggregateDefinition{
		Slug: "activity_count", Name: "Activities",
	}))
	require.NoError(t, query.UpsertContributorAggregate(ctx, db, schema.ContributorAggregate{
		Aggregate: "activity_count", Contributor: "alice",
		Value: schema.NumberStatisticsValue{Sum: fp(15), Count: intp(2), HighlightMetric: "sum"},
	}))

	require.NoError(t, query.UpsertBadgeDefinition(ctx, db, schema.BadgeDefinition{
		Slug: "points_milestone", Name: "Points Milestone", Description: "d",
		Variants: map[string]schema.BadgeVariant{
			"bronze": {Description: "100+", SVGURL: "https://img.example/b"},
		},
	}))
	require.NoError(t, query.AwardBadge(ctx, db, schema.ContributorBadge{
		Badge: "points_milestone", Contributor: "alice", Variant: "bronze", AchievedOn: "2026-05-10",
	}))
}

func fp(f float64) *float64 { return &f }

func TestRoundTripThroughFiles(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	seedStore(t, src)
	dataDir := t.TempDir()

	require.NoError(t, exporter.ExportAll(ctx, src, dataDir, discard()))

	dst := newTestStore(t)
	counts, err := ImportAll(ctx, dst, dataDir, discard())
	require.NoError(t, err)

	assert.Equal(t, 2, counts.Contributors)
	assert.Equal(t, 2, counts.Activities)
	assert.Equal(t, 1, counts.GlobalAggregates)
	assert.Equal(t, 1, counts.AggregateDefinitions)
	assert.Equal(t, 1, counts.ContributorAggregates)
	assert.Equal(t, 1, counts.BadgeDefinitions)
	assert.Equal(t, 1, counts.ContributorBadges)

	alice, err := query.ContributorByUsername(ctx, dst, "alice")
	require.NoError(t, err)
	require.NotNil(t, alice)
	assert.Equal(t, "Alice Hartmann", *alice.Name)
	assert.Equal(t, "Systems tinkerer.\n\nLikes SQL.", *alice.Bio)
	assert.Equal(t, "https://github.com/alice", alice.SocialProfiles["github"])
	assert.Equal(t, "2024-03-15", *alice.JoiningDate)

	a1, err := query.ActivityBySlug(ctx, dst, "a1")
	require.NoError(t, err)
	require.NotNil(t, a1)
	assert.Equal(t, "2026-05-01T10:00:00Z", a1.OccuredAt)
	assert.Equal(t, "tally", a1.Meta["repo"])
	assert.Nil(t, a1.Points)

	agg, err := query.ContributorAggregate(ctx, dst, "activity_count", "alice")
	require.NoError(t, err)
	require.NotNil(t, agg)
	stats, ok := agg.Value.(schema.NumberStatisticsValue)
	require.True(t, ok)
	assert.Equal(t, 15.0, *stats.Sum)
	assert.Equal(t, "sum", stats.HighlightMetric)

	held, err := query.BadgesForContributor(ctx, dst, "alice")
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, "bronze", held[0].Variant)
}

func TestReExportIsByteIdentical(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	seedStore(t, src)

	first := t.TempDir()
	require.NoError(t, exporter.ExportAll(ctx, src, first, discard()))

	// Import into a fresh store and export again; unchanged data must
	// reproduce the exact same bytes.
	dst := newTestStore(t)
	_, err := ImportAll(ctx, dst, first, discard())
	require.NoError(t, err)

	second := t.TempDir()
	require.NoError(t, exporter.ExportAll(ctx, dst, second, discard()))

	for _, rel := range []string{
		"contributors/alice.md",
		"contributors/idle.md",
		"activities/alice.jsonl",
		"aggregates/global.json",
		"aggregates/definitions.json",
		"aggregates/contributors/alice.jsonl",
		"badges/definitions.json",
		"badges/contributors/alice.jsonl",
	} {
		a, err := os.ReadFile(filepath.Join(first, rel))
		require.NoError(t, err, rel)
		b, err := os.ReadFile(filepath.Join(second, rel))
		require.NoError(t, err, rel)
		assert.Equal(t, string(a), string(b), rel)
	}
}

func TestExportSparsity(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	seedStore(t, src)
	dataDir := t.TempDir()

	require.NoError(t, exporter.ExportAll(ctx, src, dataDir, discard()))

	// idle has no activities, aggregates or badges: no shards exist.
	for _, rel := range []string{
		"activities/idle.jsonl",
		"aggregates/contributors/idle.jsonl",
		"badges/contributors/idle.jsonl",
	} {
		_, err := os.Stat(filepath.Join(dataDir, rel))
		assert.True(t, os.IsNotExist(err), rel)
	}
	// But the profile file does.
	_, err := os.Stat(filepath.Join(dataDir, "contributors", "idle.md"))
	assert.NoError(t, err)
}

func TestContributorWithoutBioExportsEmptyBody(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	require.NoError(t, query.UpsertContributor(ctx, src, schema.Contributor{
		Username: "terse", Name: strp("Terse")}))
	dataDir := t.TempDir()

	n, err := exporter.ExportContributors(ctx, src, dataDir, discard())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	raw, err := os.ReadFile(filepath.Join(dataDir, "contributors", "terse.md"))
	require.NoError(t, err)
	assert.Equal(t, "---\nname: Terse\n---\n", string(raw))

	dst := newTestStore(t)
	_, err = ImportContributors(ctx, dst, dataDir, discard())
	require.NoError(t, err)
	got, err := query.ContributorByUsername(ctx, dst, "terse")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Bio)
}

func TestImportMissingDirectoriesYieldZero(t *testing.T) {
	db := newTestStore(t)
	counts, err := ImportAll(context.Background(), db, t.TempDir(), discard())
	require.NoError(t, err)
	assert.Equal(t, Counts{}, counts)
}

func TestImportSkipsMalformedLines(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	dataDir := t.TempDir()
	dir := filepath.Join(dataDir, "activities")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	content := `{"slug":"ok1","contributor":"alice","activity_definition":"pr_merged","occured_at":"2026-05-01T00:00:00Z"}
{not json at all
{"slug":"ok2","contributor":"alice","activity_definition":"pr_merged","occured_at":"2026-05-02T00:00:00Z"}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alice.jsonl"), []byte(content), 0o644))

	n, err := ImportActivities(ctx, db, dataDir, discard())
	require.NoError(t, err)
	assert.Equal(t, 2, n, "malformed line is skipped, valid neighbors load")

	total, err := query.CountActivities(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

// failingStore rejects writes whose first parameter is a given slug,
// standing in for a row the backend refuses, like a foreign key
// violation on PostgreSQL.
type failingStore struct {
	store.Store
	rejectSlug string
}

func (f *failingStore) Execute(ctx context.Context, sql string, params ...any) (store.Result, error) {
	if len(params) > 0 && params[0] == f.rejectSlug {
		return store.Result{}, fmt.Errorf("constraint violated for %v", params[0])
	}
	return f.Store.Execute(ctx, sql, params...)
}

func TestImportSkipsRowsTheStoreRejects(t *testing.T) {
	ctx := context.Background()
	db := &failingStore{Store: newTestStore(t), rejectSlug: "orphan"}
	dataDir := t.TempDir()
	dir := filepath.Join(dataDir, "activities")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	content := `{"slug":"orphan","contributor":"alice","activity_definition":"missing_def","occured_at":"2026-05-01T00:00:00Z"}
{"slug":"ok","contributor":"alice","activity_definition":"pr_merged","occured_at":"2026-05-02T00:00:00Z"}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alice.jsonl"), []byte(content), 0o644))

	n, err := ImportActivities(ctx, db, dataDir, discard())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "rejected row is skipped, valid neighbors load")

	got, err := query.ActivityBySlug(ctx, db, "ok")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestExportSurfacesShardWriteFailure(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	seedStore(t, src)
	dataDir := t.TempDir()
	// Occupy the shard path with a directory so the write fails.
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "activities", "alice.jsonl"), 0o755))

	_, err := exporter.ExportActivities(ctx, src, dataDir, discard())
	require.Error(t, err)
}

func TestHiddenOmittedFromCatalogsWhenFalse(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	seedStore(t, src)
	require.NoError(t, query.UpsertContributorAggregateDefinition(ctx, src, schema.ContributorAggregateDefinition{
		Slug: "internal_score", Name: "Internal Score", Hidden: true,
	}))
	dataDir := t.TempDir()
	require.NoError(t, exporter.ExportAll(ctx, src, dataDir, discard()))

	raw, err := os.ReadFile(filepath.Join(dataDir, "aggregates", "definitions.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"hidden": true`)
	assert.Equal(t, 1, strings.Count(string(raw), "hidden"), "unhidden entries omit the flag")
}

func TestImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	seedStore(t, src)
	dataDir := t.TempDir()
	require.NoError(t, exporter.ExportAll(ctx, src, dataDir, discard()))

	dst := newTestStore(t)
	_, err := ImportAll(ctx, dst, dataDir, discard())
	require.NoError(t, err)
	_, err = ImportAll(ctx, dst, dataDir, discard())
	require.NoError(t, err)

	n, err := query.CountContributors(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	total, err := query.CountActivities(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestParquetExport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	seedStore(t, src)
	dataDir := t.TempDir()

	n, err := exporter.ExportActivitiesParquet(ctx, src, dataDir, discard())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	info, err := os.Stat(filepath.Join(dataDir, "analytics", "activities.parquet"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
