//go:build database

package integration

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tallyboard/tally/core"
	"github.com/tallyboard/tally/internal/importer"
	"github.com/tallyboard/tally/internal/query"
	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

// startPostgres runs a throwaway PostgreSQL container and returns a
// pgx connection string for it.
func startPostgres(t *testing.T, ctx context.Context) string {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432:5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })
	time.Sleep(5 * time.Second)

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
}

// TestPostgresRoundTrip runs the storage, query and engine layers
// against a real PostgreSQL server: schema setup, upserts through the
// placeholder rewriter, conflict handling, and the leaderboard on top.
func TestPostgresRoundTrip(t *testing.T) {
	ctx := context.Background()
	connStr := startPostgres(t, ctx)

	db, err := store.Open(store.PostgreSQLBackend, connStr)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, db.InitializeSchema())
	// Second run must be a no-op, not an error.
	require.NoError(t, db.InitializeSchema())

	name := "Alice Doe"
	points := 10
	require.NoError(t, query.UpsertContributor(ctx, db, schema.Contributor{
		Username: "alice", Name: &name,
		SocialProfiles: map[string]string{"github": "https://github.com/alice"},
	}))
	require.NoError(t, query.UpsertActivityDefinition(ctx, db, schema.ActivityDefinition{
		Slug: "pr_merged", Name: "PR Merged", Description: "A merged pull request", Points: &points,
	}))
	for i, occuredAt := range []string{
		"2026-06-10T09:00:00Z",
		"2026-06-11T09:00:00Z",
		"2026-06-12T09:00:00Z",
	} {
		require.NoError(t, query.UpsertActivity(ctx, db, schema.Activity{
			Slug:        fmt.Sprintf("gh__alice__%04d", i),
			Contributor: "alice", ActivityDefinition: "pr_merged",
			OccuredAt: occuredAt,
		}))
	}

	t.Run("timestamps survive as strings", func(t *testing.T) {
		got, err := query.ActivityBySlug(ctx, db, "gh__alice__0000")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "2026-06-10T09:00:00Z", got.OccuredAt)
	})

	t.Run("insert-or-ignore keeps the first write", func(t *testing.T) {
		title := "replaced?"
		require.NoError(t, query.InsertOrIgnoreActivity(ctx, db, schema.Activity{
			Slug:        "gh__alice__0000",
			Contributor: "alice", ActivityDefinition: "pr_merged",
			Title: &title, OccuredAt: "2020-01-01T00:00:00Z",
		}))
		got, err := query.ActivityBySlug(ctx, db, "gh__alice__0000")
		require.NoError(t, err)
		assert.Equal(t, "2026-06-10T09:00:00Z", got.OccuredAt)
		assert.Nil(t, got.Title)
	})

	t.Run("batch rolls back on failure", func(t *testing.T) {
		_, err := db.Batch(ctx, []store.Statement{
			{SQL: "INSERT INTO contributor (username) VALUES (?)", Params: []any{"bob"}},
			{SQL: "INSERT INTO nonexistent_table (x) VALUES (?)", Params: []any{1}},
		})
		require.Error(t, err)

		bob, err := query.ContributorByUsername(ctx, db, "bob")
		require.NoError(t, err)
		assert.Nil(t, bob)
	})

	t.Run("engine runs end to end", func(t *testing.T) {
		now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
		logger := slog.New(slog.DiscardHandler)
		require.NoError(t, core.ComputeAggregates(ctx, db, logger, now))

		entries, err := core.Leaderboard(ctx, db, core.TimeFilter{Window: core.AllTime}, now)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, 1, entries[0].Rank)
		assert.Equal(t, "alice", entries[0].Contributor.Username)
		assert.Equal(t, 30, entries[0].TotalPoints)

		agg, err := query.ContributorAggregate(ctx, db, core.AggActivityCount, "alice")
		require.NoError(t, err)
		require.NotNil(t, agg)
		assert.Equal(t, 3.0, agg.Value.(schema.NumberValue).Value)
	})

	// A data repo can hold activities whose definitions only appear
	// once plugin setup has run; with foreign keys enforced eagerly
	// those rows must be skipped, not abort the import.
	t.Run("import skips rows the backend rejects", func(t *testing.T) {
		dataDir := t.TempDir()
		dir := filepath.Join(dataDir, "activities")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		content := `{"slug":"orphan","contributor":"alice","activity_definition":"not_registered","occured_at":"2026-06-14T09:00:00Z"}
{"slug":"gh__alice__0100","contributor":"alice","activity_definition":"pr_merged","occured_at":"2026-06-14T10:00:00Z"}
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "alice.jsonl"), []byte(content), 0o644))

		n, err := importer.ImportActivities(ctx, db, dataDir, slog.New(slog.DiscardHandler))
		require.NoError(t, err)
		assert.Equal(t, 1, n, "the foreign key reject is skipped, not fatal")

		orphan, err := query.ActivityBySlug(ctx, db, "orphan")
		require.NoError(t, err)
		assert.Nil(t, orphan)
	})

	t.Run("clear and drop", func(t *testing.T) {
		require.NoError(t, store.ClearAllData(ctx, db))
		n, err := query.CountActivities(ctx, db)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		require.NoError(t, store.DropAllTables(ctx, db))
		require.NoError(t, db.InitializeSchema())
	})
}
