package plugin

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyboard/tally/internal/query"
	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

func newRunnerStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.Open(store.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitializeSchema())
	return s
}

func runnerConfig(ids ...string) *schema.Config {
	cfg := &schema.Config{
		Org:         schema.OrgConfig{Name: "org", Description: "d", URL: "https://x.org", LogoURL: "https://x.org/l.svg"},
		Leaderboard: schema.LeaderboardConfig{Plugins: map[string]schema.PluginSpec{}},
	}
	for _, id := range ids {
		cfg.Leaderboard.Plugins[id] = schema.PluginSpec{Source: id}
	}
	return cfg
}

// catalogPlugin registers its activity definition in Setup and refuses
// to scrape without it, modelling the common shape of real plugins.
type catalogPlugin struct {
	defSlug string
	events  *[]string
}

func (p *catalogPlugin) Name() string    { return p.defSlug }
func (p *catalogPlugin) Version() string { return "1.0.0" }

func (p *catalogPlugin) Setup(ctx context.Context, pctx *Context) error {
	*p.events = append(*p.events, "setup:"+p.defSlug)
	return query.InsertOrIgnoreActivityDefinition(ctx, pctx.DB, schema.ActivityDefinition{
		Slug: p.defSlug, Name: p.defSlug, Description: "d", Points: intp(5),
	})
}

func (p *catalogPlugin) Scrape(ctx context.Context, pctx *Context) error {
	*p.events = append(*p.events, "scrape:"+p.defSlug)
	def, err := query.ActivityDefinitionBySlug(ctx, pctx.DB, p.defSlug)
	if err != nil {
		return err
	}
	if def == nil {
		return errors.New("activity definition missing; setup has not run")
	}
	if err := query.UpsertContributor(ctx, pctx.DB, schema.Contributor{Username: p.defSlug + "-user"}); err != nil {
		return err
	}
	return query.UpsertActivity(ctx, pctx.DB, schema.Activity{
		Slug:               p.defSlug + "-a1",
		Contributor:        p.defSlug + "-user",
		ActivityDefinition: p.defSlug,
		OccuredAt:          "2026-05-01T00:00:00Z",
	})
}

type failingScraper struct{}

func (failingScraper) Name() string    { return "failing" }
func (failingScraper) Version() string { return "0.1.0" }
func (failingScraper) Scrape(context.Context, *Context) error {
	return errors.New("upstream unavailable")
}

type failingSetup struct{ scraped *bool }

func (failingSetup) Name() string    { return "broken-setup" }
func (failingSetup) Version() string { return "0.1.0" }
func (failingSetup) Setup(context.Context, *Context) error {
	return errors.New("cannot prepare catalog")
}
func (p failingSetup) Scrape(context.Context, *Context) error {
	*p.scraped = true
	return nil
}

func intp(n int) *int { return &n }

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRunnerSetupCompletesBeforeAnyScrape(t *testing.T) {
	db := newRunnerStore(t)
	var events []string

	reg := NewRegistry()
	require.NoError(t, reg.Register("alpha", &catalogPlugin{defSlug: "alpha", events: &events}))
	require.NoError(t, reg.Register("beta", &catalogPlugin{defSlug: "beta", events: &events}))

	err := RunWithRegistry(context.Background(), reg, runnerConfig("alpha", "beta"), db, discard())
	require.NoError(t, err)

	require.Equal(t, []string{"setup:alpha", "setup:beta", "scrape:alpha", "scrape:beta"}, events)

	n, err := query.CountActivities(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunnerScrapeWithoutSetupFails(t *testing.T) {
	db := newRunnerStore(t)
	var events []string
	p := &catalogPlugin{defSlug: "solo", events: &events}

	// Calling scrape directly, skipping setup, must fail: the catalog
	// row it depends on does not exist yet.
	err := p.Scrape(context.Background(), &Context{DB: db, Logger: discard()})
	assert.Error(t, err)
}

func TestRunnerIsolatesScrapeFailures(t *testing.T) {
	db := newRunnerStore(t)
	var events []string

	reg := NewRegistry()
	require.NoError(t, reg.Register("failing", failingScraper{}))
	require.NoError(t, reg.Register("healthy", &catalogPlugin{defSlug: "healthy", events: &events}))

	err := RunWithRegistry(context.Background(), reg, runnerConfig("failing", "healthy"), db, discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 plugins failed")

	// The healthy plugin still ran to completion.
	assert.Contains(t, events, "scrape:healthy")
	n, err := query.CountActivities(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunnerSetupFailureAborts(t *testing.T) {
	db := newRunnerStore(t)
	scraped := false

	reg := NewRegistry()
	require.NoError(t, reg.Register("broken", failingSetup{scraped: &scraped}))

	err := RunWithRegistry(context.Background(), reg, runnerConfig("broken"), db, discard())
	require.Error(t, err)
	assert.False(t, scraped, "no scrape may run after a setup failure")
}

func TestRunnerUnknownSourceIsFatal(t *testing.T) {
	db := newRunnerStore(t)
	err := RunWithRegistry(context.Background(), NewRegistry(), runnerConfig("ghost"), db, discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no plugin registered")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		plugin  Plugin
		wantErr bool
	}{
		{"valid", staticPlugin{name: "ok", version: "1.2.3"}, false},
		{"valid with v prefix", staticPlugin{name: "ok", version: "v0.1.0"}, false},
		{"valid prerelease", staticPlugin{name: "ok", version: "1.0.0-rc.1"}, false},
		{"empty name", staticPlugin{name: "", version: "1.0.0"}, true},
		{"bad version", staticPlugin{name: "ok", version: "latest"}, true},
		{"nil", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.plugin)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type staticPlugin struct {
	name    string
	version string
}

func (p staticPlugin) Name() string                           { return p.name }
func (p staticPlugin) Version() string                        { return p.version }
func (p staticPlugin) Scrape(context.Context, *Context) error { return nil }

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("a", staticPlugin{name: "a", version: "1.0.0"}))
	assert.Error(t, reg.Register("a", staticPlugin{name: "a2", version: "1.0.0"}))
	assert.Equal(t, []string{"a"}, reg.Sources())
}
