// Package dummy is a built-in data source that generates deterministic
// sample contributors and activities. It exists so a fresh checkout
// can exercise the whole pipeline without credentials or network
// access.
package dummy

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/tallyboard/tally/internal/plugin"
	"github.com/tallyboard/tally/internal/query"
	"github.com/tallyboard/tally/schema"
)

func init() {
	plugin.Register("dummy", &Plugin{})
}

// Plugin generates sample data. Config keys (all optional):
//
//	contributors    number of contributors to generate (default 6)
//	days            how far back activities reach (default 90)
//	max_per_day     activity cap per contributor per day (default 3)
//	seed            RNG seed; same seed, same data (default 42)
type Plugin struct{}

func (p *Plugin) Name() string    { return "tally-plugin-dummy" }
func (p *Plugin) Version() string { return "0.1.0" }

type activityType struct {
	name        string
	description string
	points      int
	icon        string
}

// activityTypes is the GitHub-like catalog the generator draws from.
// Keyed iteration happens over activityOrder so runs are reproducible.
var activityTypes = map[string]activityType{
	"pr_opened":      {"PR Opened", "Opened a pull request", 2, "git-pull-request"},
	"pr_merged":      {"PR Merged", "Merged a pull request", 10, "git-merge"},
	"pr_reviewed":    {"PR Reviewed", "Reviewed a pull request", 4, "eye"},
	"issue_opened":   {"Issue Opened", "Opened an issue", 1, "issue-opened"},
	"issue_closed":   {"Issue Closed", "Closed an issue", 3, "issue-closed"},
	"commit_pushed":  {"Commit Pushed", "Pushed commits to a repository", 1, "git-commit"},
	"doc_published":  {"Doc Published", "Published documentation", 5, "book"},
	"talk_delivered": {"Talk Delivered", "Delivered a community talk", 8, "megaphone"},
}

var activityOrder = []string{
	"pr_opened", "pr_merged", "pr_reviewed", "issue_opened",
	"issue_closed", "commit_pushed", "doc_published", "talk_delivered",
}

var sampleContributors = []schema.Contributor{
	{Username: "alice", Name: strp("Alice Hartmann"), Role: strp("core"), Title: strp("Staff Engineer")},
	{Username: "bob", Name: strp("Bob Keller"), Role: strp("core"), Title: strp("Backend Engineer")},
	{Username: "carol", Name: strp("Carol Mendes"), Role: strp("contributor")},
	{Username: "dave", Name: strp("Dave Okafor"), Role: strp("contributor")},
	{Username: "erin", Name: strp("Erin Zhao"), Role: strp("intern")},
	{Username: "frank", Name: strp("Frank Ivanov"), Role: strp("contributor")},
	{Username: "grace", Name: strp("Grace Lindqvist"), Role: strp("core"), Title: strp("Frontend Engineer")},
	{Username: "heidi", Name: strp("Heidi Tanaka"), Role: strp("contributor")},
	{Username: "ivan", Name: strp("Ivan Moreau"), Role: strp("intern")},
	{Username: "judy", Name: strp("Judy Castillo"), Role: strp("contributor")},
}

func strp(s string) *string { return &s }
func intp(n int) *int       { return &n }

// Setup registers the activity, aggregate and badge catalogs.
// Definitions use insert-or-ignore so an operator's manual edits
// survive re-runs.
func (p *Plugin) Setup(ctx context.Context, pctx *plugin.Context) error {
	for _, slug := range activityOrder {
		at := activityTypes[slug]
		err := query.InsertOrIgnoreActivityDefinition(ctx, pctx.DB, schema.ActivityDefinition{
			Slug:        slug,
			Name:        at.name,
			Description: at.description,
			Points:      intp(at.points),
			Icon:        strp(at.icon),
		})
		if err != nil {
			return fmt.Errorf("register activity type %s: %w", slug, err)
		}
		pctx.Logger.Debug("registered activity type", "slug", slug)
	}
	pctx.Logger.Info("registered activity types", "count", len(activityOrder))

	aggregateDefs := []schema.ContributorAggregateDefinition{
		{Slug: "pr_merged_count", Name: "PRs Merged", Description: strp("Number of pull requests merged")},
		{Slug: "code_review_participation", Name: "Code Review Participation", Description: strp("Percentage of PRs reviewed vs created")},
	}
	for _, def := range aggregateDefs {
		if err := query.UpsertContributorAggregateDefinition(ctx, pctx.DB, def); err != nil {
			return fmt.Errorf("register aggregate %s: %w", def.Slug, err)
		}
	}

	for _, badge := range badgeCatalog() {
		if err := query.InsertOrIgnoreBadgeDefinition(ctx, pctx.DB, badge); err != nil {
			return fmt.Errorf("register badge %s: %w", badge.Slug, err)
		}
		pctx.Logger.Debug("registered badge", "slug", badge.Slug)
	}

	pctx.Logger.Info("setup complete")
	return nil
}

// Scrape writes the generated contributors and activities. Slugs are
// derived from the seed and position, so re-running with the same
// config upserts the same rows instead of growing the dataset.
func (p *Plugin) Scrape(ctx context.Context, pctx *plugin.Context) error {
	contributors := cfgInt(pctx.Config, "contributors", 6)
	days := cfgInt(pctx.Config, "days", 90)
	maxPerDay := cfgInt(pctx.Config, "max_per_day", 3)
	seed := cfgInt(pctx.Config, "seed", 42)

	if contributors > len(sampleContributors) {
		contributors = len(sampleContributors)
	}
	rng := rand.New(rand.NewSource(int64(seed)))
	pctx.Logger.Info("generating sample data",
		"contributors", contributors, "days", days, "seed", seed)

	// Anchor the window to a fixed date so generated data is stable
	// across wall-clock time for a given seed.
	end := time.Date(2026, time.June, 30, 12, 0, 0, 0, time.UTC)

	totalActivities := 0
	for i := 0; i < contributors; i++ {
		c := sampleContributors[i]
		if err := query.UpsertContributor(ctx, pctx.DB, c); err != nil {
			return fmt.Errorf("upsert contributor %s: %w", c.Username, err)
		}

		seq := 0
		for day := 0; day < days; day++ {
			n := rng.Intn(maxPerDay + 1)
			for j := 0; j < n; j++ {
				defSlug := activityOrder[rng.Intn(len(activityOrder))]
				at := activityTypes[defSlug]
				occured := end.AddDate(0, 0, -day).
					Add(-time.Duration(rng.Intn(8)) * time.Hour)
				seq++
				activity := schema.Activity{
					Slug:               fmt.Sprintf("dummy__%s__%04d", c.Username, seq),
					Contributor:        c.Username,
					ActivityDefinition: defSlug,
					Title:              strp(fmt.Sprintf("%s by %s", at.name, c.Username)),
					OccuredAt:          occured.Format(time.RFC3339),
				}
				if err := query.UpsertActivity(ctx, pctx.DB, activity); err != nil {
					return fmt.Errorf("upsert activity %s: %w", activity.Slug, err)
				}
				totalActivities++
			}
		}
	}

	pctx.Logger.Info("sample data generated",
		"contributors", contributors, "activities", totalActivities)
	return nil
}

func badgeCatalog() []schema.BadgeDefinition {
	return []schema.BadgeDefinition{
		{
			Slug:        "activity_milestone",
			Name:        "Activity Milestone",
			Description: "Awarded for reaching activity count milestones",
			Variants: map[string]schema.BadgeVariant{
				"bronze":   {Description: "10+ activities", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=bronze-activity", Order: intp(1)},
				"silver":   {Description: "50+ activities", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=silver-activity", Order: intp(2)},
				"gold":     {Description: "100+ activities", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=gold-activity", Order: intp(3)},
				"platinum": {Description: "500+ activities", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=platinum-activity", Order: intp(4)},
			},
		},
		{
			Slug:        "points_milestone",
			Name:        "Points Milestone",
			Description: "Awarded for reaching points milestones",
			Variants: map[string]schema.BadgeVariant{
				"bronze":   {Description: "100+ points", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=bronze-points", Order: intp(1)},
				"silver":   {Description: "500+ points", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=silver-points", Order: intp(2)},
				"gold":     {Description: "1,000+ points", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=gold-points", Order: intp(3)},
				"platinum": {Description: "5,000+ points", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=platinum-points", Order: intp(4)},
			},
		},
		{
			Slug:        "consistency_champion",
			Name:        "Consistency Champion",
			Description: "Awarded for maintaining activity streaks",
			Variants: map[string]schema.BadgeVariant{
				"bronze":   {Description: "7 day streak", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=bronze-streak", Order: intp(1)},
				"silver":   {Description: "14 day streak", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=silver-streak", Order: intp(2)},
				"gold":     {Description: "30 day streak", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=gold-streak", Order: intp(3)},
				"platinum": {Description: "90 day streak", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=platinum-streak", Order: intp(4)},
			},
		},
		{
			Slug:        "pr_consistency",
			Name:        "PR Consistency",
			Description: "Awarded for maintaining a consistent pull request contribution streak",
			Variants: map[string]schema.BadgeVariant{
				"bronze": {Description: "5 day PR streak", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=bronze-pr-streak", Order: intp(1)},
				"silver": {Description: "10 day PR streak", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=silver-pr-streak", Order: intp(2)},
				"gold":   {Description: "21 day PR streak", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=gold-pr-streak", Order: intp(3)},
			},
		},
		{
			Slug:        "review_champion",
			Name:        "Review Champion",
			Description: "Awarded for consistent code review participation",
			Variants: map[string]schema.BadgeVariant{
				"bronze": {Description: "4 weeks of reviews", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=bronze-review", Order: intp(1)},
				"silver": {Description: "8 weeks of reviews", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=silver-review", Order: intp(2)},
				"gold":   {Description: "12 weeks of reviews", SVGURL: "https://api.dicebear.com/7.x/shapes/svg?seed=gold-review", Order: intp(3)},
			},
		},
	}
}

func cfgInt(m map[string]any, key string, def int) int {
	v, ok := m[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}
