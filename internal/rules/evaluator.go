package rules

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"time"

	"github.com/tallyboard/tally/internal/query"
	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

// outcome is what a rule concluded for one contributor.
type outcome struct {
	variant string
	meta    map[string]any
}

// Evaluate runs the rules against every contributor, awarding badges
// that are newly earned and upgrading held ones when a higher variant
// is reached. Badges are never downgraded. Rules whose badge
// definition is missing are skipped with a warning so a data repo can
// trim the badge catalog without touching code.
func Evaluate(ctx context.Context, db store.Store, ruleset []Rule, logger *slog.Logger, now time.Time) error {
	for _, r := range ruleset {
		if err := r.validate(); err != nil {
			return err
		}
	}

	badgeDefs, err := query.AllBadgeDefinitions(ctx, db)
	if err != nil {
		return err
	}
	defsBySlug := make(map[string]schema.BadgeDefinition, len(badgeDefs))
	for _, d := range badgeDefs {
		defsBySlug[d.Slug] = d
	}

	contributors, err := query.AllContributors(ctx, db)
	if err != nil {
		return err
	}

	today := now.UTC().Format("2006-01-02")
	awarded, upgraded := 0, 0

	for _, c := range contributors {
		for _, rule := range ruleset {
			if !rule.Enabled {
				continue
			}
			def, ok := defsBySlug[rule.Badge]
			if !ok {
				logger.Warn("rule skipped, badge definition missing", "badge", rule.Badge)
				continue
			}

			res, err := evaluateRule(ctx, db, rule, c.Username)
			if err != nil {
				return fmt.Errorf("rule %s for %s: %w", rule.Badge, c.Username, err)
			}
			if res == nil {
				continue
			}
			if _, ok := def.Variants[res.variant]; !ok {
				logger.Warn("rule earned a variant the badge does not declare",
					"badge", rule.Badge, "variant", res.variant)
				continue
			}

			held, err := query.ContributorBadgeFor(ctx, db, rule.Badge, c.Username)
			if err != nil {
				return err
			}
			meta := res.meta
			if meta == nil {
				meta = map[string]any{}
			}
			meta["rule_kind"] = string(rule.Kind)
			meta["auto_awarded"] = true

			if held == nil {
				err := query.AwardBadge(ctx, db, schema.ContributorBadge{
					Badge:       rule.Badge,
					Contributor: c.Username,
					Variant:     res.variant,
					AchievedOn:  today,
					Meta:        meta,
				})
				if err != nil {
					return err
				}
				logger.Info("badge awarded",
					"contributor", c.Username, "badge", rule.Badge, "variant", res.variant)
				awarded++
				continue
			}

			if rule.variantIndex(res.variant) > rule.variantIndex(held.Variant) {
				if err := query.UpgradeBadge(ctx, db, held.Slug, res.variant, today, meta); err != nil {
					return err
				}
				logger.Info("badge upgraded",
					"contributor", c.Username, "badge", rule.Badge,
					"from", held.Variant, "to", res.variant)
				upgraded++
			}
		}
	}

	logger.Info("badge rules evaluated",
		"rules", len(ruleset), "awarded", awarded, "upgraded", upgraded)
	return nil
}

func evaluateRule(ctx context.Context, db store.Store, rule Rule, username string) (*outcome, error) {
	switch rule.Kind {
	case ThresholdKind:
		return evaluateThreshold(ctx, db, rule, username)
	case StreakKind:
		return evaluateStreak(ctx, db, rule, username)
	default:
		return nil, fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
}

func evaluateThreshold(ctx context.Context, db store.Store, rule Rule, username string) (*outcome, error) {
	agg, err := query.ContributorAggregate(ctx, db, rule.Aggregate, username)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, nil
	}
	value, ok := valueAsNumber(agg.Value)
	if !ok {
		return nil, nil
	}
	best, ok := rule.bestVariant(value)
	if !ok {
		return nil, nil
	}
	return &outcome{
		variant: best.Variant,
		meta:    map[string]any{"aggregate": rule.Aggregate, "value": value},
	}, nil
}

func evaluateStreak(ctx context.Context, db store.Store, rule Rule, username string) (*outcome, error) {
	activities, err := query.ActivitiesByContributor(ctx, db, username, 0)
	if err != nil {
		return nil, err
	}

	var pattern *regexp.Regexp
	if rule.ActivityPattern != "" {
		pattern = regexp.MustCompile(rule.ActivityPattern)
	}

	days := make(map[string]struct{})
	for _, a := range activities {
		if pattern != nil && !pattern.MatchString(a.ActivityDefinition) {
			continue
		}
		if len(a.OccuredAt) >= 10 {
			days[a.OccuredAt[:10]] = struct{}{}
		}
	}
	streak := longestStreak(days)

	best, ok := rule.bestVariant(float64(streak))
	if !ok {
		return nil, nil
	}
	return &outcome{
		variant: best.Variant,
		meta:    map[string]any{"streak_days": streak},
	}, nil
}

// longestStreak finds the longest run of consecutive calendar days.
func longestStreak(daySet map[string]struct{}) int {
	if len(daySet) == 0 {
		return 0
	}
	days := make([]time.Time, 0, len(daySet))
	for d := range daySet {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		days = append(days, t)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 1
		}
	}
	return longest
}
