// Package rules awards and upgrades badges from declarative rules
// evaluated after the aggregation phase.
package rules

import (
	"fmt"
	"regexp"

	"github.com/tallyboard/tally/schema"
)

// Kind selects how a rule measures progress.
type Kind string

const (
	// ThresholdKind compares a contributor aggregate value against
	// per-variant minimums.
	ThresholdKind Kind = "threshold"
	// StreakKind measures the longest run of consecutive active days,
	// optionally restricted to matching activity definitions.
	StreakKind Kind = "streak"
)

// Threshold binds a badge variant to the minimum value that earns it.
// Thresholds are declared in ascending order; the position doubles as
// the variant's precedence for upgrades.
type Threshold struct {
	Variant string
	Value   float64
}

// Rule declares when a badge is earned.
type Rule struct {
	Kind    Kind
	Badge   string
	Enabled bool

	// Aggregate names the contributor aggregate a threshold rule
	// reads.
	Aggregate string

	// ActivityPattern optionally restricts a streak rule to activity
	// definitions matching the regexp. Empty means all activities.
	ActivityPattern string

	Thresholds []Threshold
}

// variantIndex is a variant's precedence within the rule; -1 when the
// rule does not declare it.
func (r Rule) variantIndex(variant string) int {
	for i, t := range r.Thresholds {
		if t.Variant == variant {
			return i
		}
	}
	return -1
}

// bestVariant picks the highest threshold the value satisfies.
func (r Rule) bestVariant(value float64) (Threshold, bool) {
	var best Threshold
	found := false
	for _, t := range r.Thresholds {
		if value >= t.Value {
			best = t
			found = true
		}
	}
	return best, found
}

func (r Rule) validate() error {
	if r.Badge == "" {
		return fmt.Errorf("rule has no badge")
	}
	if len(r.Thresholds) == 0 {
		return fmt.Errorf("rule %s has no thresholds", r.Badge)
	}
	switch r.Kind {
	case ThresholdKind:
		if r.Aggregate == "" {
			return fmt.Errorf("rule %s: threshold rules need an aggregate", r.Badge)
		}
	case StreakKind:
		if r.ActivityPattern != "" {
			if _, err := regexp.Compile(r.ActivityPattern); err != nil {
				return fmt.Errorf("rule %s: bad activity pattern: %w", r.Badge, err)
			}
		}
	default:
		return fmt.Errorf("rule %s: unknown kind %q", r.Badge, r.Kind)
	}
	return nil
}

// valueAsNumber extracts the numeric reading a threshold rule compares
// against.
func valueAsNumber(v schema.AggregateValue) (float64, bool) {
	switch val := v.(type) {
	case schema.NumberValue:
		return val.Value, true
	case schema.NumberStatisticsValue:
		if val.Sum != nil {
			return *val.Sum, true
		}
		if val.Count != nil {
			return float64(*val.Count), true
		}
		return 0, false
	default:
		return 0, false
	}
}
