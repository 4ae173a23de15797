package rules

import "github.com/tallyboard/tally/core"

// StandardRules is the rule set every sync run evaluates. The two
// disabled streak rules ship so a data repo can flip them on once the
// matching badges make sense for its community.
func StandardRules() []Rule {
	return []Rule{
		{
			Kind:      ThresholdKind,
			Badge:     "activity_milestone",
			Enabled:   true,
			Aggregate: core.AggActivityCount,
			Thresholds: []Threshold{
				{Variant: "bronze", Value: 10},
				{Variant: "silver", Value: 50},
				{Variant: "gold", Value: 100},
				{Variant: "platinum", Value: 500},
			},
		},
		{
			Kind:      ThresholdKind,
			Badge:     "points_milestone",
			Enabled:   true,
			Aggregate: core.AggTotalActivityPoints,
			Thresholds: []Threshold{
				{Variant: "bronze", Value: 100},
				{Variant: "silver", Value: 500},
				{Variant: "gold", Value: 1000},
				{Variant: "platinum", Value: 5000},
			},
		},
		{
			Kind:    StreakKind,
			Badge:   "consistency_champion",
			Enabled: true,
			Thresholds: []Threshold{
				{Variant: "bronze", Value: 7},
				{Variant: "silver", Value: 14},
				{Variant: "gold", Value: 30},
				{Variant: "platinum", Value: 90},
			},
		},
		{
			Kind:            StreakKind,
			Badge:           "pr_consistency",
			Enabled:         false,
			ActivityPattern: `^pr_`,
			Thresholds: []Threshold{
				{Variant: "bronze", Value: 5},
				{Variant: "silver", Value: 10},
				{Variant: "gold", Value: 21},
			},
		},
		{
			Kind:            StreakKind,
			Badge:           "review_champion",
			Enabled:         false,
			ActivityPattern: `^pr_reviewed$`,
			Thresholds: []Threshold{
				{Variant: "bronze", Value: 28},
				{Variant: "silver", Value: 56},
				{Variant: "gold", Value: 84},
			},
		},
	}
}
