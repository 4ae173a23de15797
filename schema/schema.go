// Package schema holds the shared data types for the tally pipeline:
// the synced entities, the aggregate value union, and the view types
// produced by the leaderboard engine.
package schema

// Contributor is a person tracked by the leaderboard. The username is
// the primary key everywhere else (activities, aggregates, badges).
type Contributor struct {
	Username       string            `json:"username"`
	Name           *string           `json:"name,omitempty"`
	Role           *string           `json:"role,omitempty"`
	Title          *string           `json:"title,omitempty"`
	AvatarURL      *string           `json:"avatar_url,omitempty"`
	Bio            *string           `json:"bio,omitempty"`
	SocialProfiles map[string]string `json:"social_profiles,omitempty"`
	JoiningDate    *string           `json:"joining_date,omitempty"`
	Meta           map[string]any    `json:"meta,omitempty"`
}

// ActivityDefinition is a catalog entry describing a kind of activity.
// Points here act as the default when an activity carries none.
type ActivityDefinition struct {
	Slug        string  `json:"slug"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Points      *int    `json:"points,omitempty"`
	Icon        *string `json:"icon,omitempty"`
}

// Activity is a single contribution event. OccuredAt is an ISO-8601
// timestamp string; it stays a string end to end so that file exports
// reproduce exactly what was imported.
type Activity struct {
	Slug               string         `json:"slug"`
	Contributor        string         `json:"contributor"`
	ActivityDefinition string         `json:"activity_definition"`
	Title              *string        `json:"title,omitempty"`
	OccuredAt          string         `json:"occured_at"`
	Link               *string        `json:"link,omitempty"`
	Text               *string        `json:"text,omitempty"`
	Points             *int           `json:"points,omitempty"`
	Meta               map[string]any `json:"meta,omitempty"`
}

// GlobalAggregate is an org-wide computed metric.
type GlobalAggregate struct {
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	Description *string        `json:"description,omitempty"`
	Value       AggregateValue `json:"value"`
	Hidden      bool           `json:"hidden,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// ContributorAggregateDefinition is the catalog entry for a
// per-contributor metric.
type ContributorAggregateDefinition struct {
	Slug        string  `json:"slug"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Hidden      bool    `json:"hidden,omitempty"`
}

// ContributorAggregate is a per-contributor metric value, keyed by
// (aggregate, contributor).
type ContributorAggregate struct {
	Aggregate   string         `json:"aggregate"`
	Contributor string         `json:"contributor"`
	Value       AggregateValue `json:"value"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// BadgeVariant is one tier of a badge (bronze, silver, ...).
type BadgeVariant struct {
	Description string `json:"description"`
	SVGURL      string `json:"svg_url"`
	Order       *int   `json:"order,omitempty"`
}

// BadgeDefinition describes a badge and its variants.
type BadgeDefinition struct {
	Slug        string                  `json:"slug"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Variants    map[string]BadgeVariant `json:"variants"`
}

// ContributorBadge records a badge held by a contributor. The slug is
// deterministic: badge__username__variant. AchievedOn is a yyyy-MM-dd
// date string.
type ContributorBadge struct {
	Slug        string         `json:"slug"`
	Badge       string         `json:"badge"`
	Contributor string         `json:"contributor"`
	Variant     string         `json:"variant"`
	AchievedOn  string         `json:"achieved_on"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// BadgeSlug builds the deterministic contributor badge slug.
func BadgeSlug(badge, username, variant string) string {
	return badge + "__" + username + "__" + variant
}
