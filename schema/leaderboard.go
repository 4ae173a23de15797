package schema

// ActivityBreakdown groups a contributor's activities by definition
// with effective point totals.
type ActivityBreakdown struct {
	ActivityDefinition string `json:"activity_definition"`
	ActivityName       string `json:"activity_name"`
	Count              int    `json:"count"`
	TotalPoints        int    `json:"total_points"`
}

// LeaderboardEntry is one ranked row. Ranks use competition ranking:
// ties share a rank and the next distinct score skips past them.
type LeaderboardEntry struct {
	Rank              int                 `json:"rank"`
	Contributor       Contributor         `json:"contributor"`
	TotalPoints       int                 `json:"total_points"`
	ActivityCount     int                 `json:"activity_count"`
	ActivityBreakdown []ActivityBreakdown `json:"activity_breakdown"`
}

// RankSet holds a contributor's rank in each standard time window.
// Zero means unranked (no activity in the window).
type RankSet struct {
	AllTime int `json:"all_time"`
	Yearly  int `json:"yearly"`
	Monthly int `json:"monthly"`
	Weekly  int `json:"weekly"`
}

// ContributorStats is the full profile view for one contributor.
type ContributorStats struct {
	Contributor       Contributor         `json:"contributor"`
	TotalPoints       int                 `json:"total_points"`
	ActivityCount     int                 `json:"activity_count"`
	ActivityBreakdown []ActivityBreakdown `json:"activity_breakdown"`
	RecentActivities  []Activity          `json:"recent_activities"`
	Ranks             RankSet             `json:"ranks"`
}
