package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tallyboard/tally/schema"
)

func entriesWithPoints(points ...int) []schema.LeaderboardEntry {
	out := make([]schema.LeaderboardEntry, len(points))
	for i, p := range points {
		out[i] = schema.LeaderboardEntry{TotalPoints: p}
	}
	return out
}

func ranksOf(entries []schema.LeaderboardEntry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.Rank
	}
	return out
}

func TestAssignRanks(t *testing.T) {
	tests := []struct {
		name   string
		points []int
		want   []int
	}{
		{"empty", nil, []int{}},
		{"single", []int{10}, []int{1}},
		{"distinct", []int{30, 20, 10}, []int{1, 2, 3}},
		{"tie shares rank and gaps", []int{50, 50, 30, 10}, []int{1, 1, 3, 4}},
		{"leading triple tie", []int{7, 7, 7, 2}, []int{1, 1, 1, 4}},
		{"tie in the middle", []int{9, 5, 5, 5, 1}, []int{1, 2, 2, 2, 5}},
		{"all tied", []int{3, 3, 3}, []int{1, 1, 1}},
		{"zeros still rank", []int{4, 0, 0}, []int{1, 2, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := entriesWithPoints(tt.points...)
			assignRanks(entries)
			assert.Equal(t, tt.want, ranksOf(entries))
		})
	}
}
