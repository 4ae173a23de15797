package core

import "github.com/tallyboard/tally/schema"

// assignRanks applies competition ranking to entries already sorted by
// total points descending: equal scores share a rank, and the rank
// after a tie skips past the tied block, so 50,50,30,10 ranks as
// 1,1,3,4.
func assignRanks(entries []schema.LeaderboardEntry) {
	currentRank := 0
	previousPoints := 0
	skip := 0
	for i := range entries {
		if i == 0 || entries[i].TotalPoints != previousPoints {
			currentRank += skip + 1
			skip = 0
		} else {
			skip++
		}
		entries[i].Rank = currentRank
		previousPoints = entries[i].TotalPoints
	}
}
