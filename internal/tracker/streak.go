package tracker

import (
	"time"

	"neuroTrackAPI/internal/types/entry"
)

const streakLookback = 365

// CalculateStreak counts consecutive complete days ending at today. Today only
// ever adds to the count: an unfinished today is still in progress, so the walk
// continues into yesterday. From yesterday on, the first incomplete or missing
// day ends the streak.
func CalculateStreak(history map[string]*entry.DailyEntry, now time.Time) int {
	start := day(now)
	streak := 0

	for i := 0; i < streakLookback; i++ {
		key := start.AddDate(0, 0, -i).Format(entry.DateLayout)
		complete := history[key].IsComplete()

		if complete {
			streak++
			continue
		}
		if i > 0 {
			break
		}
	}

	return streak
}

// LongestStreak finds the longest run of consecutive complete days anywhere in history.
func LongestStreak(history map[string]*entry.DailyEntry) int {
	longest, run := 0, 0
	var prev string

	for _, key := range sortedKeys(history) {
		if !history[key].IsComplete() {
			run = 0
			prev = ""
			continue
		}
		next, err := ShiftDate(prev, 1)
		if prev != "" && err == nil && next == key {
			run++
		} else {
			run = 1
		}
		prev = key
		if run > longest {
			longest = run
		}
	}

	return longest
}
