package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"neuroTrackAPI/internal/types/entry"
)

func day3(date string, completed, total int) *entry.DailyEntry {
	return &entry.DailyEntry{Date: date, CompletedCount: completed, TotalCount: total}
}

func at(date string) time.Time {
	t, err := time.Parse(entry.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return t.Add(12 * time.Hour)
}

func TestCalculateStreak_EmptyHistory(t *testing.T) {
	assert.Equal(t, 0, CalculateStreak(map[string]*entry.DailyEntry{}, at("2024-06-03")))
	assert.Equal(t, 0, CalculateStreak(nil, at("2024-06-03")))
}

func TestCalculateStreak_TodayInProgressDoesNotBreak(t *testing.T) {
	history := map[string]*entry.DailyEntry{
		"2024-06-01": day3("2024-06-01", 3, 3),
		"2024-06-02": day3("2024-06-02", 2, 2),
		"2024-06-03": day3("2024-06-03", 1, 4),
	}

	assert.Equal(t, 2, CalculateStreak(history, at("2024-06-03")))
}

func TestCalculateStreak_TodayCompleteCounts(t *testing.T) {
	history := map[string]*entry.DailyEntry{
		"2024-06-01": day3("2024-06-01", 3, 3),
		"2024-06-02": day3("2024-06-02", 2, 2),
		"2024-06-03": day3("2024-06-03", 4, 4),
	}

	assert.Equal(t, 3, CalculateStreak(history, at("2024-06-03")))
}

func TestCalculateStreak_KPlusOne(t *testing.T) {
	today := at("2024-06-20")
	for k := 0; k < 10; k++ {
		history := map[string]*entry.DailyEntry{}
		for i := 0; i <= k; i++ {
			key := DateKey(today.AddDate(0, 0, -i))
			history[key] = day3(key, 2, 2)
		}
		breaker := DateKey(today.AddDate(0, 0, -(k + 1)))
		history[breaker] = day3(breaker, 1, 2)
		older := DateKey(today.AddDate(0, 0, -(k + 2)))
		history[older] = day3(older, 5, 5)

		assert.Equal(t, k+1, CalculateStreak(history, today), "k=%d", k)
	}
}

func TestCalculateStreak_MissingYesterdayStops(t *testing.T) {
	history := map[string]*entry.DailyEntry{
		"2024-06-01": day3("2024-06-01", 1, 1),
		"2024-06-03": day3("2024-06-03", 1, 1),
	}

	assert.Equal(t, 1, CalculateStreak(history, at("2024-06-03")))
}

func TestCalculateStreak_EmptyDayIsNotComplete(t *testing.T) {
	history := map[string]*entry.DailyEntry{
		"2024-06-01": day3("2024-06-01", 1, 1),
		"2024-06-02": day3("2024-06-02", 0, 0),
	}

	assert.Equal(t, 0, CalculateStreak(history, at("2024-06-03")))
}

func TestCalculateStreak_CapsAtLookback(t *testing.T) {
	today := at("2024-12-31")
	history := map[string]*entry.DailyEntry{}
	for i := 0; i < 500; i++ {
		key := DateKey(today.AddDate(0, 0, -i))
		history[key] = day3(key, 1, 1)
	}

	assert.Equal(t, 365, CalculateStreak(history, today))
}

func TestLongestStreak(t *testing.T) {
	history := map[string]*entry.DailyEntry{
		"2024-05-01": day3("2024-05-01", 1, 1),
		"2024-05-02": day3("2024-05-02", 1, 1),
		"2024-05-03": day3("2024-05-03", 1, 1),
		"2024-05-04": day3("2024-05-04", 0, 1),
		"2024-05-10": day3("2024-05-10", 2, 2),
		"2024-05-11": day3("2024-05-11", 2, 2),
	}

	assert.Equal(t, 3, LongestStreak(history))
	assert.Equal(t, 0, LongestStreak(map[string]*entry.DailyEntry{}))
}

func TestCalculateStreak_RespectsLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skip("tzdata not available")
	}
	prev := Location
	Location = tokyo
	defer func() { Location = prev }()

	// 20:00 UTC on June 2 is already June 3 in Tokyo.
	now := time.Date(2024, 6, 2, 20, 0, 0, 0, time.UTC)
	history := map[string]*entry.DailyEntry{
		"2024-06-03": day3("2024-06-03", 1, 1),
	}

	assert.Equal(t, "2024-06-03", DateKey(now))
	assert.Equal(t, 1, CalculateStreak(history, now))
}
