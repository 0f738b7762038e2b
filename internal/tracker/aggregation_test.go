package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuroTrackAPI/internal/types/analysis"
	"neuroTrackAPI/internal/types/appdata"
	"neuroTrackAPI/internal/types/entry"
	"neuroTrackAPI/internal/types/goal"
)

func withTodos(date string, todos ...entry.Todo) *entry.DailyEntry {
	e := &entry.DailyEntry{Date: date, Todos: todos}
	e.Recount()
	return e
}

func TestFilterTodayAnalyses(t *testing.T) {
	analytics := []*analysis.AIAnalysis{
		{ID: "1", Date: "2024-06-02", Type: analysis.Weekly},
		{ID: "2", Date: "2024-06-03", Type: analysis.Weekly},
		{ID: "3", Date: "2024-05-31", Type: analysis.Monthly},
	}

	kept, removed := FilterTodayAnalyses(analytics, "2024-06-03")
	require.Len(t, kept, 1)
	assert.Equal(t, "2", kept[0].ID)
	assert.Len(t, removed, 2)

	keptAgain, removedAgain := FilterTodayAnalyses(kept, "2024-06-03")
	assert.Equal(t, kept, keptAgain)
	assert.Empty(t, removedAgain)
}

func TestFilterTodayAnalyses_Empty(t *testing.T) {
	kept, removed := FilterTodayAnalyses(nil, "2024-06-03")
	assert.NotNil(t, kept)
	assert.Empty(t, kept)
	assert.Empty(t, removed)
}

func TestMissedTasks(t *testing.T) {
	history := map[string]*entry.DailyEntry{
		"2024-06-01": withTodos("2024-06-01",
			entry.Todo{ID: "a", Text: "read"},
			entry.Todo{ID: "b", Text: "run", Completed: true},
		),
		"2024-06-02": withTodos("2024-06-02",
			entry.Todo{ID: "c", Text: "code", Completed: true},
		),
		"2024-06-03": withTodos("2024-06-03",
			entry.Todo{ID: "d", Text: "plan"},
			entry.Todo{ID: "e", Text: "cook"},
		),
		"2024-06-04": withTodos("2024-06-04",
			entry.Todo{ID: "f", Text: "today"},
		),
	}

	missed := MissedTasks(history, "2024-06-04")

	require.Len(t, missed.Days, 2)
	assert.Equal(t, "2024-06-03", missed.Days[0].Date)
	assert.Len(t, missed.Days[0].Todos, 2)
	assert.Equal(t, "2024-06-01", missed.Days[1].Date)
	assert.Equal(t, "a", missed.Days[1].Todos[0].ID)
	assert.Equal(t, 3, missed.TotalMissed)

	for _, d := range missed.Days {
		assert.NotEqual(t, "2024-06-04", d.Date)
		assert.NotEqual(t, "2024-06-02", d.Date)
	}

	require.Len(t, missed.Risk, 3)
	assert.Equal(t, "2024-06-01", missed.Risk[0].Date)
	assert.Equal(t, 0, missed.Risk[1].Missed)
}

func TestMissedTasks_RiskWindow(t *testing.T) {
	history := map[string]*entry.DailyEntry{}
	today := at("2024-06-30")
	for i := 1; i <= 20; i++ {
		key := DateKey(today.AddDate(0, 0, -i))
		history[key] = withTodos(key, entry.Todo{ID: key})
	}

	missed := MissedTasks(history, DateKey(today))
	assert.Len(t, missed.Days, 20)
	assert.Len(t, missed.Risk, 14)
	assert.Equal(t, DateKey(today.AddDate(0, 0, -14)), missed.Risk[0].Date)
}

func TestHeatmapIntensity(t *testing.T) {
	cases := []struct {
		name      string
		entry     *entry.DailyEntry
		intensity int
	}{
		{"no entry", nil, 0},
		{"empty day", &entry.DailyEntry{}, 0},
		{"journal only", &entry.DailyEntry{Journal: "felt good"}, 1},
		{"nothing done", &entry.DailyEntry{TotalCount: 4}, 1},
		{"ratio 0.3", &entry.DailyEntry{CompletedCount: 3, TotalCount: 10}, 1},
		{"ratio 0.31", &entry.DailyEntry{CompletedCount: 31, TotalCount: 100}, 2},
		{"ratio 0.6", &entry.DailyEntry{CompletedCount: 3, TotalCount: 5}, 2},
		{"ratio 0.75", &entry.DailyEntry{CompletedCount: 3, TotalCount: 4}, 3},
		{"ratio 1", &entry.DailyEntry{CompletedCount: 2, TotalCount: 2}, 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.intensity, HeatmapIntensity(tc.entry))
		})
	}
}

func TestHeatmap(t *testing.T) {
	history := map[string]*entry.DailyEntry{
		"2024-06-03": {CompletedCount: 1, TotalCount: 1},
		"2024-06-01": {Journal: "notes"},
	}

	cells := Heatmap(history, at("2024-06-03"), HeatmapDays("week"))
	require.Len(t, cells, 7)
	assert.Equal(t, "2024-05-28", cells[0].Date)
	assert.Equal(t, "2024-06-03", cells[6].Date)
	assert.True(t, cells[6].IsToday)
	assert.Equal(t, 4, cells[6].Intensity)
	assert.Equal(t, 1, cells[4].Intensity)

	assert.Equal(t, 30, HeatmapDays("month"))
	assert.Equal(t, 365, HeatmapDays("year"))
	assert.Equal(t, 7, HeatmapDays(""))
}

func TestBalanceScores(t *testing.T) {
	data := appdata.Default()
	data.History["2024-06-03"] = &entry.DailyEntry{CompletedCount: 2, TotalCount: 4, Journal: "a long reflective entry"}
	data.History["2024-06-02"] = &entry.DailyEntry{CompletedCount: 4, TotalCount: 4, Journal: "short"}
	data.History["2024-05-20"] = &entry.DailyEntry{CompletedCount: 9, TotalCount: 9}
	data.Goals = []*goal.Goal{{Completed: true}, {}, {}, {}}

	b := BalanceScores(data, at("2024-06-03"))

	assert.Equal(t, 29, b.Consistency)
	assert.Equal(t, 75, b.TaskFocus)
	assert.Equal(t, 25, b.GoalReach)
	assert.Equal(t, 14, b.Journaling)
	assert.Equal(t, 80, b.MentalLoad)
}

func TestBalanceScores_CapsAndEmpty(t *testing.T) {
	empty := BalanceScores(appdata.Default(), at("2024-06-03"))
	assert.Zero(t, empty.Consistency)
	assert.Zero(t, empty.TaskFocus)
	assert.Zero(t, empty.GoalReach)
	assert.Zero(t, empty.MentalLoad)

	data := appdata.Default()
	data.History["2024-06-03"] = &entry.DailyEntry{CompletedCount: 5, TotalCount: 25}
	assert.Equal(t, 100, BalanceScores(data, at("2024-06-03")).MentalLoad)
}

func TestBalanceScores_GapsCountAgainstWindow(t *testing.T) {
	data := appdata.Default()
	data.History["2024-06-03"] = &entry.DailyEntry{CompletedCount: 1, TotalCount: 1}
	data.History["2024-05-30"] = &entry.DailyEntry{CompletedCount: 1, TotalCount: 1}
	data.History["2024-05-27"] = &entry.DailyEntry{CompletedCount: 1, TotalCount: 1}

	b := BalanceScores(data, at("2024-06-03"))
	assert.Equal(t, 29, b.Consistency)
	assert.Equal(t, 100, b.TaskFocus)
	assert.Equal(t, 20, b.MentalLoad)
}

func TestProductivity(t *testing.T) {
	history := map[string]*entry.DailyEntry{}
	for i := 1; i <= 20; i++ {
		key := DateKey(at("2024-06-30").AddDate(0, 0, -i))
		history[key] = &entry.DailyEntry{CompletedCount: 1, TotalCount: 3}
	}

	points := Productivity(history)
	require.Len(t, points, 14)
	assert.Equal(t, "2024-06-29", points[13].Date)
	assert.Equal(t, 33.0, points[0].Percentage)
}

func TestGoalBreakdown(t *testing.T) {
	goals := []*goal.Goal{
		{Title: "Ship the side project", Type: goal.ShortTerm, Tasks: []entry.Todo{{Completed: true}, {}, {}}},
		{Title: "Read", Type: goal.ShortTerm},
		{Title: "Done", Type: goal.ShortTerm, Completed: true},
		{Title: "Marathon", Type: goal.LongTerm, Completed: true, Tasks: []entry.Todo{{}, {}}},
	}

	short := GoalBreakdown(goals, goal.ShortTerm)
	require.Len(t, short, 3)
	assert.Equal(t, "Ship the side p..", short[0].Name)
	assert.Equal(t, 1, short[0].Completed)
	assert.Equal(t, 2, short[0].Remaining)
	assert.Equal(t, 1, short[1].Remaining)
	assert.Equal(t, 1, short[2].Completed)

	long := GoalBreakdown(goals, goal.LongTerm)
	require.Len(t, long, 1)
	assert.Equal(t, 2, long[0].Completed)
	assert.Zero(t, long[0].Remaining)
}

func TestWindowEntries(t *testing.T) {
	history := map[string]*entry.DailyEntry{
		"2024-06-03": {Date: "2024-06-03"},
		"2024-06-01": {Date: "2024-06-01"},
		"2024-05-01": {Date: "2024-05-01"},
	}

	found, missing := WindowEntries(history, at("2024-06-03"), 7)
	require.Len(t, found, 2)
	assert.Equal(t, "2024-06-01", found[0].Date)
	assert.Equal(t, 5, missing)
}
