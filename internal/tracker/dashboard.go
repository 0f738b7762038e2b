package tracker

import (
	"time"

	"neuroTrackAPI/internal/types/appdata"
	"neuroTrackAPI/internal/types/dashboard"
	"neuroTrackAPI/internal/types/goal"
)

// BuildDashboard derives every dashboard figure from one snapshot of the data.
func BuildDashboard(data *appdata.AppData, now time.Time, heatmapView string) *dashboard.Dashboard {
	today := DateKey(now)
	d := &dashboard.Dashboard{
		Today:           today,
		CurrentStreak:   CalculateStreak(data.History, now),
		LongestStreak:   LongestStreak(data.History),
		ProfileComplete: data.Profile.IsComplete(),
		Heatmap:         Heatmap(data.History, now, HeatmapDays(heatmapView)),
		Balance:         BalanceScores(data, now),
		Productivity:    Productivity(data.History),
		Missed:          MissedTasks(data.History, today),
		GoalBreakdown: map[goal.GoalType][]goal.CategoryBar{
			goal.ShortTerm: GoalBreakdown(data.Goals, goal.ShortTerm),
			goal.LongTerm:  GoalBreakdown(data.Goals, goal.LongTerm),
		},
	}

	if e, ok := data.History[today]; ok && e != nil {
		d.TodayCompleted = e.CompletedCount
		d.TodayTotal = e.TotalCount
		d.TodayIncomplete = e.TotalCount - e.CompletedCount
	}

	return d
}

// ActiveGoalCounts counts unfinished goals per horizon.
func ActiveGoalCounts(goals []*goal.Goal) (shortTerm, longTerm int) {
	for _, g := range goals {
		if g.Completed {
			continue
		}
		if g.Type == goal.LongTerm {
			longTerm++
		} else {
			shortTerm++
		}
	}
	return shortTerm, longTerm
}
