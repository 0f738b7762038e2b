package dashboard

import (
	"neuroTrackAPI/internal/types/entry"
	"neuroTrackAPI/internal/types/goal"
)

type HeatmapDay struct {
	Date      string `json:"date"`
	Intensity int    `json:"intensity"`
	IsToday   bool   `json:"is_today"`
}

type Balance struct {
	Consistency int `json:"consistency"`
	TaskFocus   int `json:"task_focus"`
	GoalReach   int `json:"goal_reach"`
	Journaling  int `json:"journaling"`
	MentalLoad  int `json:"mental_load"`
}

type ProductivityPoint struct {
	Date       string  `json:"date"`
	Percentage float64 `json:"percentage"`
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
}

type Dashboard struct {
	Today           string                               `json:"today"`
	CurrentStreak   int                                  `json:"current_streak"`
	LongestStreak   int                                  `json:"longest_streak"`
	TodayCompleted  int                                  `json:"today_completed"`
	TodayTotal      int                                  `json:"today_total"`
	TodayIncomplete int                                  `json:"today_incomplete"`
	ProfileComplete bool                                 `json:"profile_complete"`
	Heatmap         []HeatmapDay                         `json:"heatmap"`
	Balance         Balance                              `json:"balance"`
	Productivity    []ProductivityPoint                  `json:"productivity"`
	Missed          entry.MissedTasksResponse            `json:"missed"`
	GoalBreakdown   map[goal.GoalType][]goal.CategoryBar `json:"goal_breakdown"`
}
