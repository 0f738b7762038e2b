package tracker

import (
	"math"
	"sort"
	"time"
	"unicode/utf8"

	"neuroTrackAPI/internal/types/analysis"
	"neuroTrackAPI/internal/types/appdata"
	"neuroTrackAPI/internal/types/dashboard"
	"neuroTrackAPI/internal/types/entry"
	"neuroTrackAPI/internal/types/goal"
)

const (
	balanceWindowDays   = 7
	journalMinChars     = 10
	mentalLoadFullTasks = 10
	missedRiskDays      = 14
	productivityDays    = 14
	goalNameMaxRunes    = 15
)

func sortedKeys(history map[string]*entry.DailyEntry) []string {
	keys := make([]string, 0, len(history))
	for k := range history {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FilterTodayAnalyses splits analyses into those created today and the stale rest.
// Reports vanish once their day is over; callers persist the removal.
func FilterTodayAnalyses(analytics []*analysis.AIAnalysis, today string) (kept, removed []*analysis.AIAnalysis) {
	kept = []*analysis.AIAnalysis{}
	for _, a := range analytics {
		if a.Date == today {
			kept = append(kept, a)
		} else {
			removed = append(removed, a)
		}
	}
	return kept, removed
}

// MissedTasks collects unfinished todos from every day strictly before today,
// newest day first. Days without open todos are left out.
func MissedTasks(history map[string]*entry.DailyEntry, today string) entry.MissedTasksResponse {
	resp := entry.MissedTasksResponse{
		Days: []entry.MissedDay{},
		Risk: []entry.MissedRisk{},
	}

	keys := sortedKeys(history)
	var past []string
	for _, date := range keys {
		if date < today {
			past = append(past, date)
		}
	}

	for i := len(past) - 1; i >= 0; i-- {
		date := past[i]
		open := history[date].Incomplete()
		if len(open) == 0 {
			continue
		}
		resp.Days = append(resp.Days, entry.MissedDay{Date: date, Todos: open})
		resp.TotalMissed += len(open)
	}

	riskFrom := 0
	if len(past) > missedRiskDays {
		riskFrom = len(past) - missedRiskDays
	}
	for _, date := range past[riskFrom:] {
		resp.Risk = append(resp.Risk, entry.MissedRisk{
			Date:   date,
			Missed: len(history[date].Incomplete()),
		})
	}

	return resp
}

// HeatmapIntensity buckets a day into 0-4 by completion ratio.
func HeatmapIntensity(e *entry.DailyEntry) int {
	if e == nil {
		return 0
	}
	if e.TotalCount > 0 {
		ratio := float64(e.CompletedCount) / float64(e.TotalCount)
		switch {
		case ratio >= 1:
			return 4
		case ratio > 0.6:
			return 3
		case ratio > 0.3:
			return 2
		default:
			return 1
		}
	}
	if e.Journal != "" {
		return 1
	}
	return 0
}

// HeatmapDays maps a view name to the number of days it covers.
func HeatmapDays(view string) int {
	switch view {
	case "month":
		return 30
	case "year":
		return 365
	default:
		return 7
	}
}

// Heatmap returns one cell per day for the given number of days ending today, oldest first.
func Heatmap(history map[string]*entry.DailyEntry, now time.Time, days int) []dashboard.HeatmapDay {
	start := day(now)
	today := start.Format(entry.DateLayout)
	cells := make([]dashboard.HeatmapDay, 0, days)

	for i := days - 1; i >= 0; i-- {
		key := start.AddDate(0, 0, -i).Format(entry.DateLayout)
		cells = append(cells, dashboard.HeatmapDay{
			Date:      key,
			Intensity: HeatmapIntensity(history[key]),
			IsToday:   key == today,
		})
	}

	return cells
}

func percent(part, whole float64) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(math.Min(100, part/whole*100)))
}

// BalanceScores computes the five radar axes over the seven calendar days
// ending today. Days without an entry still count toward the window, so
// gaps pull consistency down instead of being skipped.
func BalanceScores(data *appdata.AppData, now time.Time) dashboard.Balance {
	start := day(now)

	logged, totalTasks, completedTasks, journaled := 0, 0, 0, 0
	for i := 0; i < balanceWindowDays; i++ {
		e, ok := data.History[start.AddDate(0, 0, -i).Format(entry.DateLayout)]
		if !ok || e == nil {
			continue
		}
		logged++
		totalTasks += e.TotalCount
		completedTasks += e.CompletedCount
		if utf8.RuneCountInString(e.Journal) > journalMinChars {
			journaled++
		}
	}

	completedGoals := 0
	for _, g := range data.Goals {
		if g.Completed {
			completedGoals++
		}
	}

	return dashboard.Balance{
		Consistency: percent(float64(logged), balanceWindowDays),
		TaskFocus:   percent(float64(completedTasks), float64(totalTasks)),
		GoalReach:   percent(float64(completedGoals), float64(len(data.Goals))),
		Journaling:  percent(float64(journaled), balanceWindowDays),
		MentalLoad:  percent(float64(totalTasks), mentalLoadFullTasks),
	}
}

// Productivity reports the completion percentage of the most recent logged days.
func Productivity(history map[string]*entry.DailyEntry) []dashboard.ProductivityPoint {
	keys := sortedKeys(history)
	if len(keys) > productivityDays {
		keys = keys[len(keys)-productivityDays:]
	}

	points := make([]dashboard.ProductivityPoint, 0, len(keys))
	for _, date := range keys {
		e := history[date]
		pct := 0.0
		if e.TotalCount > 0 {
			pct = float64(e.CompletedCount) / float64(e.TotalCount) * 100
		}
		points = append(points, dashboard.ProductivityPoint{
			Date:       date,
			Percentage: math.Round(pct),
			Completed:  e.CompletedCount,
			Total:      e.TotalCount,
		})
	}
	return points
}

func shortName(title string) string {
	if utf8.RuneCountInString(title) <= goalNameMaxRunes {
		return title
	}
	return string([]rune(title)[:goalNameMaxRunes]) + ".."
}

// GoalBreakdown turns goals of one type into completed/remaining milestone bars.
// A goal without milestones counts as a single unit.
func GoalBreakdown(goals []*goal.Goal, t goal.GoalType) []goal.CategoryBar {
	bars := []goal.CategoryBar{}
	for _, g := range goals {
		if g.Type != t {
			continue
		}
		bar := goal.CategoryBar{Name: shortName(g.Title), FullTitle: g.Title}
		total := len(g.Tasks)
		done := 0
		for _, task := range g.Tasks {
			if task.Completed {
				done++
			}
		}

		switch {
		case g.Completed && total == 0:
			bar.Completed = 1
		case g.Completed:
			bar.Completed = total
		case total == 0:
			bar.Remaining = 1
		default:
			bar.Completed = done
			bar.Remaining = total - done
		}
		bars = append(bars, bar)
	}
	return bars
}

// WindowEntries returns the entries of the given number of days ending today,
// oldest first, and how many of those days have no entry.
func WindowEntries(history map[string]*entry.DailyEntry, now time.Time, days int) ([]*entry.DailyEntry, int) {
	start := day(now)
	var found []*entry.DailyEntry
	missing := 0
	for i := days - 1; i >= 0; i-- {
		if e, ok := history[start.AddDate(0, 0, -i).Format(entry.DateLayout)]; ok && e != nil {
			found = append(found, e)
		} else {
			missing++
		}
	}
	return found, missing
}
