package appdata

import (
	"sort"

	"neuroTrackAPI/internal/types/analysis"
	"neuroTrackAPI/internal/types/entry"
	"neuroTrackAPI/internal/types/goal"
	"neuroTrackAPI/internal/types/profile"
)

const SchemaVersion = 1

// AppData is the full per-user document the client works against.
type AppData struct {
	Profile   profile.UserProfile          `json:"profile"`
	History   map[string]*entry.DailyEntry `json:"history"`
	Goals     []*goal.Goal                 `json:"goals"`
	Analytics []*analysis.AIAnalysis       `json:"analytics"`
	Version   int                          `json:"version"`
}

func Default() *AppData {
	return &AppData{
		Profile:   profile.UserProfile{},
		History:   map[string]*entry.DailyEntry{},
		Goals:     []*goal.Goal{},
		Analytics: []*analysis.AIAnalysis{},
		Version:   SchemaVersion,
	}
}

// Normalize applies defaults to every optional field so downstream code never sees nils.
func (d *AppData) Normalize() {
	if d.History == nil {
		d.History = map[string]*entry.DailyEntry{}
	}
	for date, e := range d.History {
		if e == nil {
			delete(d.History, date)
			continue
		}
		e.Normalize(date)
	}
	goals := make([]*goal.Goal, 0, len(d.Goals))
	for _, g := range d.Goals {
		if g == nil {
			continue
		}
		if !g.Type.Valid() {
			g.Type = goal.ShortTerm
		}
		if g.Tasks == nil {
			g.Tasks = []entry.Todo{}
		}
		if g.Progress < 0 {
			g.Progress = 0
		}
		if g.Progress > 100 {
			g.Progress = 100
		}
		goals = append(goals, g)
	}
	d.Goals = goals

	analytics := make([]*analysis.AIAnalysis, 0, len(d.Analytics))
	for _, a := range d.Analytics {
		if a != nil {
			analytics = append(analytics, a)
		}
	}
	d.Analytics = analytics
	if d.Version == 0 {
		d.Version = SchemaVersion
	}
}

// SortedDates returns the history keys in ascending order.
func (d *AppData) SortedDates() []string {
	dates := make([]string, 0, len(d.History))
	for date := range d.History {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// LoadResponse wraps the document with whether it came from storage or is
// the offline default.
type LoadResponse struct {
	Data   *AppData `json:"data"`
	Synced bool     `json:"synced"`
}
