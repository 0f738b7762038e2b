package entry

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-day key used for history maps and the daily_entries.date column.
const DateLayout = "2006-01-02"

type Todo struct {
	ID           string  `json:"id"`
	Text         string  `json:"text"`
	Completed    bool    `json:"completed"`
	LinkedGoalID *string `json:"linkedGoalId,omitempty"`
}

type DailyEntry struct {
	Date           string    `json:"date" db:"date"`
	Timestamp      time.Time `json:"timestamp" db:"timestamp"`
	Todos          []Todo    `json:"todos" db:"todos"`
	Journal        string    `json:"journal" db:"journal"`
	MoodScore      int       `json:"moodScore" db:"mood_score"`
	CompletedCount int       `json:"completedCount" db:"completed_count"`
	TotalCount     int       `json:"totalCount" db:"total_count"`
	RepeatDaily    bool      `json:"repeatDaily" db:"repeat_daily"`
}

// New returns an empty entry for the given day.
func New(date string) *DailyEntry {
	return &DailyEntry{
		Date:      date,
		Timestamp: time.Now().UTC(),
		Todos:     []Todo{},
	}
}

// Recount refreshes the denormalized counters and the update timestamp.
func (e *DailyEntry) Recount() {
	completed := 0
	for _, t := range e.Todos {
		if t.Completed {
			completed++
		}
	}
	e.CompletedCount = completed
	e.TotalCount = len(e.Todos)
	e.Timestamp = time.Now().UTC()
}

// IsComplete reports whether every task of a non-empty day is done.
func (e *DailyEntry) IsComplete() bool {
	return e != nil && e.TotalCount > 0 && e.CompletedCount == e.TotalCount
}

// Incomplete returns the todos that are still open.
func (e *DailyEntry) Incomplete() []Todo {
	open := []Todo{}
	for _, t := range e.Todos {
		if !t.Completed {
			open = append(open, t)
		}
	}
	return open
}

// Normalize fills defaults for fields that may be missing on ingestion.
func (e *DailyEntry) Normalize(date string) {
	if e.Date == "" {
		e.Date = date
	}
	if e.Todos == nil {
		e.Todos = []Todo{}
	}
	for i := range e.Todos {
		if e.Todos[i].ID == "" {
			e.Todos[i].ID = uuid.New().String()
		}
	}
	if e.MoodScore < 0 {
		e.MoodScore = 0
	}
	if e.MoodScore > 10 {
		e.MoodScore = 10
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
}

// RepeatFrom copies the todos of a previous day as fresh, incomplete tasks.
func RepeatFrom(previous []Todo) []Todo {
	repeated := make([]Todo, 0, len(previous))
	for _, t := range previous {
		repeated = append(repeated, Todo{
			ID:           uuid.New().String(),
			Text:         t.Text,
			LinkedGoalID: t.LinkedGoalID,
		})
	}
	return repeated
}

type AddTodoRequest struct {
	Text         string  `json:"text"`
	LinkedGoalID *string `json:"linkedGoalId,omitempty"`
}

type UpdateJournalRequest struct {
	Journal   string `json:"journal"`
	MoodScore *int   `json:"moodScore,omitempty"`
}

type RepeatDailyRequest struct {
	RepeatDaily bool `json:"repeatDaily"`
}

type MissedDay struct {
	Date  string `json:"date"`
	Todos []Todo `json:"todos"`
}

type MissedTasksResponse struct {
	Days        []MissedDay  `json:"days"`
	TotalMissed int          `json:"total_missed"`
	Risk        []MissedRisk `json:"risk"`
}

type MissedRisk struct {
	Date   string `json:"date"`
	Missed int    `json:"missed"`
}
