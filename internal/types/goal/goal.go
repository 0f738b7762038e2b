package goal

import (
	"neuroTrackAPI/internal/types/entry"
)

type GoalType string

const (
	ShortTerm GoalType = "short-term"
	LongTerm  GoalType = "long-term"
)

func (t GoalType) Valid() bool {
	return t == ShortTerm || t == LongTerm
}

type Goal struct {
	ID          string       `json:"id" db:"id"`
	Title       string       `json:"title" db:"title"`
	Description string       `json:"description" db:"description"`
	Type        GoalType     `json:"type" db:"type"`
	Deadline    string       `json:"deadline" db:"deadline"`
	Completed   bool         `json:"completed" db:"completed"`
	Progress    float64      `json:"progress" db:"progress"`
	Tasks       []entry.Todo `json:"tasks" db:"tasks"`
}

type CreateGoalRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Type        GoalType `json:"type"`
	Deadline    string   `json:"deadline"`
}

type UpdateGoalRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Type        *GoalType `json:"type,omitempty"`
	Deadline    *string   `json:"deadline,omitempty"`
}

type AddMilestoneRequest struct {
	Text string `json:"text"`
}

// CategoryBar is one goal in the per-type milestone breakdown.
type CategoryBar struct {
	Name      string `json:"name"`
	FullTitle string `json:"fullTitle"`
	Completed int    `json:"completed"`
	Remaining int    `json:"remaining"`
}

type CompleteGoalRequest struct {
	Completed bool `json:"completed"`
}
