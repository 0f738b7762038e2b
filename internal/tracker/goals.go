package tracker

import (
	"neuroTrackAPI/internal/types/goal"
)

// GoalProgress derives progress from milestones. Without milestones the goal is
// either fully done or not started.
func GoalProgress(g *goal.Goal) float64 {
	if len(g.Tasks) == 0 {
		if g.Completed {
			return 100
		}
		return 0
	}
	done := 0
	for _, t := range g.Tasks {
		if t.Completed {
			done++
		}
	}
	return float64(done) / float64(len(g.Tasks)) * 100
}

// RecalculateGoal refreshes Progress after a milestone change.
func RecalculateGoal(g *goal.Goal) {
	g.Progress = GoalProgress(g)
}

// SetGoalCompleted flips the completion flag. Completing forces 100, reopening
// falls back to the milestone ratio.
func SetGoalCompleted(g *goal.Goal, completed bool) {
	g.Completed = completed
	if completed {
		g.Progress = 100
		return
	}
	g.Progress = GoalProgress(g)
}
