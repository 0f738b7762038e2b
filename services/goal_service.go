package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"neuroTrackAPI/internal/tracker"
	"neuroTrackAPI/internal/types/entry"
	"neuroTrackAPI/internal/types/goal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// planDeadlineDays is how far out an AI-planned goal's deadline lands when the
// caller does not pick one.
const planDeadlineDays = 30

type GoalService struct {
	db *pgxpool.Pool
	ai *AIService
}

func NewGoalService(db *pgxpool.Pool, ai *AIService) *GoalService {
	return &GoalService{db: db, ai: ai}
}

const selectGoalColumns = `id, title, description, goal_type, deadline, completed, progress, tasks`

const upsertGoalQuery = `
	INSERT INTO goals (id, user_id, title, description, goal_type, deadline, completed, progress, tasks)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		goal_type = EXCLUDED.goal_type,
		deadline = EXCLUDED.deadline,
		completed = EXCLUDED.completed,
		progress = EXCLUDED.progress,
		tasks = EXCLUDED.tasks
	WHERE goals.user_id = EXCLUDED.user_id
`

func goalArgs(userID uuid.UUID, g *goal.Goal) ([]any, error) {
	tasksJSON, err := json.Marshal(g.Tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal milestones: %w", err)
	}
	return []any{
		g.ID,
		userID,
		g.Title,
		g.Description,
		string(g.Type),
		g.Deadline,
		g.Completed,
		g.Progress,
		tasksJSON,
	}, nil
}

func scanGoal(row pgx.Row) (*goal.Goal, error) {
	var (
		goalType  string
		tasksJSON []byte
	)
	g := &goal.Goal{}
	err := row.Scan(
		&g.ID,
		&g.Title,
		&g.Description,
		&goalType,
		&g.Deadline,
		&g.Completed,
		&g.Progress,
		&tasksJSON,
	)
	if err != nil {
		return nil, err
	}

	g.Type = goal.GoalType(goalType)
	if err := json.Unmarshal(tasksJSON, &g.Tasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal milestones for goal %s: %w", g.ID, err)
	}
	if g.Tasks == nil {
		g.Tasks = []entry.Todo{}
	}
	return g, nil
}

// normalizeGoal fills ids and defaults and recomputes progress from milestones.
func normalizeGoal(g *goal.Goal) {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if !g.Type.Valid() {
		g.Type = goal.ShortTerm
	}
	if g.Tasks == nil {
		g.Tasks = []entry.Todo{}
	}
	for i := range g.Tasks {
		if g.Tasks[i].ID == "" {
			g.Tasks[i].ID = uuid.New().String()
		}
	}
	if len(g.Tasks) > 0 {
		tracker.RecalculateGoal(g)
	} else {
		tracker.SetGoalCompleted(g, g.Completed)
	}
}

func (s *GoalService) ListGoals(ctx context.Context, clerkID string) ([]*goal.Goal, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	return s.goalsFor(ctx, userID)
}

func (s *GoalService) goalsFor(ctx context.Context, userID uuid.UUID) ([]*goal.Goal, error) {
	query := `SELECT ` + selectGoalColumns + ` FROM goals WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	goals := []*goal.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}

	return goals, nil
}

func (s *GoalService) goalFor(ctx context.Context, userID uuid.UUID, goalID string) (*goal.Goal, error) {
	query := `SELECT ` + selectGoalColumns + ` FROM goals WHERE user_id = $1 AND id = $2`
	g, err := scanGoal(s.db.QueryRow(ctx, query, userID, goalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return g, nil
}

func validateGoalRequest(req *goal.CreateGoalRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return fmt.Errorf("%w: goal title is required", ErrInvalidInput)
	}
	if req.Type != "" && !req.Type.Valid() {
		return fmt.Errorf("%w: unknown goal type %q", ErrInvalidInput, req.Type)
	}
	if req.Deadline != "" {
		if _, err := tracker.ParseDate(req.Deadline); err != nil {
			return fmt.Errorf("%w: deadline must be YYYY-MM-DD", ErrInvalidInput)
		}
	}
	return nil
}

func (s *GoalService) CreateGoal(ctx context.Context, clerkID string, req *goal.CreateGoalRequest) (*goal.Goal, error) {
	if err := validateGoalRequest(req); err != nil {
		return nil, err
	}
	if req.Deadline == "" {
		return nil, fmt.Errorf("%w: goal deadline is required", ErrInvalidInput)
	}
	return s.insertGoal(ctx, clerkID, req, nil)
}

// PlanGoal creates a goal whose milestones are suggested by the AI service.
// Without a deadline the goal is due planDeadlineDays from today.
func (s *GoalService) PlanGoal(ctx context.Context, clerkID string, req *goal.CreateGoalRequest, now time.Time) (*goal.Goal, error) {
	if err := validateGoalRequest(req); err != nil {
		return nil, err
	}
	if req.Deadline == "" {
		req.Deadline = tracker.DateKey(now.AddDate(0, 0, planDeadlineDays))
	}
	if req.Type == "" {
		req.Type = goal.ShortTerm
	}

	milestones := s.ai.SuggestMilestones(ctx, req.Title, req.Type)
	return s.insertGoal(ctx, clerkID, req, milestones)
}

func (s *GoalService) insertGoal(ctx context.Context, clerkID string, req *goal.CreateGoalRequest, milestones []string) (*goal.Goal, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	g := &goal.Goal{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Type:        req.Type,
		Deadline:    req.Deadline,
		Tasks:       make([]entry.Todo, 0, len(milestones)),
	}
	for _, m := range milestones {
		g.Tasks = append(g.Tasks, entry.Todo{ID: uuid.New().String(), Text: m})
	}
	normalizeGoal(g)

	if err := s.save(ctx, userID, g); err != nil {
		return nil, err
	}

	log.Printf("GoalService: created goal %s with %d milestones", g.ID, len(g.Tasks))
	return g, nil
}

func (s *GoalService) save(ctx context.Context, userID uuid.UUID, g *goal.Goal) error {
	args, err := goalArgs(userID, g)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, upsertGoalQuery, args...); err != nil {
		return fmt.Errorf("failed to save goal: %w", err)
	}
	return nil
}

func (s *GoalService) mutate(ctx context.Context, clerkID, goalID string, fn func(g *goal.Goal) error) (*goal.Goal, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	g, err := s.goalFor(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	if err := fn(g); err != nil {
		return nil, err
	}
	if err := s.save(ctx, userID, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GoalService) UpdateGoal(ctx context.Context, clerkID, goalID string, req *goal.UpdateGoalRequest) (*goal.Goal, error) {
	return s.mutate(ctx, clerkID, goalID, func(g *goal.Goal) error {
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return fmt.Errorf("%w: goal title is required", ErrInvalidInput)
			}
			g.Title = title
		}
		if req.Description != nil {
			g.Description = *req.Description
		}
		if req.Type != nil {
			if !req.Type.Valid() {
				return fmt.Errorf("%w: unknown goal type %q", ErrInvalidInput, *req.Type)
			}
			g.Type = *req.Type
		}
		if req.Deadline != nil {
			if _, err := tracker.ParseDate(*req.Deadline); err != nil {
				return fmt.Errorf("%w: deadline must be YYYY-MM-DD", ErrInvalidInput)
			}
			g.Deadline = *req.Deadline
		}
		return nil
	})
}

func (s *GoalService) DeleteGoal(ctx context.Context, clerkID, goalID string) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx, `DELETE FROM goals WHERE user_id = $1 AND id = $2`, userID, goalID)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCompleted marks a goal done (progress 100) or reopens it (progress from milestones).
func (s *GoalService) SetCompleted(ctx context.Context, clerkID, goalID string, completed bool) (*goal.Goal, error) {
	return s.mutate(ctx, clerkID, goalID, func(g *goal.Goal) error {
		tracker.SetGoalCompleted(g, completed)
		return nil
	})
}

func (s *GoalService) AddMilestone(ctx context.Context, clerkID, goalID string, req *goal.AddMilestoneRequest) (*goal.Goal, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: milestone text is required", ErrInvalidInput)
	}
	return s.mutate(ctx, clerkID, goalID, func(g *goal.Goal) error {
		g.Tasks = append(g.Tasks, entry.Todo{ID: uuid.New().String(), Text: text})
		tracker.RecalculateGoal(g)
		return nil
	})
}

func (s *GoalService) ToggleMilestone(ctx context.Context, clerkID, goalID, taskID string) (*goal.Goal, error) {
	return s.mutate(ctx, clerkID, goalID, func(g *goal.Goal) error {
		for i := range g.Tasks {
			if g.Tasks[i].ID == taskID {
				g.Tasks[i].Completed = !g.Tasks[i].Completed
				tracker.RecalculateGoal(g)
				return nil
			}
		}
		return ErrNotFound
	})
}

func (s *GoalService) DeleteMilestone(ctx context.Context, clerkID, goalID, taskID string) (*goal.Goal, error) {
	return s.mutate(ctx, clerkID, goalID, func(g *goal.Goal) error {
		for i := range g.Tasks {
			if g.Tasks[i].ID == taskID {
				g.Tasks = append(g.Tasks[:i], g.Tasks[i+1:]...)
				tracker.RecalculateGoal(g)
				return nil
			}
		}
		return ErrNotFound
	})
}

// ReplaceGoals swaps the caller's whole goal list in one transaction.
func (s *GoalService) ReplaceGoals(ctx context.Context, clerkID string, goals []*goal.Goal) ([]*goal.Goal, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM goals WHERE user_id = $1`, userID)
	for _, g := range goals {
		if g == nil {
			continue
		}
		normalizeGoal(g)
		args, err := goalArgs(userID, g)
		if err != nil {
			return nil, err
		}
		batch.Queue(upsertGoalQuery, args...)
	}

	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace goals: %w", err)
	}

	return s.goalsFor(ctx, userID)
}
