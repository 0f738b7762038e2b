package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"neuroTrackAPI/internal/tracker"
	"neuroTrackAPI/internal/types/entry"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EntryService struct {
	db *pgxpool.Pool
}

func NewEntryService(db *pgxpool.Pool) *EntryService {
	return &EntryService{db: db}
}

const selectEntryColumns = `entry_date, entry_timestamp, todos, journal, mood_score, completed_count, total_count, repeat_daily`

const upsertEntryQuery = `
	INSERT INTO daily_entries (user_id, entry_date, entry_timestamp, todos, journal, mood_score, completed_count, total_count, repeat_daily)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (user_id, entry_date) DO UPDATE SET
		entry_timestamp = EXCLUDED.entry_timestamp,
		todos = EXCLUDED.todos,
		journal = EXCLUDED.journal,
		mood_score = EXCLUDED.mood_score,
		completed_count = EXCLUDED.completed_count,
		total_count = EXCLUDED.total_count,
		repeat_daily = EXCLUDED.repeat_daily
`

func entryArgs(userID uuid.UUID, e *entry.DailyEntry) ([]any, error) {
	date, err := tracker.ParseDate(e.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: bad entry date %q", ErrInvalidInput, e.Date)
	}
	todosJSON, err := json.Marshal(e.Todos)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal todos: %w", err)
	}
	return []any{
		userID,
		date,
		e.Timestamp,
		todosJSON,
		e.Journal,
		e.MoodScore,
		e.CompletedCount,
		e.TotalCount,
		e.RepeatDaily,
	}, nil
}

func scanEntry(row pgx.Row) (*entry.DailyEntry, error) {
	var (
		date      time.Time
		todosJSON []byte
	)
	e := &entry.DailyEntry{}
	err := row.Scan(
		&date,
		&e.Timestamp,
		&todosJSON,
		&e.Journal,
		&e.MoodScore,
		&e.CompletedCount,
		&e.TotalCount,
		&e.RepeatDaily,
	)
	if err != nil {
		return nil, err
	}

	e.Date = date.Format(entry.DateLayout)
	if err := json.Unmarshal(todosJSON, &e.Todos); err != nil {
		return nil, fmt.Errorf("failed to unmarshal todos for %s: %w", e.Date, err)
	}
	if e.Todos == nil {
		e.Todos = []entry.Todo{}
	}
	return e, nil
}

// GetHistory returns every logged day keyed by date.
func (s *EntryService) GetHistory(ctx context.Context, clerkID string) (map[string]*entry.DailyEntry, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	return s.historyFor(ctx, userID, time.Time{})
}

// historyFor loads entries on or after since; a zero since loads everything.
func (s *EntryService) historyFor(ctx context.Context, userID uuid.UUID, since time.Time) (map[string]*entry.DailyEntry, error) {
	query := `SELECT ` + selectEntryColumns + ` FROM daily_entries WHERE user_id = $1 AND entry_date >= $2 ORDER BY entry_date`

	rows, err := s.db.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	history := map[string]*entry.DailyEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		history[e.Date] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return history, nil
}

func (s *EntryService) entryFor(ctx context.Context, userID uuid.UUID, date string) (*entry.DailyEntry, error) {
	day, err := tracker.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidInput, date)
	}

	query := `SELECT ` + selectEntryColumns + ` FROM daily_entries WHERE user_id = $1 AND entry_date = $2`
	e, err := scanEntry(s.db.QueryRow(ctx, query, userID, day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return e, nil
}

// GetEntry returns the day's entry. A day with no record comes back empty; for
// today that empty day is seeded with yesterday's tasks when yesterday had
// repeat enabled.
func (s *EntryService) GetEntry(ctx context.Context, clerkID string, date string) (*entry.DailyEntry, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	return s.loadOrSeed(ctx, userID, date)
}

func (s *EntryService) loadOrSeed(ctx context.Context, userID uuid.UUID, date string) (*entry.DailyEntry, error) {
	e, err := s.entryFor(ctx, userID, date)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	e = entry.New(date)
	if date != tracker.Today() {
		return e, nil
	}

	yesterday, err := tracker.ShiftDate(date, -1)
	if err != nil {
		return nil, err
	}
	prev, err := s.entryFor(ctx, userID, yesterday)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return e, nil
		}
		log.Printf("EntryService: Warning: could not read %s for repeat seeding: %v", yesterday, err)
		return e, nil
	}
	if !prev.RepeatDaily {
		return e, nil
	}

	// Persist the seeded day so the new task ids stay stable.
	e.Todos = entry.RepeatFrom(prev.Todos)
	e.RepeatDaily = true
	e.Recount()
	if err := s.upsert(ctx, userID, e); err != nil {
		return nil, err
	}
	return e, nil
}

// SaveEntry replaces the day's entry with e.
func (s *EntryService) SaveEntry(ctx context.Context, clerkID string, date string, e *entry.DailyEntry) (*entry.DailyEntry, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	e.Date = date
	e.Normalize(date)
	e.Recount()
	if err := s.upsert(ctx, userID, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EntryService) upsert(ctx context.Context, userID uuid.UUID, e *entry.DailyEntry) error {
	args, err := entryArgs(userID, e)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, upsertEntryQuery, args...); err != nil {
		return fmt.Errorf("failed to save entry %s: %w", e.Date, err)
	}
	return nil
}

func (s *EntryService) DeleteEntry(ctx context.Context, clerkID string, date string) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}
	day, err := tracker.ParseDate(date)
	if err != nil {
		return fmt.Errorf("%w: bad date %q", ErrInvalidInput, date)
	}

	result, err := s.db.Exec(ctx, `DELETE FROM daily_entries WHERE user_id = $1 AND entry_date = $2`, userID, day)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// mutate loads (or seeds) the day, applies fn and writes the result back with
// fresh counters. With mustExist, a day that was never logged is ErrNotFound.
func (s *EntryService) mutate(ctx context.Context, clerkID, date string, mustExist bool, fn func(e *entry.DailyEntry) error) (*entry.DailyEntry, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	var e *entry.DailyEntry
	if mustExist {
		e, err = s.entryFor(ctx, userID, date)
	} else {
		e, err = s.loadOrSeed(ctx, userID, date)
	}
	if err != nil {
		return nil, err
	}

	if err := fn(e); err != nil {
		return nil, err
	}

	e.Recount()
	if err := s.upsert(ctx, userID, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EntryService) AddTodo(ctx context.Context, clerkID, date string, req *entry.AddTodoRequest) (*entry.DailyEntry, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: todo text is required", ErrInvalidInput)
	}

	return s.mutate(ctx, clerkID, date, false, func(e *entry.DailyEntry) error {
		e.Todos = append(e.Todos, entry.Todo{
			ID:           uuid.New().String(),
			Text:         text,
			LinkedGoalID: req.LinkedGoalID,
		})
		return nil
	})
}

func (s *EntryService) ToggleTodo(ctx context.Context, clerkID, date, todoID string) (*entry.DailyEntry, error) {
	return s.mutate(ctx, clerkID, date, true, func(e *entry.DailyEntry) error {
		for i := range e.Todos {
			if e.Todos[i].ID == todoID {
				e.Todos[i].Completed = !e.Todos[i].Completed
				return nil
			}
		}
		return ErrNotFound
	})
}

func (s *EntryService) DeleteTodo(ctx context.Context, clerkID, date, todoID string) (*entry.DailyEntry, error) {
	return s.mutate(ctx, clerkID, date, true, func(e *entry.DailyEntry) error {
		return removeTodo(e, todoID)
	})
}

func removeTodo(e *entry.DailyEntry, todoID string) error {
	for i := range e.Todos {
		if e.Todos[i].ID == todoID {
			e.Todos = append(e.Todos[:i], e.Todos[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *EntryService) UpdateJournal(ctx context.Context, clerkID, date string, req *entry.UpdateJournalRequest) (*entry.DailyEntry, error) {
	return s.mutate(ctx, clerkID, date, false, func(e *entry.DailyEntry) error {
		e.Journal = req.Journal
		if req.MoodScore != nil {
			e.MoodScore = *req.MoodScore
			if e.MoodScore < 0 || e.MoodScore > 10 {
				return fmt.Errorf("%w: mood score must be between 0 and 10", ErrInvalidInput)
			}
		}
		return nil
	})
}

func (s *EntryService) SetRepeatDaily(ctx context.Context, clerkID, date string, repeat bool) (*entry.DailyEntry, error) {
	return s.mutate(ctx, clerkID, date, false, func(e *entry.DailyEntry) error {
		e.RepeatDaily = repeat
		return nil
	})
}

// DeleteMissedTodo drops a single unfinished task from a past day.
func (s *EntryService) DeleteMissedTodo(ctx context.Context, clerkID, date, todoID string) (*entry.DailyEntry, error) {
	return s.mutate(ctx, clerkID, date, true, func(e *entry.DailyEntry) error {
		return removeTodo(e, todoID)
	})
}

// ClearMissedDay keeps only the completed tasks of a past day.
func (s *EntryService) ClearMissedDay(ctx context.Context, clerkID, date string) (*entry.DailyEntry, error) {
	return s.mutate(ctx, clerkID, date, true, func(e *entry.DailyEntry) error {
		kept := []entry.Todo{}
		for _, t := range e.Todos {
			if t.Completed {
				kept = append(kept, t)
			}
		}
		e.Todos = kept
		return nil
	})
}
