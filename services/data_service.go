package services

import (
	"context"
	"fmt"
	"log"
	"neuroTrackAPI/internal/tracker"
	"neuroTrackAPI/internal/types/appdata"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DataService reads and writes the whole per-user document the client syncs against.
type DataService struct {
	db       *pgxpool.Pool
	profiles *ProfileService
	entries  *EntryService
	goals    *GoalService
	analyses *AnalysisService
}

func NewDataService(db *pgxpool.Pool, profiles *ProfileService, entries *EntryService, goals *GoalService, analyses *AnalysisService) *DataService {
	return &DataService{
		db:       db,
		profiles: profiles,
		entries:  entries,
		goals:    goals,
		analyses: analyses,
	}
}

// Load assembles the caller's AppData from every table.
func (s *DataService) Load(ctx context.Context, clerkID string) (*appdata.AppData, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	data := appdata.Default()

	p, err := s.profiles.profileFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	data.Profile = *p

	if data.History, err = s.entries.historyFor(ctx, userID, time.Time{}); err != nil {
		return nil, err
	}
	if data.Goals, err = s.goals.goalsFor(ctx, userID); err != nil {
		return nil, err
	}
	if data.Analytics, err = s.analyses.analysesFor(ctx, userID); err != nil {
		return nil, err
	}

	data.Normalize()
	return data, nil
}

// LoadForClient is Load plus the daily vanishing rule: analyses from earlier
// days are dropped from the result and purged in storage. A failed read is
// logged and answered with default data so the client stays usable; synced
// reports whether the data actually came from storage.
func (s *DataService) LoadForClient(ctx context.Context, clerkID string, now time.Time) (data *appdata.AppData, synced bool) {
	data, err := s.Load(ctx, clerkID)
	if err != nil {
		log.Printf("DataService: Warning: failed to load data for %s, serving defaults: %v", clerkID, err)
		return appdata.Default(), false
	}

	today := tracker.DateKey(now)
	kept, removed := tracker.FilterTodayAnalyses(data.Analytics, today)
	data.Analytics = kept
	if len(removed) > 0 {
		if _, err := s.analyses.PurgeStale(ctx, clerkID, today); err != nil {
			log.Printf("DataService: Warning: failed to purge %d stale analyses for %s: %v", len(removed), clerkID, err)
		}
	}

	return data, true
}

// Save writes the full document in a single transaction. Rows the document no
// longer contains are removed, so a failed save leaves storage untouched.
func (s *DataService) Save(ctx context.Context, clerkID string, data *appdata.AppData) (*appdata.AppData, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	data.Normalize()

	batch := &pgx.Batch{}
	batch.Queue(upsertProfileQuery, profileArgs(userID, data.Profile)...)

	dates := make([]time.Time, 0, len(data.History))
	for _, date := range data.SortedDates() {
		e := data.History[date]
		e.Date = date
		e.Recount()
		args, err := entryArgs(userID, e)
		if err != nil {
			return nil, err
		}
		day, _ := tracker.ParseDate(date)
		dates = append(dates, day)
		batch.Queue(upsertEntryQuery, args...)
	}
	batch.Queue(`DELETE FROM daily_entries WHERE user_id = $1 AND NOT (entry_date = ANY($2))`, userID, dates)

	goalIDs := make([]string, 0, len(data.Goals))
	for _, g := range data.Goals {
		normalizeGoal(g)
		args, err := goalArgs(userID, g)
		if err != nil {
			return nil, err
		}
		goalIDs = append(goalIDs, g.ID)
		batch.Queue(upsertGoalQuery, args...)
	}
	batch.Queue(`DELETE FROM goals WHERE user_id = $1 AND NOT (id = ANY($2))`, userID, goalIDs)

	analysisIDs := make([]string, 0, len(data.Analytics))
	analysisRows := make([][]any, 0, len(data.Analytics))
	for _, a := range data.Analytics {
		args, err := analysisArgs(userID, a)
		if err != nil {
			return nil, err
		}
		analysisIDs = append(analysisIDs, a.ID)
		analysisRows = append(analysisRows, args)
	}
	// Delete first so a replaced report does not collide on (user, day, type).
	batch.Queue(`DELETE FROM ai_analyses WHERE user_id = $1 AND NOT (id = ANY($2))`, userID, analysisIDs)
	for i, args := range analysisRows {
		batch.Queue(insertAnalysisQuery, args...)
		batch.Queue(`UPDATE ai_analyses SET is_read = $3 WHERE user_id = $1 AND id = $2`, userID, analysisIDs[i], data.Analytics[i].Read)
	}

	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save app data: %w", err)
	}

	log.Printf("DataService: saved %d entries, %d goals, %d analyses for %s",
		len(data.History), len(data.Goals), len(data.Analytics), clerkID)
	return data, nil
}

// Reset wipes the caller's tracked data but keeps the account itself.
func (s *DataService) Reset(ctx context.Context, clerkID string) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, table := range []string{"profiles", "daily_entries", "goals", "ai_analyses", "user_settings"} {
			if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE user_id = $1`, userID); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to reset data: %w", err)
	}

	log.Printf("DataService: reset all data for %s", clerkID)
	return nil
}
