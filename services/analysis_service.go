package services

import (
	"context"
	"errors"
	"fmt"
	"neuroTrackAPI/internal/tracker"
	"neuroTrackAPI/internal/types/analysis"
	"neuroTrackAPI/internal/types/entry"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AnalysisService struct {
	db *pgxpool.Pool
}

func NewAnalysisService(db *pgxpool.Pool) *AnalysisService {
	return &AnalysisService{db: db}
}

const selectAnalysisColumns = `id, analysis_date, analysis_type, content, is_read`

// A second report for the same (user, day, type) is dropped by the unique index,
// as is a re-sent row with a known id.
const insertAnalysisQuery = `
	INSERT INTO ai_analyses (id, user_id, analysis_date, analysis_type, content, is_read)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT DO NOTHING
`

func analysisArgs(userID uuid.UUID, a *analysis.AIAnalysis) ([]any, error) {
	date, err := tracker.ParseDate(a.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: bad analysis date %q", ErrInvalidInput, a.Date)
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return []any{a.ID, userID, date, string(a.Type), a.Content, a.Read}, nil
}

func scanAnalysis(row pgx.Row) (*analysis.AIAnalysis, error) {
	var (
		date         time.Time
		analysisType string
	)
	a := &analysis.AIAnalysis{}
	if err := row.Scan(&a.ID, &date, &analysisType, &a.Content, &a.Read); err != nil {
		return nil, err
	}
	a.Date = date.Format(entry.DateLayout)
	a.Type = analysis.AnalysisType(analysisType)
	return a, nil
}

func (s *AnalysisService) ListAnalyses(ctx context.Context, clerkID string) ([]*analysis.AIAnalysis, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	return s.analysesFor(ctx, userID)
}

func (s *AnalysisService) analysesFor(ctx context.Context, userID uuid.UUID) ([]*analysis.AIAnalysis, error) {
	query := `SELECT ` + selectAnalysisColumns + ` FROM ai_analyses WHERE user_id = $1 ORDER BY analysis_date DESC, created_at DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	analyses := []*analysis.AIAnalysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analyses: %w", err)
	}

	return analyses, nil
}

// AddAnalysis stores a generated report. Adding a report for a (day, type) that
// already has one is a no-op.
func (s *AnalysisService) AddAnalysis(ctx context.Context, clerkID string, a *analysis.AIAnalysis) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	args, err := analysisArgs(userID, a)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, insertAnalysisQuery, args...); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

func (s *AnalysisService) MarkRead(ctx context.Context, clerkID, analysisID string) (*analysis.AIAnalysis, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	UPDATE ai_analyses SET is_read = TRUE
	WHERE user_id = $1 AND id = $2
	RETURNING ` + selectAnalysisColumns

	a, err := scanAnalysis(s.db.QueryRow(ctx, query, userID, analysisID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to mark analysis read: %w", err)
	}
	return a, nil
}

// PurgeStale deletes the caller's analyses from any day other than today.
func (s *AnalysisService) PurgeStale(ctx context.Context, clerkID, today string) (int64, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return 0, err
	}
	day, err := tracker.ParseDate(today)
	if err != nil {
		return 0, fmt.Errorf("%w: bad date %q", ErrInvalidInput, today)
	}

	result, err := s.db.Exec(ctx, `DELETE FROM ai_analyses WHERE user_id = $1 AND analysis_date <> $2`, userID, day)
	if err != nil {
		return 0, fmt.Errorf("failed to purge analyses: %w", err)
	}
	return result.RowsAffected(), nil
}

// PurgeAllStale is the background sweep counterpart of PurgeStale.
func (s *AnalysisService) PurgeAllStale(ctx context.Context, today string) (int64, error) {
	day, err := tracker.ParseDate(today)
	if err != nil {
		return 0, fmt.Errorf("%w: bad date %q", ErrInvalidInput, today)
	}

	result, err := s.db.Exec(ctx, `DELETE FROM ai_analyses WHERE analysis_date <> $1`, day)
	if err != nil {
		return 0, fmt.Errorf("failed to purge analyses: %w", err)
	}
	return result.RowsAffected(), nil
}
