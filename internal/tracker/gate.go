package tracker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"neuroTrackAPI/internal/types/analysis"
	"neuroTrackAPI/internal/types/appdata"
)

const seenFlagValue = "true"

type SettingStore interface {
	GetSetting(ctx context.Context, userID, key string) (string, bool, error)
	SetSetting(ctx context.Context, userID, key, value string) error
}

type AnalysisStore interface {
	AddAnalysis(ctx context.Context, userID string, a *analysis.AIAnalysis) error
}

type ReportGenerator interface {
	GenerateWeeklyReport(ctx context.Context, data *appdata.AppData, now time.Time) (string, error)
	GenerateMonthlyReport(ctx context.Context, data *appdata.AppData, now time.Time) (string, error)
}

// GateContext carries who the gate runs for and which calendar day it is.
type GateContext struct {
	UserID string
	Now    time.Time
}

func (c GateContext) Today() string {
	return DateKey(c.Now)
}

// IdempotencyKey is the per-user, per-day settings key that marks the report as shown.
func (c GateContext) IdempotencyKey() string {
	return analysis.SeenPopupKey(c.Today())
}

type GateResult struct {
	Due         bool                  `json:"due"`
	Type        analysis.AnalysisType `json:"type,omitempty"`
	AlreadySeen bool                  `json:"already_seen"`
	Generated   bool                  `json:"generated"`
	Celebrate   bool                  `json:"celebrate"`
	Analysis    *analysis.AIAnalysis  `json:"analysis,omitempty"`
}

// DueReport decides which report, if any, belongs to the day of now. The last
// day of a month wins over a Sunday.
func DueReport(now time.Time) (analysis.AnalysisType, bool) {
	today := day(now)
	if today.AddDate(0, 0, 1).Day() == 1 {
		return analysis.Monthly, true
	}
	if today.Weekday() == time.Sunday {
		return analysis.Weekly, true
	}
	return "", false
}

type ReportGate struct {
	settings  SettingStore
	analyses  AnalysisStore
	generator ReportGenerator
}

func NewReportGate(settings SettingStore, analyses AnalysisStore, generator ReportGenerator) *ReportGate {
	return &ReportGate{
		settings:  settings,
		analyses:  analyses,
		generator: generator,
	}
}

// Check runs once per load. At most one report is generated and shown per day:
// the analysis is persisted before the seen flag, and a failed generation leaves
// the flag unset so the next load retries.
func (g *ReportGate) Check(ctx context.Context, gc GateContext, data *appdata.AppData) (*GateResult, error) {
	reportType, due := DueReport(gc.Now)
	if !due {
		return &GateResult{}, nil
	}
	result := &GateResult{Due: true, Type: reportType}

	key := gc.IdempotencyKey()
	_, seen, err := g.settings.GetSetting(ctx, gc.UserID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if seen {
		result.AlreadySeen = true
		return result, nil
	}

	today := gc.Today()
	existing := findAnalysis(data.Analytics, today, reportType)

	if existing == nil {
		content, err := g.generate(ctx, reportType, data, gc.Now)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s report: %w", reportType, err)
		}

		existing = &analysis.AIAnalysis{
			ID:      uuid.New().String(),
			Date:    today,
			Type:    reportType,
			Content: content,
		}
		if err := g.analyses.AddAnalysis(ctx, gc.UserID, existing); err != nil {
			return nil, fmt.Errorf("failed to persist %s report: %w", reportType, err)
		}
		data.Analytics = append(data.Analytics, existing)
		result.Generated = true
	}

	if err := g.settings.SetSetting(ctx, gc.UserID, key, seenFlagValue); err != nil {
		// The report exists, so the next load only re-marks the flag.
		log.Printf("ReportGate: Warning: failed to set %s for %s: %v", key, gc.UserID, err)
	}

	result.Celebrate = true
	result.Analysis = existing
	return result, nil
}

func (g *ReportGate) generate(ctx context.Context, t analysis.AnalysisType, data *appdata.AppData, now time.Time) (string, error) {
	if t == analysis.Monthly {
		return g.generator.GenerateMonthlyReport(ctx, data, now)
	}
	return g.generator.GenerateWeeklyReport(ctx, data, now)
}

func findAnalysis(analytics []*analysis.AIAnalysis, date string, t analysis.AnalysisType) *analysis.AIAnalysis {
	for _, a := range analytics {
		if a.Date == date && a.Type == t {
			return a
		}
	}
	return nil
}
