package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"neuroTrackAPI/internal/tracker"
	"neuroTrackAPI/internal/types/analysis"
	"neuroTrackAPI/internal/types/appdata"
	"time"

	"golang.org/x/sync/singleflight"
)

// reportCheckTimeout bounds one shared gate run, independent of any single caller.
const reportCheckTimeout = 90 * time.Second

type reportNotifier interface {
	NotifyReportReady(ctx context.Context, clerkID string, reportType analysis.AnalysisType)
}

// ReportService runs the daily report gate for a user and serves on-demand reports.
type ReportService struct {
	data     *DataService
	ai       *AIService
	gate     *tracker.ReportGate
	notifier reportNotifier
	group    singleflight.Group
}

func NewReportService(data *DataService, settings *SettingService, analyses *AnalysisService, ai *AIService, notifier reportNotifier) *ReportService {
	return &ReportService{
		data:     data,
		ai:       ai,
		gate:     tracker.NewReportGate(settings, analyses, ai),
		notifier: notifier,
	}
}

// CheckDueReport runs the gate for the caller. Concurrent checks for the same
// user and day share one run, so two open tabs cannot generate twice.
func (s *ReportService) CheckDueReport(ctx context.Context, clerkID string, now time.Time) (*tracker.GateResult, error) {
	key := clerkID + "/" + tracker.DateKey(now)

	v, err, _ := s.group.Do(key, func() (any, error) {
		// Callers share this run, so one of them disconnecting must not cancel it for the rest.
		flightCtx, cancel := detachedContext(ctx, reportCheckTimeout)
		defer cancel()

		data, err := s.data.Load(flightCtx, clerkID)
		if err != nil {
			return nil, err
		}
		kept, _ := tracker.FilterTodayAnalyses(data.Analytics, tracker.DateKey(now))
		data.Analytics = kept

		return s.gate.Check(flightCtx, tracker.GateContext{UserID: clerkID, Now: now}, data)
	})
	if err != nil {
		if errors.Is(err, ErrAIUnavailable) {
			reportsTotal.WithLabelValues(string(dueType(now)), "failed").Inc()
		}
		return nil, err
	}

	result := v.(*tracker.GateResult)
	s.record(result)

	if result.Generated && s.notifier != nil {
		s.notifier.NotifyReportReady(ctx, clerkID, result.Type)
	}
	return result, nil
}

// detachedContext keeps ctx's values but drops its cancellation and deadline.
func detachedContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func dueType(now time.Time) analysis.AnalysisType {
	t, _ := tracker.DueReport(now)
	return t
}

func (s *ReportService) record(result *tracker.GateResult) {
	switch {
	case !result.Due:
		return
	case result.AlreadySeen:
		reportsTotal.WithLabelValues(string(result.Type), "seen").Inc()
	case result.Generated:
		reportsTotal.WithLabelValues(string(result.Type), "generated").Inc()
	default:
		reportsTotal.WithLabelValues(string(result.Type), "reshown").Inc()
	}
}

// GenerateReport produces a report on demand without storing it. When the
// provider fails the caller gets the error placeholder text.
func (s *ReportService) GenerateReport(ctx context.Context, clerkID string, reportType analysis.AnalysisType, now time.Time) (*analysis.AIAnalysis, error) {
	if reportType != analysis.Weekly && reportType != analysis.Monthly {
		return nil, fmt.Errorf("%w: report type must be weekly or monthly", ErrInvalidInput)
	}

	data, err := s.data.Load(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	content, err := s.generate(ctx, reportType, data, now)
	if err != nil {
		log.Printf("ReportService: Warning: on-demand %s report for %s failed: %v", reportType, clerkID, err)
		content = s.ai.ReportErrorText()
	}

	return &analysis.AIAnalysis{
		Date:    tracker.DateKey(now),
		Type:    reportType,
		Content: content,
	}, nil
}

func (s *ReportService) generate(ctx context.Context, reportType analysis.AnalysisType, data *appdata.AppData, now time.Time) (string, error) {
	if reportType == analysis.Monthly {
		return s.ai.GenerateMonthlyReport(ctx, data, now)
	}
	return s.ai.GenerateWeeklyReport(ctx, data, now)
}
