package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/yuin/goldmark"

	"neuroTrackAPI/internal/tracker"
	"neuroTrackAPI/internal/types/analysis"
	"neuroTrackAPI/middleware"
	"neuroTrackAPI/services"
)

// AnalysisHandler serves stored reports and the daily report gate.
type AnalysisHandler struct {
	analysisService *services.AnalysisService
	reportService   *services.ReportService
}

func NewAnalysisHandler(analysisService *services.AnalysisService, reportService *services.ReportService) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		reportService:   reportService,
	}
}

// renderMarkdown turns report markdown into HTML for clients that cannot render it.
func renderMarkdown(content string) string {
	var buf strings.Builder
	if err := goldmark.Convert([]byte(content), &buf); err != nil {
		return "<p>Error rendering markdown</p>"
	}
	return buf.String()
}

func withHTML(a *analysis.AIAnalysis) *analysis.AnalysisResponse {
	if a == nil {
		return nil
	}
	return &analysis.AnalysisResponse{AIAnalysis: *a, ContentHTML: renderMarkdown(a.Content)}
}

type reportCheckResponse struct {
	*tracker.GateResult
	Analysis *analysis.AnalysisResponse `json:"analysis,omitempty"`
}

// GET /api/v1/analyses lists today's reports; older ones have vanished.
func (h *AnalysisHandler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	all, err := h.analysisService.ListAnalyses(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, "ListAnalyses", err, "Failed to get analyses")
		return
	}

	kept, _ := tracker.FilterTodayAnalyses(all, tracker.Today())
	resp := make([]*analysis.AnalysisResponse, 0, len(kept))
	for _, a := range kept {
		resp = append(resp, withHTML(a))
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// PUT /api/v1/analyses/{id}/read
func (h *AnalysisHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	a, err := h.analysisService.MarkRead(ctx, clerkID, mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, "MarkRead", err, "Failed to mark analysis as read")
		return
	}

	respondWithJSON(w, http.StatusOK, withHTML(a))
}

// POST /api/v1/reports/check runs the daily gate and returns the report to show, if any.
func (h *AnalysisHandler) CheckReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 90*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	result, err := h.reportService.CheckDueReport(ctx, clerkID, time.Now())
	if err != nil {
		respondWithServiceError(w, "CheckReport", err, "Failed to check report")
		return
	}

	respondWithJSON(w, http.StatusOK, reportCheckResponse{
		GateResult: result,
		Analysis:   withHTML(result.Analysis),
	})
}

// POST /api/v1/reports/generate builds a report on demand without storing it.
func (h *AnalysisHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 90*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req analysis.GenerateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	a, err := h.reportService.GenerateReport(ctx, clerkID, req.Type, time.Now())
	if err != nil {
		respondWithServiceError(w, "GenerateReport", err, "Failed to generate report")
		return
	}

	respondWithJSON(w, http.StatusOK, withHTML(a))
}
