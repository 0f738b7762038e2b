package analysis

import "fmt"

type AnalysisType string

const (
	Weekly  AnalysisType = "weekly"
	Monthly AnalysisType = "monthly"
)

type AIAnalysis struct {
	ID      string       `json:"id" db:"id"`
	Date    string       `json:"date" db:"date"`
	Type    AnalysisType `json:"type" db:"type"`
	Content string       `json:"content" db:"content"`
	Read    bool         `json:"read" db:"read"`
}

type AnalysisResponse struct {
	AIAnalysis
	ContentHTML string `json:"content_html"`
}

// SeenPopupKey is the per-day settings key that records a displayed report.
func SeenPopupKey(date string) string {
	return fmt.Sprintf("seen_popup_%s", date)
}

type GenerateReportRequest struct {
	Type AnalysisType `json:"type"`
}
