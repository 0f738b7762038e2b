package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"neuroTrackAPI/internal/tracker"
	"neuroTrackAPI/internal/types/appdata"
	"neuroTrackAPI/internal/types/entry"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	jsonContentType = "application/json"

	profileSheet = "Profile Identity"
	historySheet = "Daily Logs"
	goalsSheet   = "Goals Protocol"
)

// ExportFile is a ready-to-download attachment.
type ExportFile struct {
	Name        string
	ContentType string
	Body        []byte
	Fallback    bool
}

type ExportService struct {
	data *DataService
}

func NewExportService(data *DataService) *ExportService {
	return &ExportService{data: data}
}

// Export renders the caller's data as a workbook. If the workbook cannot be
// built the same data is returned as a JSON backup instead.
func (s *ExportService) Export(ctx context.Context, clerkID string, now time.Time) (*ExportFile, error) {
	data, err := s.data.Load(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	return exportAppData(data, now)
}

func exportAppData(data *appdata.AppData, now time.Time) (*ExportFile, error) {
	date := tracker.DateKey(now)

	body, err := buildWorkbook(data)
	if err == nil {
		return &ExportFile{
			Name:        fmt.Sprintf("NeuroTrack_Export_%s.xlsx", date),
			ContentType: xlsxContentType,
			Body:        body,
		}, nil
	}
	log.Printf("ExportService: Warning: workbook export failed, falling back to JSON: %v", err)

	backup, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to build json backup: %w", err)
	}
	return &ExportFile{
		Name:        fmt.Sprintf("neurotrack_backup_fallback_%s.json", date),
		ContentType: jsonContentType,
		Body:        backup,
		Fallback:    true,
	}, nil
}

func checklist(todos []entry.Todo) string {
	items := make([]string, 0, len(todos))
	for _, t := range todos {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		items = append(items, fmt.Sprintf("[%s] %s", mark, t.Text))
	}
	return strings.Join(items, "; ")
}

func workbookRows(data *appdata.AppData) map[string][][]any {
	profileRows := [][]any{
		{"Metric", "Value"},
		{"Name", data.Profile.Name},
		{"Age", data.Profile.Age},
		{"Height (cm)", data.Profile.Height},
		{"Weight (kg)", data.Profile.Weight},
		{"App Version", data.Version},
	}

	historyRows := [][]any{{"Date", "Total Tasks", "Completed Tasks", "Mood Score", "Journal Entry", "Tasks List"}}
	for _, date := range data.SortedDates() {
		e := data.History[date]
		historyRows = append(historyRows, []any{date, e.TotalCount, e.CompletedCount, e.MoodScore, e.Journal, checklist(e.Todos)})
	}

	goalRows := [][]any{{"Title", "Type", "Deadline", "Progress (%)", "Completed", "Milestones"}}
	for _, g := range data.Goals {
		completed := "No"
		if g.Completed {
			completed = "Yes"
		}
		goalRows = append(goalRows, []any{g.Title, string(g.Type), g.Deadline, int(math.Round(g.Progress)), completed, checklist(g.Tasks)})
	}

	return map[string][][]any{
		profileSheet: profileRows,
		historySheet: historyRows,
		goalsSheet:   goalRows,
	}
}

func buildWorkbook(data *appdata.AppData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	rows := workbookRows(data)
	for i, sheet := range []string{profileSheet, historySheet, goalsSheet} {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return nil, fmt.Errorf("failed to name sheet %s: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to add sheet %s: %w", sheet, err)
		}

		for r, row := range rows[sheet] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return nil, fmt.Errorf("failed to write %s row %d: %w", sheet, r+1, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
