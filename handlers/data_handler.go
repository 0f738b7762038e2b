package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"neuroTrackAPI/internal/types/appdata"
	"neuroTrackAPI/middleware"
	"neuroTrackAPI/services"
)

// DataHandler serves the whole-document endpoints: sync, dashboard, reset and export.
type DataHandler struct {
	dataService      *services.DataService
	dashboardService *services.DashboardService
	exportService    *services.ExportService
}

func NewDataHandler(dataService *services.DataService, dashboardService *services.DashboardService, exportService *services.ExportService) *DataHandler {
	return &DataHandler{
		dataService:      dataService,
		dashboardService: dashboardService,
		exportService:    exportService,
	}
}

// GET /api/v1/data
func (h *DataHandler) GetData(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	data, synced := h.dataService.LoadForClient(ctx, clerkID, time.Now())
	respondWithJSON(w, http.StatusOK, appdata.LoadResponse{Data: data, Synced: synced})
}

// PUT /api/v1/data
func (h *DataHandler) SaveData(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var data appdata.AppData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, err := h.dataService.Save(ctx, clerkID, &data)
	if err != nil {
		respondWithServiceError(w, "SaveData", err, "Failed to save data")
		return
	}

	respondWithJSON(w, http.StatusOK, saved)
}

// DELETE /api/v1/data?confirm=true
func (h *DataHandler) ResetData(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	if !confirmed(w, r) {
		return
	}

	if err := h.dataService.Reset(ctx, clerkID); err != nil {
		respondWithServiceError(w, "ResetData", err, "Failed to reset data")
		return
	}

	log.Printf("ResetData Handler: wiped tracker data for %s", clerkID)
	respondWithJSON(w, http.StatusOK, appdata.Default())
}

// GET /api/v1/dashboard?view=week|month|year
func (h *DataHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	dash, err := h.dashboardService.GetDashboard(ctx, clerkID, time.Now(), r.URL.Query().Get("view"))
	if err != nil {
		respondWithServiceError(w, "GetDashboard", err, "Failed to build dashboard")
		return
	}

	respondWithJSON(w, http.StatusOK, dash)
}

// GET /api/v1/export
func (h *DataHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	file, err := h.exportService.Export(ctx, clerkID, time.Now())
	if err != nil {
		respondWithServiceError(w, "Export", err, "Failed to export data")
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
	if file.Fallback {
		w.Header().Set("X-Export-Fallback", "json")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(file.Body)
}
