package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"neuroTrackAPI/internal/tracker"
	"neuroTrackAPI/internal/types/entry"
	"neuroTrackAPI/middleware"
	"neuroTrackAPI/services"
)

type EntryHandler struct {
	entryService *services.EntryService
}

func NewEntryHandler(entryService *services.EntryService) *EntryHandler {
	return &EntryHandler{entryService: entryService}
}

// GET /api/v1/entries
func (h *EntryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	history, err := h.entryService.GetHistory(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, "GetHistory", err, "Failed to get history")
		return
	}

	respondWithJSON(w, http.StatusOK, history)
}

// GET /api/v1/entries/{date}
func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	e, err := h.entryService.GetEntry(ctx, clerkID, mux.Vars(r)["date"])
	if err != nil {
		respondWithServiceError(w, "GetEntry", err, "Failed to get entry")
		return
	}

	respondWithJSON(w, http.StatusOK, e)
}

// PUT /api/v1/entries/{date}
func (h *EntryHandler) SaveEntry(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req entry.DailyEntry
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	e, err := h.entryService.SaveEntry(ctx, clerkID, mux.Vars(r)["date"], &req)
	if err != nil {
		respondWithServiceError(w, "SaveEntry", err, "Failed to save entry")
		return
	}

	respondWithJSON(w, http.StatusOK, e)
}

// DELETE /api/v1/entries/{date}?confirm=true
func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	if !confirmed(w, r) {
		return
	}

	date := mux.Vars(r)["date"]
	if err := h.entryService.DeleteEntry(ctx, clerkID, date); err != nil {
		respondWithServiceError(w, "DeleteEntry", err, "Failed to delete entry")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Entry deleted successfully",
	})
}

// POST /api/v1/entries/{date}/todos
func (h *EntryHandler) AddTodo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req entry.AddTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	e, err := h.entryService.AddTodo(ctx, clerkID, mux.Vars(r)["date"], &req)
	if err != nil {
		respondWithServiceError(w, "AddTodo", err, "Failed to add todo")
		return
	}

	respondWithJSON(w, http.StatusCreated, e)
}

// PUT /api/v1/entries/{date}/todos/{todoId}
func (h *EntryHandler) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	vars := mux.Vars(r)
	e, err := h.entryService.ToggleTodo(ctx, clerkID, vars["date"], vars["todoId"])
	if err != nil {
		respondWithServiceError(w, "ToggleTodo", err, "Failed to toggle todo")
		return
	}

	respondWithJSON(w, http.StatusOK, e)
}

// DELETE /api/v1/entries/{date}/todos/{todoId}
func (h *EntryHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	vars := mux.Vars(r)
	e, err := h.entryService.DeleteTodo(ctx, clerkID, vars["date"], vars["todoId"])
	if err != nil {
		respondWithServiceError(w, "DeleteTodo", err, "Failed to delete todo")
		return
	}

	respondWithJSON(w, http.StatusOK, e)
}

// PUT /api/v1/entries/{date}/journal
func (h *EntryHandler) UpdateJournal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req entry.UpdateJournalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	e, err := h.entryService.UpdateJournal(ctx, clerkID, mux.Vars(r)["date"], &req)
	if err != nil {
		respondWithServiceError(w, "UpdateJournal", err, "Failed to update journal")
		return
	}

	respondWithJSON(w, http.StatusOK, e)
}

// PUT /api/v1/entries/{date}/repeat
func (h *EntryHandler) SetRepeatDaily(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req entry.RepeatDailyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	e, err := h.entryService.SetRepeatDaily(ctx, clerkID, mux.Vars(r)["date"], req.RepeatDaily)
	if err != nil {
		respondWithServiceError(w, "SetRepeatDaily", err, "Failed to update repeat setting")
		return
	}

	respondWithJSON(w, http.StatusOK, e)
}

// GET /api/v1/missed
func (h *EntryHandler) GetMissed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	history, err := h.entryService.GetHistory(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, "GetMissed", err, "Failed to get missed tasks")
		return
	}

	respondWithJSON(w, http.StatusOK, tracker.MissedTasks(history, tracker.Today()))
}

// DELETE /api/v1/missed/{date}?confirm=true keeps only the completed todos of the day.
func (h *EntryHandler) ClearMissedDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	if !confirmed(w, r) {
		return
	}

	date := mux.Vars(r)["date"]
	e, err := h.entryService.ClearMissedDay(ctx, clerkID, date)
	if err != nil {
		respondWithServiceError(w, "ClearMissedDay", err, "Failed to clear missed tasks")
		return
	}

	log.Printf("ClearMissedDay Handler: cleared open tasks on %s for %s", date, clerkID)
	respondWithJSON(w, http.StatusOK, e)
}

// DELETE /api/v1/missed/{date}/{todoId}
func (h *EntryHandler) DeleteMissedTodo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	vars := mux.Vars(r)
	e, err := h.entryService.DeleteMissedTodo(ctx, clerkID, vars["date"], vars["todoId"])
	if err != nil {
		respondWithServiceError(w, "DeleteMissedTodo", err, "Failed to delete missed task")
		return
	}

	respondWithJSON(w, http.StatusOK, e)
}
