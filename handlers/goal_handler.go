package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"neuroTrackAPI/internal/types/goal"
	"neuroTrackAPI/middleware"
	"neuroTrackAPI/services"
)

type GoalHandler struct {
	goalService *services.GoalService
}

func NewGoalHandler(goalService *services.GoalService) *GoalHandler {
	return &GoalHandler{goalService: goalService}
}

// GET /api/v1/goals
func (h *GoalHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	goals, err := h.goalService.ListGoals(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, "ListGoals", err, "Failed to get goals")
		return
	}

	respondWithJSON(w, http.StatusOK, goals)
}

// POST /api/v1/goals
func (h *GoalHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req goal.CreateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	g, err := h.goalService.CreateGoal(ctx, clerkID, &req)
	if err != nil {
		respondWithServiceError(w, "CreateGoal", err, "Failed to create goal")
		return
	}

	respondWithJSON(w, http.StatusCreated, g)
}

// PUT /api/v1/goals replaces the whole goal list.
func (h *GoalHandler) ReplaceGoals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var goals []*goal.Goal
	if err := json.NewDecoder(r.Body).Decode(&goals); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, err := h.goalService.ReplaceGoals(ctx, clerkID, goals)
	if err != nil {
		respondWithServiceError(w, "ReplaceGoals", err, "Failed to save goals")
		return
	}

	respondWithJSON(w, http.StatusOK, saved)
}

// POST /api/v1/goals/plan creates a goal with suggested milestones.
func (h *GoalHandler) PlanGoal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req goal.CreateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	g, err := h.goalService.PlanGoal(ctx, clerkID, &req, time.Now())
	if err != nil {
		respondWithServiceError(w, "PlanGoal", err, "Failed to plan goal")
		return
	}

	log.Printf("PlanGoal Handler: planned %q with %d milestones for %s", g.Title, len(g.Tasks), clerkID)
	respondWithJSON(w, http.StatusCreated, g)
}

// PUT /api/v1/goals/{goalId}
func (h *GoalHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req goal.UpdateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	g, err := h.goalService.UpdateGoal(ctx, clerkID, mux.Vars(r)["goalId"], &req)
	if err != nil {
		respondWithServiceError(w, "UpdateGoal", err, "Failed to update goal")
		return
	}

	respondWithJSON(w, http.StatusOK, g)
}

// DELETE /api/v1/goals/{goalId}?confirm=true
func (h *GoalHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
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

	if err := h.goalService.DeleteGoal(ctx, clerkID, mux.Vars(r)["goalId"]); err != nil {
		respondWithServiceError(w, "DeleteGoal", err, "Failed to delete goal")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Goal deleted successfully",
	})
}

// PUT /api/v1/goals/{goalId}/complete
func (h *GoalHandler) SetCompleted(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req goal.CompleteGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	g, err := h.goalService.SetCompleted(ctx, clerkID, mux.Vars(r)["goalId"], req.Completed)
	if err != nil {
		respondWithServiceError(w, "SetCompleted", err, "Failed to update goal")
		return
	}

	respondWithJSON(w, http.StatusOK, g)
}

// POST /api/v1/goals/{goalId}/milestones
func (h *GoalHandler) AddMilestone(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req goal.AddMilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	g, err := h.goalService.AddMilestone(ctx, clerkID, mux.Vars(r)["goalId"], &req)
	if err != nil {
		respondWithServiceError(w, "AddMilestone", err, "Failed to add milestone")
		return
	}

	respondWithJSON(w, http.StatusCreated, g)
}

// PUT /api/v1/goals/{goalId}/milestones/{taskId}
func (h *GoalHandler) ToggleMilestone(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	vars := mux.Vars(r)
	g, err := h.goalService.ToggleMilestone(ctx, clerkID, vars["goalId"], vars["taskId"])
	if err != nil {
		respondWithServiceError(w, "ToggleMilestone", err, "Failed to toggle milestone")
		return
	}

	respondWithJSON(w, http.StatusOK, g)
}

// DELETE /api/v1/goals/{goalId}/milestones/{taskId}?confirm=true
func (h *GoalHandler) DeleteMilestone(w http.ResponseWriter, r *http.Request) {
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

	vars := mux.Vars(r)
	g, err := h.goalService.DeleteMilestone(ctx, clerkID, vars["goalId"], vars["taskId"])
	if err != nil {
		respondWithServiceError(w, "DeleteMilestone", err, "Failed to delete milestone")
		return
	}

	respondWithJSON(w, http.StatusOK, g)
}
