package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"neuroTrackAPI/internal/types/profile"
	"neuroTrackAPI/middleware"
	"neuroTrackAPI/services"
)

type ProfileHandler struct {
	profileService *services.ProfileService
}

func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	p, err := h.profileService.GetProfile(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, "GetProfile", err, "Failed to get profile")
		return
	}

	respondWithJSON(w, http.StatusOK, profile.ProfileResponse{Profile: *p, Complete: p.IsComplete()})
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req profile.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.profileService.UpsertProfile(ctx, clerkID, &req)
	if err != nil {
		respondWithServiceError(w, "UpdateProfile", err, "Failed to update profile")
		return
	}

	respondWithJSON(w, http.StatusOK, profile.ProfileResponse{Profile: *p, Complete: p.IsComplete()})
}
