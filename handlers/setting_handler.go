package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"neuroTrackAPI/internal/types/setting"
	"neuroTrackAPI/middleware"
	"neuroTrackAPI/services"
)

const maxSettingKeyLength = 128

type SettingHandler struct {
	settingService *services.SettingService
}

func NewSettingHandler(settingService *services.SettingService) *SettingHandler {
	return &SettingHandler{settingService: settingService}
}

func settingKey(r *http.Request) (string, bool) {
	key := strings.TrimSpace(mux.Vars(r)["key"])
	return key, key != "" && len(key) <= maxSettingKeyLength
}

// GET /api/v1/settings/{key}
func (h *SettingHandler) GetSetting(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	key, ok := settingKey(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid setting key")
		return
	}

	value, exists, err := h.settingService.GetSetting(ctx, clerkID, key)
	if err != nil {
		respondWithServiceError(w, "GetSetting", err, "Failed to get setting")
		return
	}

	respondWithJSON(w, http.StatusOK, setting.Setting{Key: key, Value: value, Exists: exists})
}

// PUT /api/v1/settings/{key}
func (h *SettingHandler) SetSetting(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	key, ok := settingKey(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid setting key")
		return
	}

	var req setting.UpdateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.settingService.SetSetting(ctx, clerkID, key, req.Value); err != nil {
		respondWithServiceError(w, "SetSetting", err, "Failed to save setting")
		return
	}

	respondWithJSON(w, http.StatusOK, setting.Setting{Key: key, Value: req.Value, Exists: true})
}
