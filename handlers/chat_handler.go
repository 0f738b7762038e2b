package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"neuroTrackAPI/internal/types/chat"
	"neuroTrackAPI/middleware"
	"neuroTrackAPI/services"
)

type ChatHandler struct {
	chatService *services.ChatService
}

func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// POST /api/v1/chat
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req chat.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reply, err := h.chatService.Reply(ctx, clerkID, &req)
	if err != nil {
		respondWithServiceError(w, "SendMessage", err, "Failed to answer message")
		return
	}

	respondWithJSON(w, http.StatusOK, chat.ChatResponse{Reply: *reply})
}
