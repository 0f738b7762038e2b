package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"neuroTrackAPI/internal/types/friendship"
	"neuroTrackAPI/middleware"
	"neuroTrackAPI/services"
)

type FriendHandler struct {
	friendService *services.FriendService
}

func NewFriendHandler(friendService *services.FriendService) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

// GET /api/v1/friends
func (h *FriendHandler) GetFriends(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	friends, err := h.friendService.GetFriends(ctx, clerkID, time.Now())
	if err != nil {
		respondWithServiceError(w, "GetFriends", err, "Failed to get friends")
		return
	}

	respondWithJSON(w, http.StatusOK, friends)
}

// POST /api/v1/friends
func (h *FriendHandler) AddFriend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req friendship.AddFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.FriendID == "" {
		respondWithError(w, http.StatusBadRequest, "friendId is required")
		return
	}

	log.Printf("AddFriend Handler: Request from %s to add %s", clerkID, req.FriendID)

	if err := h.friendService.AddFriend(ctx, clerkID, req.FriendID); err != nil {
		respondWithServiceError(w, "AddFriend", err, "Failed to add friend")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{
		"message": "Friend added successfully",
	})
}

// DELETE /api/v1/friends?friendId=...&confirm=true
func (h *FriendHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	friendID := r.URL.Query().Get("friendId")
	if friendID == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'friendId' is required")
		return
	}
	if !confirmed(w, r) {
		return
	}

	log.Printf("RemoveFriend Handler: Request from %s to remove %s", clerkID, friendID)

	if err := h.friendService.RemoveFriend(ctx, clerkID, friendID); err != nil {
		respondWithServiceError(w, "RemoveFriend", err, "Failed to remove friend")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Friend removed successfully",
	})
}

// GET /api/v1/friends/invite
func (h *FriendHandler) GetInviteCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	invite, err := h.friendService.InviteCode(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, "GetInviteCode", err, "Failed to generate invite code")
		return
	}

	respondWithJSON(w, http.StatusOK, invite)
}
