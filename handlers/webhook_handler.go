package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"neuroTrackAPI/internal/types/clerk"
	"neuroTrackAPI/internal/types/user"
	"neuroTrackAPI/services"
)

const (
	maxWebhookBodyBytes = int64(1 << 20)
	webhookTolerance    = 5 * time.Minute
)

var (
	errMissingSignature = errors.New("missing webhook signature headers")
	errStaleSignature   = errors.New("webhook timestamp outside tolerance")
	errBadSignature     = errors.New("no matching webhook signature")
)

type WebhookHandler struct {
	userService *services.UserService
	secret      string
}

func NewWebhookHandler(userService *services.UserService) *WebhookHandler {
	return &WebhookHandler{
		userService: userService,
		secret:      os.Getenv("CLERK_WEBHOOK_SECRET"),
	}
}

func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		log.Println("Webhook: CLERK_WEBHOOK_SECRET not set, rejecting event")
		respondWithError(w, http.StatusServiceUnavailable, "Webhook not configured")
		return
	}

	// Read once; the signature covers the raw bytes.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		log.Printf("Webhook: Error reading body: %v", err)
		respondWithError(w, http.StatusBadRequest, "Error reading body")
		return
	}

	if err := verifyWebhookSignature(r.Header, body, h.secret, time.Now()); err != nil {
		log.Printf("Webhook: Invalid signature: %v", err)
		respondWithError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event clerk.ClerkWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("Webhook: Error parsing event: %v", err)
		respondWithError(w, http.StatusBadRequest, "Error parsing webhook")
		return
	}

	log.Printf("Webhook: Received event: %s", event.Type)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	switch event.Type {
	case "user.created":
		err = h.handleUserCreated(ctx, event.Data)
	case "user.updated":
		err = h.handleUserUpdated(ctx, event.Data)
	case "user.deleted":
		err = h.handleUserDeleted(ctx, event.Data)
	default:
		log.Printf("Webhook: Unhandled event type: %s", event.Type)
	}
	if err != nil {
		log.Printf("Webhook: Error handling %s: %v", event.Type, err)
		respondWithError(w, http.StatusInternalServerError, "Error processing webhook")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func createRequest(data clerk.ClerkUserData) *user.CreateUserRequest {
	email, _ := data.PrimaryEmail()

	username := data.Username
	if username == "" {
		username = data.FirstName + data.LastName
	}

	imageURL := data.ImageURL
	if imageURL == "" {
		imageURL = data.ProfileImageURL
	}

	return &user.CreateUserRequest{
		ClerkID:   data.ID,
		Email:     email,
		Username:  username,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		ImageURL:  imageURL,
	}
}

func (h *WebhookHandler) handleUserCreated(ctx context.Context, data json.RawMessage) error {
	var userData clerk.ClerkUserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	u, err := h.userService.CreateUser(ctx, createRequest(userData))
	if err != nil {
		return fmt.Errorf("failed to create user in database: %w", err)
	}

	if email, verified := userData.PrimaryEmail(); verified {
		if err := h.userService.UpdateEmail(ctx, userData.ID, email, true); err != nil {
			log.Printf("Webhook: Warning: could not mark email verified for %s: %v", userData.ID, err)
		}
	}

	log.Printf("Webhook: Created user %s (Clerk ID: %s)", u.Email, u.ClerkID)
	return nil
}

func (h *WebhookHandler) handleUserUpdated(ctx context.Context, data json.RawMessage) error {
	var userData clerk.ClerkUserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	req := createRequest(userData)
	_, err := h.userService.UpdateUserByClerkID(ctx, userData.ID, &user.UpdateUserRequest{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		ImageURL:  req.ImageURL,
	})
	if errors.Is(err, services.ErrUserNotFound) {
		// Missed the created event; treat the update as a create.
		_, err = h.userService.CreateUser(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	email, verified := userData.PrimaryEmail()
	if email != "" {
		if err := h.userService.UpdateEmail(ctx, userData.ID, email, verified); err != nil {
			return fmt.Errorf("failed to update email: %w", err)
		}
	}

	log.Printf("Webhook: Updated user: Clerk ID: %s", userData.ID)
	return nil
}

func (h *WebhookHandler) handleUserDeleted(ctx context.Context, data json.RawMessage) error {
	var userData struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	if err := h.userService.DeleteUserByClerkID(ctx, userData.ID); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			log.Printf("Webhook: Delete for unknown user %s ignored", userData.ID)
			return nil
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	log.Printf("Webhook: Deleted user: Clerk ID: %s", userData.ID)
	return nil
}

// verifyWebhookSignature checks a svix signed payload: base64 HMAC-SHA256 of
// "id.timestamp.body" keyed with the decoded whsec_ secret. The signature
// header may carry several space separated "v1,<sig>" entries.
func verifyWebhookSignature(header http.Header, body []byte, secret string, now time.Time) error {
	svixID := header.Get("svix-id")
	svixTimestamp := header.Get("svix-timestamp")
	svixSignature := header.Get("svix-signature")
	if svixID == "" || svixTimestamp == "" || svixSignature == "" {
		return errMissingSignature
	}

	ts, err := strconv.ParseInt(svixTimestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid webhook timestamp: %w", err)
	}
	sent := time.Unix(ts, 0)
	if now.Sub(sent) > webhookTolerance || sent.Sub(now) > webhookTolerance {
		return errStaleSignature
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return fmt.Errorf("invalid webhook secret: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(svixID + "." + svixTimestamp + "."))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, candidate := range strings.Fields(svixSignature) {
		version, sig, found := strings.Cut(candidate, ",")
		if !found || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return errBadSignature
}
