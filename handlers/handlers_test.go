package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuroTrackAPI/middleware"
	"neuroTrackAPI/services"
)

func authed(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithClerkID(req.Context(), "user_test"))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHandlers_RequireClerkID(t *testing.T) {
	routes := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"GetData", NewDataHandler(nil, nil, nil).GetData},
		{"GetDashboard", NewDataHandler(nil, nil, nil).GetDashboard},
		{"GetProfile", NewProfileHandler(nil).GetProfile},
		{"GetEntry", NewEntryHandler(nil).GetEntry},
		{"GetMissed", NewEntryHandler(nil).GetMissed},
		{"ListGoals", NewGoalHandler(nil).ListGoals},
		{"ListAnalyses", NewAnalysisHandler(nil, nil).ListAnalyses},
		{"CheckReport", NewAnalysisHandler(nil, nil).CheckReport},
		{"SendMessage", NewChatHandler(nil).SendMessage},
		{"GetSetting", NewSettingHandler(nil).GetSetting},
		{"GetFriends", NewFriendHandler(nil).GetFriends},
		{"GetInviteCode", NewFriendHandler(nil).GetInviteCode},
		{"RegisterDevice", NewNotificationHandler(nil).RegisterDevice},
		{"SearchUsers", NewUserHandler(nil).SearchUsers},
		{"Export", NewDataHandler(nil, nil, nil).Export},
	}

	for _, tt := range routes {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "User not authenticated", decodeError(t, rec))
		})
	}
}

func TestHandlers_RejectMalformedBody(t *testing.T) {
	routes := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"SaveData", NewDataHandler(nil, nil, nil).SaveData},
		{"UpdateProfile", NewProfileHandler(nil).UpdateProfile},
		{"SaveEntry", NewEntryHandler(nil).SaveEntry},
		{"AddTodo", NewEntryHandler(nil).AddTodo},
		{"UpdateJournal", NewEntryHandler(nil).UpdateJournal},
		{"CreateGoal", NewGoalHandler(nil).CreateGoal},
		{"PlanGoal", NewGoalHandler(nil).PlanGoal},
		{"ReplaceGoals", NewGoalHandler(nil).ReplaceGoals},
		{"GenerateReport", NewAnalysisHandler(nil, nil).GenerateReport},
		{"SendMessage", NewChatHandler(nil).SendMessage},
		{"AddFriend", NewFriendHandler(nil).AddFriend},
		{"RegisterDevice", NewNotificationHandler(nil).RegisterDevice},
	}

	for _, tt := range routes {
		t.Run(tt.name, func(t *testing.T) {
			req := authed(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json")))
			rec := httptest.NewRecorder()
			tt.handler(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid request body", decodeError(t, rec))
		})
	}
}

func TestHandlers_DestructiveActionsNeedConfirm(t *testing.T) {
	routes := []struct {
		name    string
		target  string
		handler http.HandlerFunc
	}{
		{"ResetData", "/api/v1/data", NewDataHandler(nil, nil, nil).ResetData},
		{"DeleteEntry", "/api/v1/entries/2024-06-01", NewEntryHandler(nil).DeleteEntry},
		{"ClearMissedDay", "/api/v1/missed/2024-06-01?confirm=yes", NewEntryHandler(nil).ClearMissedDay},
		{"DeleteGoal", "/api/v1/goals/g1", NewGoalHandler(nil).DeleteGoal},
		{"DeleteMilestone", "/api/v1/goals/g1/milestones/t1", NewGoalHandler(nil).DeleteMilestone},
		{"RemoveFriend", "/api/v1/friends?friendId=abc", NewFriendHandler(nil).RemoveFriend},
	}

	for _, tt := range routes {
		t.Run(tt.name, func(t *testing.T) {
			req := authed(httptest.NewRequest(http.MethodDelete, tt.target, nil))
			rec := httptest.NewRecorder()
			tt.handler(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeError(t, rec), "confirm=true")
		})
	}
}

func TestRemoveFriend_RequiresFriendID(t *testing.T) {
	req := authed(httptest.NewRequest(http.MethodDelete, "/api/v1/friends?confirm=true", nil))
	rec := httptest.NewRecorder()
	NewFriendHandler(nil).RemoveFriend(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingHandler_RejectsLongKey(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/settings/{key}", NewSettingHandler(nil).GetSetting)

	req := authed(httptest.NewRequest(http.MethodGet, "/settings/"+strings.Repeat("k", maxSettingKeyLength+1), nil))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRespondWithServiceError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{services.ErrUserNotFound, http.StatusNotFound},
		{fmt.Errorf("goal g1: %w", services.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: title is required", services.ErrInvalidInput), http.StatusBadRequest},
		{services.ErrFriendshipExists, http.StatusConflict},
		{services.ErrAIUnavailable, http.StatusServiceUnavailable},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondWithServiceError(rec, "Test", tt.err, "fallback")
			assert.Equal(t, tt.code, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	respondWithServiceError(rec, "Test", errors.New("pq: password leaked"), "fallback")
	assert.Equal(t, "fallback", decodeError(t, rec))
}

func TestRenderMarkdown(t *testing.T) {
	html := renderMarkdown("## Weekly Neural Audit\n\n**Focus** on sleep")
	assert.Contains(t, html, "<h2>Weekly Neural Audit</h2>")
	assert.Contains(t, html, "<strong>Focus</strong>")
	assert.Nil(t, withHTML(nil))
}

func signWebhook(t *testing.T, secret, id string, ts time.Time, body []byte) http.Header {
	t.Helper()
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	require.NoError(t, err)

	stamp := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id + "." + stamp + "." + string(body)))

	h := http.Header{}
	h.Set("svix-id", id)
	h.Set("svix-timestamp", stamp)
	h.Set("svix-signature", "v1,bogus v1,"+base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	return h
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("super-secret-key"))
	body := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)
	now := time.Unix(1717920000, 0)

	header := signWebhook(t, secret, "msg_1", now, body)
	assert.NoError(t, verifyWebhookSignature(header, body, secret, now))

	assert.ErrorIs(t, verifyWebhookSignature(header, []byte(`{"tampered":true}`), secret, now), errBadSignature)
	assert.ErrorIs(t, verifyWebhookSignature(header, body, secret, now.Add(10*time.Minute)), errStaleSignature)
	assert.ErrorIs(t, verifyWebhookSignature(http.Header{}, body, secret, now), errMissingSignature)
}

func TestHandleClerkWebhook_RejectsBadSignature(t *testing.T) {
	h := &WebhookHandler{secret: "whsec_" + base64.StdEncoding.EncodeToString([]byte("k"))}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", strings.NewReader(`{"type":"user.deleted"}`))
	req.Header.Set("svix-id", "msg_1")
	req.Header.Set("svix-timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set("svix-signature", "v1,nope")
	rec := httptest.NewRecorder()
	h.HandleClerkWebhook(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	unconfigured := &WebhookHandler{}
	rec = httptest.NewRecorder()
	unconfigured.HandleClerkWebhook(rec, httptest.NewRequest(http.MethodPost, "/webhooks/clerk", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
