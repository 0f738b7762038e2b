package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuroTrackAPI/internal/types/analysis"
	"neuroTrackAPI/internal/types/notification"
)

type fakeTokenSource struct {
	tokens map[uuid.UUID][]notification.DeviceToken
	err    error
}

func (f *fakeTokenSource) deviceTokensFor(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	return f.tokens[userID], f.err
}

type sentPush struct {
	tokens []notification.DeviceToken
	title  string
	data   map[string]any
}

type fakePushProvider struct {
	mu   sync.Mutex
	sent []sentPush
}

func (f *fakePushProvider) SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentPush{tokens: tokens, title: title, data: data})
	return nil
}

func TestDispatcher_SendsToUserDevices(t *testing.T) {
	userID := uuid.New()
	source := &fakeTokenSource{tokens: map[uuid.UUID][]notification.DeviceToken{
		userID: {{Token: "tok-1", Platform: "android"}},
	}}
	provider := &fakePushProvider{}

	d := NewNotificationDispatcher(source, 2)
	d.SetPushProvider(provider)

	title, body := reportReadyMessage(analysis.Weekly)
	require.True(t, d.Dispatch(&DispatchJob{UserID: userID, Title: title, Body: body, Data: map[string]any{"type": "report_ready"}}))
	require.True(t, d.Dispatch(&DispatchJob{UserID: uuid.New(), Title: "nobody"}))
	d.Stop()

	require.Len(t, provider.sent, 1)
	assert.Equal(t, "Weekly Audit ready", provider.sent[0].title)
	assert.Equal(t, "tok-1", provider.sent[0].tokens[0].Token)
	assert.Equal(t, "report_ready", provider.sent[0].data["type"])
}

func TestDispatcher_NoProviderOrTokenError(t *testing.T) {
	userID := uuid.New()
	source := &fakeTokenSource{err: errors.New("db down")}
	provider := &fakePushProvider{}

	d := NewNotificationDispatcher(source, 1)
	require.True(t, d.Dispatch(&DispatchJob{UserID: userID}))
	d.SetPushProvider(provider)
	require.True(t, d.Dispatch(&DispatchJob{UserID: userID}))
	d.Stop()

	assert.Empty(t, provider.sent)
}

func TestDispatcher_StopIsIdempotent(t *testing.T) {
	d := NewNotificationDispatcher(&fakeTokenSource{}, 1)
	d.Stop()
	d.Stop()

	assert.False(t, d.Dispatch(&DispatchJob{UserID: uuid.New()}))
}

func TestReportReadyMessage(t *testing.T) {
	title, _ := reportReadyMessage(analysis.Monthly)
	assert.Equal(t, "Monthly Strategic Review ready", title)
}
