package services

import (
	"context"
	"fmt"
	"log"
	"neuroTrackAPI/internal/types/analysis"
	"neuroTrackAPI/internal/types/notification"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationService struct {
	db         *pgxpool.Pool
	dispatcher *NotificationDispatcher
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	service := &NotificationService{
		db: db,
	}

	service.dispatcher = NewNotificationDispatcher(service, 3)

	return service
}

func (s *NotificationService) SetPushProvider(provider PushNotificationProvider) {
	s.dispatcher.SetPushProvider(provider)
}

// Stop drains pending pushes. Call it on shutdown.
func (s *NotificationService) Stop() {
	s.dispatcher.Stop()
}

// RegisterDevice stores a push token for the caller. A token that moves to
// another account is reassigned.
func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidInput)
	}
	if !req.ValidPlatform() {
		return fmt.Errorf("%w: platform must be ios, android or web", ErrInvalidInput)
	}

	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO device_tokens (token, user_id, platform, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform
	`
	if _, err := s.db.Exec(ctx, query, token, userID, req.Platform); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}

	log.Printf("NotificationService: registered %s device for %s", req.Platform, clerkID)
	return nil
}

func (s *NotificationService) deviceTokensFor(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `
		SELECT token, platform, created_at
		FROM device_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// NotifyReportReady tells the user's devices that today's report is waiting.
func (s *NotificationService) NotifyReportReady(ctx context.Context, clerkID string, reportType analysis.AnalysisType) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		log.Printf("NotificationService: Warning: cannot notify %s: %v", clerkID, err)
		return
	}

	title, body := reportReadyMessage(reportType)
	s.dispatcher.Dispatch(&DispatchJob{
		UserID: userID,
		Title:  title,
		Body:   body,
		Data: map[string]any{
			"type":        "report_ready",
			"report_type": string(reportType),
		},
	})
}

func reportReadyMessage(reportType analysis.AnalysisType) (string, string) {
	if reportType == analysis.Monthly {
		return "Monthly Strategic Review ready", "Your month has been processed. Open NeuroTrack to read the review."
	}
	return "Weekly Audit ready", "Your week has been processed. Open NeuroTrack to read the audit."
}
