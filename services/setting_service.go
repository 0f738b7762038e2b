package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingService stores small per-user key/value flags such as the daily
// "report shown" marker.
type SettingService struct {
	db *pgxpool.Pool
}

func NewSettingService(db *pgxpool.Pool) *SettingService {
	return &SettingService{db: db}
}

func (s *SettingService) GetSetting(ctx context.Context, clerkID, key string) (string, bool, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return "", false, err
	}

	var value string
	err = s.db.QueryRow(ctx, `
		SELECT setting_value FROM user_settings
		WHERE user_id = $1 AND setting_key = $2
	`, userID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}

	return value, true, nil
}

func (s *SettingService) SetSetting(ctx context.Context, clerkID, key, value string) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO user_settings (user_id, setting_key, setting_value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, setting_key)
		DO UPDATE SET setting_value = EXCLUDED.setting_value, updated_at = NOW()
	`, userID, key, value)
	if err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}

	return nil
}
