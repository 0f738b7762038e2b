package services

import (
	"context"
	"errors"
	"fmt"
	"neuroTrackAPI/internal/types/profile"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileService struct {
	db *pgxpool.Pool
}

func NewProfileService(db *pgxpool.Pool) *ProfileService {
	return &ProfileService{db: db}
}

// GetProfile returns the stored profile, or an empty one for a new user.
func (s *ProfileService) GetProfile(ctx context.Context, clerkID string) (*profile.UserProfile, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	return s.profileFor(ctx, userID)
}

func (s *ProfileService) profileFor(ctx context.Context, userID uuid.UUID) (*profile.UserProfile, error) {
	p := &profile.UserProfile{}
	err := s.db.QueryRow(ctx, `
		SELECT name, age, height, weight
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&p.Name, &p.Age, &p.Height, &p.Weight)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &profile.UserProfile{}, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (s *ProfileService) UpsertProfile(ctx context.Context, clerkID string, p *profile.UserProfile) (*profile.UserProfile, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	clean := profile.UserProfile{
		Name:   strings.TrimSpace(p.Name),
		Age:    strings.TrimSpace(p.Age),
		Height: strings.TrimSpace(p.Height),
		Weight: strings.TrimSpace(p.Weight),
	}

	if _, err := s.db.Exec(ctx, upsertProfileQuery, profileArgs(userID, clean)...); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	return &clean, nil
}

const upsertProfileQuery = `
	INSERT INTO profiles (user_id, name, age, height, weight, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (user_id) DO UPDATE SET
		name = EXCLUDED.name,
		age = EXCLUDED.age,
		height = EXCLUDED.height,
		weight = EXCLUDED.weight,
		updated_at = NOW()
`

func profileArgs(userID uuid.UUID, p profile.UserProfile) []any {
	return []any{userID, p.Name, p.Age, p.Height, p.Weight}
}
