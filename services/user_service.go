package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"neuroTrackAPI/internal/types/user"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

// resolveUserID maps a Clerk ID to the internal user id. A signed-in user whose
// webhook has not landed yet gets a bare row so their data has an owner; the
// webhook fills in the details later.
func resolveUserID(ctx context.Context, db *pgxpool.Pool, clerkID string) (uuid.UUID, error) {
	if strings.TrimSpace(clerkID) == "" {
		return uuid.Nil, ErrUserNotFound
	}

	var userID uuid.UUID
	err := db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err == nil {
		return userID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	query := `
	INSERT INTO users (id, clerk_id)
	VALUES ($1, $2)
	ON CONFLICT (clerk_id) DO UPDATE SET clerk_id = EXCLUDED.clerk_id
	RETURNING id
	`
	if err := db.QueryRow(ctx, query, uuid.New(), clerkID).Scan(&userID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to provision user: %w", err)
	}

	log.Printf("resolveUserID: provisioned user %s for clerk_id %s", userID, clerkID)
	return userID, nil
}

func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	u := &user.User{
		ID:        uuid.New().String(),
		ClerkID:   req.ClerkID,
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		ImageURL:  req.ImageURL,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	// The row may already exist when the user signed in before the webhook arrived.
	query := `
	INSERT INTO users (id, clerk_id, email, username, first_name, last_name, image_url, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (clerk_id) DO UPDATE SET
		email = EXCLUDED.email,
		username = EXCLUDED.username,
		first_name = EXCLUDED.first_name,
		last_name = EXCLUDED.last_name,
		image_url = EXCLUDED.image_url,
		updated_at = EXCLUDED.updated_at
	RETURNING id, clerk_id, email, username, first_name, last_name, image_url, email_verified, created_at, updated_at
	`

	err := s.db.QueryRow(
		ctx,
		query,
		u.ID,
		u.ClerkID,
		u.Email,
		u.Username,
		u.FirstName,
		u.LastName,
		u.ImageURL,
		u.CreatedAt,
		u.UpdatedAt,
	).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.EmailVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	query := `
	SELECT id, clerk_id, email, username, first_name, last_name, image_url, email_verified, created_at, updated_at
	FROM users
	WHERE clerk_id = $1
	`

	u := &user.User{}
	err := s.db.QueryRow(ctx, query, clerkID).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.EmailVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

func (s *UserService) UpdateUserByClerkID(ctx context.Context, clerkID string, req *user.UpdateUserRequest) (*user.User, error) {
	query := `
	UPDATE users
	SET
		username = COALESCE(NULLIF($2, ''), username),
		first_name = COALESCE(NULLIF($3, ''), first_name),
		last_name = COALESCE(NULLIF($4, ''), last_name),
		image_url = COALESCE(NULLIF($5, ''), image_url),
		updated_at = NOW()
	WHERE clerk_id = $1
	RETURNING id, clerk_id, email, username, first_name, last_name, image_url, email_verified, created_at, updated_at
	`

	u := &user.User{}
	err := s.db.QueryRow(
		ctx,
		query,
		clerkID,
		req.Username,
		req.FirstName,
		req.LastName,
		req.ImageURL,
	).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.EmailVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return u, nil
}

// UpdateEmail stores the primary address reported by Clerk.
func (s *UserService) UpdateEmail(ctx context.Context, clerkID string, email string, verified bool) error {
	query := `
	UPDATE users
	SET email = $2, email_verified = $3, updated_at = NOW()
	WHERE clerk_id = $1
	`

	result, err := s.db.Exec(ctx, query, clerkID, email, verified)
	if err != nil {
		return fmt.Errorf("failed to update email: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	query := `DELETE FROM users WHERE clerk_id = $1`

	result, err := s.db.Exec(ctx, query, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SearchUsers finds people to connect with by name, username or email, best
// matches first. The caller and their existing friends are left out.
func (s *UserService) SearchUsers(ctx context.Context, clerkID string, query string) ([]*user.User, error) {
	cleanQuery := strings.TrimSpace(query)
	if cleanQuery == "" {
		return []*user.User{}, nil
	}
	searchPattern := "%" + cleanQuery + "%"
	startsWithPattern := cleanQuery + "%"

	sqlQuery := `
	SELECT
		id,
		clerk_id,
		email,
		username,
		first_name,
		last_name,
		image_url,
		email_verified,
		created_at,
		updated_at,
		similarity_score
	FROM (
		SELECT
			u.id,
			u.clerk_id,
			u.email,
			u.username,
			u.first_name,
			u.last_name,
			u.image_url,
			u.email_verified,
			u.created_at,
			u.updated_at,
			GREATEST(
				CASE
					WHEN LOWER(u.username) = LOWER($2) THEN 100
					WHEN LOWER(u.email) = LOWER($2) THEN 100
					WHEN LOWER(CONCAT(u.first_name, ' ', u.last_name)) = LOWER($2) THEN 100
					WHEN LOWER(u.first_name) = LOWER($2) THEN 95
					WHEN LOWER(u.last_name) = LOWER($2) THEN 95
					ELSE 0
				END,
				CASE
					WHEN LOWER(u.username) LIKE LOWER($3) THEN 90
					WHEN LOWER(CONCAT(u.first_name, ' ', u.last_name)) LIKE LOWER($3) THEN 88
					WHEN LOWER(u.first_name) LIKE LOWER($3) THEN 85
					WHEN LOWER(u.last_name) LIKE LOWER($3) THEN 85
					ELSE 0
				END,
				CASE
					WHEN LOWER(u.username) LIKE LOWER($1) THEN 70
					WHEN LOWER(CONCAT(u.first_name, ' ', u.last_name)) LIKE LOWER($1) THEN 65
					WHEN LOWER(u.first_name) LIKE LOWER($1) THEN 60
					WHEN LOWER(u.last_name) LIKE LOWER($1) THEN 60
					WHEN LOWER(u.email) LIKE LOWER($1) THEN 50
					ELSE 0
				END
			) AS similarity_score
		FROM users u
		WHERE
			(
				u.username ILIKE $1 OR
				u.email ILIKE $1 OR
				u.first_name ILIKE $1 OR
				u.last_name ILIKE $1 OR
				CONCAT(u.first_name, ' ', u.last_name) ILIKE $1
			)
			AND u.clerk_id != $4
			AND u.id NOT IN (
				SELECT f.friend_id FROM friendships f
				JOIN users me ON me.id = f.user_id
				WHERE me.clerk_id = $4
				UNION
				SELECT f.user_id FROM friendships f
				JOIN users me ON me.id = f.friend_id
				WHERE me.clerk_id = $4
			)
	) AS scored_users
	WHERE similarity_score >= 30
	ORDER BY
		similarity_score DESC,
		username
	LIMIT 50
	`

	rows, err := s.db.Query(ctx, sqlQuery, searchPattern, cleanQuery, startsWithPattern, clerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	users := []*user.User{}
	for rows.Next() {
		u := &user.User{}
		var similarityScore int

		err := rows.Scan(
			&u.ID,
			&u.ClerkID,
			&u.Email,
			&u.Username,
			&u.FirstName,
			&u.LastName,
			&u.ImageURL,
			&u.EmailVerified,
			&u.CreatedAt,
			&u.UpdatedAt,
			&similarityScore,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		users = append(users, u)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}
