package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"neuroTrackAPI/internal/tracker"
	"neuroTrackAPI/internal/types/entry"
	"neuroTrackAPI/internal/types/friendship"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skip2/go-qrcode"
)

const inviteLinkFormat = "neurotrack://friends/add/%s"

// ErrFriendshipExists is returned when the two users are already connected.
var ErrFriendshipExists = errors.New("friendship already exists")

type FriendService struct {
	db      *pgxpool.Pool
	entries *EntryService
	goals   *GoalService
}

func NewFriendService(db *pgxpool.Pool, entries *EntryService, goals *GoalService) *FriendService {
	return &FriendService{db: db, entries: entries, goals: goals}
}

func (s *FriendService) AddFriend(ctx context.Context, clerkID string, friendUserID string) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	friendID, err := uuid.Parse(friendUserID)
	if err != nil {
		return fmt.Errorf("%w: invalid friend id", ErrInvalidInput)
	}
	if userID == friendID {
		log.Printf("AddFriend: User %s attempted to add themselves", clerkID)
		return fmt.Errorf("%w: cannot add yourself as a friend", ErrInvalidInput)
	}

	var friendExists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, friendID).Scan(&friendExists); err != nil {
		return fmt.Errorf("failed to look up friend: %w", err)
	}
	if !friendExists {
		return ErrUserNotFound
	}

	// Check if friendship already exists (in either direction)
	var exists bool
	checkQuery := `
		SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE (user_id = $1 AND friend_id = $2)
			   OR (user_id = $2 AND friend_id = $1)
		)
	`
	if err := s.db.QueryRow(ctx, checkQuery, userID, friendID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check existing friendship: %w", err)
	}
	if exists {
		return ErrFriendshipExists
	}

	insertQuery := `
		INSERT INTO friendships (user_id, friend_id, status, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	if _, err := s.db.Exec(ctx, insertQuery, userID, friendID, string(friendship.FriendshipAccepted)); err != nil {
		return fmt.Errorf("failed to create friendship: %w", err)
	}

	log.Printf("AddFriend: Successfully created friendship between %s and %s", userID, friendID)
	return nil
}

func (s *FriendService) RemoveFriend(ctx context.Context, clerkID string, friendUserID string) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	friendID, err := uuid.Parse(friendUserID)
	if err != nil {
		return fmt.Errorf("%w: invalid friend id", ErrInvalidInput)
	}

	deleteQuery := `
		DELETE FROM friendships
		WHERE (user_id = $1 AND friend_id = $2)
		   OR (user_id = $2 AND friend_id = $1)
	`
	result, err := s.db.Exec(ctx, deleteQuery, userID, friendID)
	if err != nil {
		return fmt.Errorf("failed to remove friendship: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	log.Printf("RemoveFriend: Successfully removed friendship between %s and %s", userID, friendID)
	return nil
}

// InviteCode returns the caller's add-me link and the same link as a PNG QR code.
func (s *FriendService) InviteCode(ctx context.Context, clerkID string) (*friendship.InviteCode, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	return buildInvite(userID)
}

func buildInvite(userID uuid.UUID) (*friendship.InviteCode, error) {
	link := fmt.Sprintf(inviteLinkFormat, userID)

	pngBytes, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR png: %w", err)
	}

	return &friendship.InviteCode{
		FriendID:     userID.String(),
		Link:         link,
		QrCodeBase64: base64.StdEncoding.EncodeToString(pngBytes),
	}, nil
}

type friendRow struct {
	id        uuid.UUID
	email     string
	username  string
	firstName string
	lastName  string
}

func (f friendRow) displayName() string {
	if name := strings.TrimSpace(f.firstName + " " + f.lastName); name != "" {
		return name
	}
	if f.username != "" {
		return f.username
	}
	return f.email
}

// GetFriends lists accepted friends with a snapshot of their day, best streak first.
func (s *FriendService) GetFriends(ctx context.Context, clerkID string, now time.Time) ([]*friendship.FriendSummary, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT DISTINCT u.id, u.email, u.username, u.first_name, u.last_name
	FROM users u
	INNER JOIN friendships f ON (
		(f.user_id = u.id AND f.friend_id = $1)
		OR
		(f.friend_id = u.id AND f.user_id = $1)
	)
	WHERE f.status = 'accepted'
	AND u.id != $1
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	var friends []friendRow
	for rows.Next() {
		var f friendRow
		if err := rows.Scan(&f.id, &f.email, &f.username, &f.firstName, &f.lastName); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating friends: %w", err)
	}

	today := tracker.DateKey(now)
	since, _ := tracker.ParseDate(today)
	since = since.AddDate(-1, 0, -1)

	summaries := make([]*friendship.FriendSummary, 0, len(friends))
	for _, f := range friends {
		history, err := s.entries.historyFor(ctx, f.id, since)
		if err != nil {
			return nil, err
		}
		goals, err := s.goals.goalsFor(ctx, f.id)
		if err != nil {
			return nil, err
		}

		summary := &friendship.FriendSummary{
			ID:         f.id.String(),
			Name:       f.displayName(),
			Email:      f.email,
			Streak:     tracker.CalculateStreak(history, now),
			TodayTasks: []entry.Todo{},
		}
		if e, ok := history[today]; ok {
			summary.TodayTaskCount = e.TotalCount
			summary.TodayTasks = e.Todos
		}
		summary.ActiveShortTermGoals, summary.ActiveLongTermGoals = tracker.ActiveGoalCounts(goals)
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].Streak != summaries[j].Streak {
			return summaries[i].Streak > summaries[j].Streak
		}
		return summaries[i].Name < summaries[j].Name
	})

	return summaries, nil
}
