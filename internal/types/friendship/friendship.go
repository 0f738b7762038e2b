package friendship

import (
	"time"

	"github.com/google/uuid"

	"neuroTrackAPI/internal/types/entry"
)

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

type Friendship struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	FriendID  uuid.UUID        `json:"friend_id" db:"friend_id"`
	Status    FriendshipStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

type AddFriendRequest struct {
	FriendID string `json:"friendId"`
}

// FriendSummary is what a user sees about a connected friend.
type FriendSummary struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Email                string       `json:"email"`
	Streak               int          `json:"streak"`
	TodayTaskCount       int          `json:"todayTaskCount"`
	TodayTasks           []entry.Todo `json:"todayTasks"`
	ActiveShortTermGoals int          `json:"activeShortTermGoals"`
	ActiveLongTermGoals  int          `json:"activeLongTermGoals"`
}

// InviteCode lets another user add the owner by scanning or opening the link.
type InviteCode struct {
	FriendID     string `json:"friendId"`
	Link         string `json:"link"`
	QrCodeBase64 string `json:"qrCodeBase64"`
}
