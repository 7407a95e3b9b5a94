package membership

import (
	"time"

	"github.com/fkhayef/forumcore/internal/role"
)

// Member is a user's relationship with one forum
type Member struct {
	ForumID   int64     `json:"forum_id"`
	UserID    int64     `json:"user_id"`
	Role      role.Role `json:"role"`
	IsActive  bool      `json:"is_active"`
	IsBanned  bool      `json:"is_banned"`
	BannedBy  *int64    `json:"banned_by,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Populated from the user directory when available
	Username string `json:"username,omitempty"`
}

// ForumInfo is the slice of a forum that membership rules depend on
type ForumInfo struct {
	ID         int64
	Title      string
	CreatorID  int64
	IsPrivate  bool
	MaxMembers int
}

// Filter selects which member rows a listing returns
type Filter int

const (
	FilterActive Filter = iota
	FilterBanned
)
