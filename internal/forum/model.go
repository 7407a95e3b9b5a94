package forum

import "time"

// Forum is a bounded discussion room
type Forum struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsPrivate   bool      `json:"is_private"`
	MaxMembers  int       `json:"max_members"`
	CreatorID   int64     `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Populated by the service
	MemberCount int `json:"member_count"`
}
