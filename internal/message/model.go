package message

import "time"

// Type is the kind of content a message carries
type Type string

const (
	TypeText    Type = "text"
	TypeImage   Type = "image"
	TypeProblem Type = "problem"
)

// Valid reports whether t is a known message type
func (t Type) Valid() bool {
	return t == TypeText || t == TypeImage || t == TypeProblem
}

// Message is a post in a forum. ID is the ordering key.
type Message struct {
	ID              int64     `json:"id"`
	ForumID         int64     `json:"forum_id"`
	AuthorID        int64     `json:"author_id"`
	Content         string    `json:"content"`
	Type            Type      `json:"type"`
	ProblemID       *int64    `json:"problem_id,omitempty"`
	ParentMessageID *int64    `json:"parent_message_id,omitempty"`
	ReplyCount      int       `json:"reply_count"`
	IsPinned        bool      `json:"is_pinned"`
	IsDeleted       bool      `json:"is_deleted"`
	Edited          bool      `json:"edited"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Order is the direction of a listing
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ListQuery selects a page of a forum's messages. With OrderAsc the page
// holds ids greater than Cursor; with OrderDesc ids smaller than Cursor.
// A zero Cursor starts from the respective end.
type ListQuery struct {
	ForumID int64
	Cursor  int64
	Order   Order
	Limit   int
}
