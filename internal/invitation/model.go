package invitation

import "time"

// Status is the lifecycle state of an invitation
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// Invitation asks a user to join a forum. At most one per (forum,
// invitee) is pending at a time.
type Invitation struct {
	ID          int64      `json:"id"`
	ForumID     int64      `json:"forum_id"`
	InviterID   int64      `json:"inviter_id"`
	InviteeID   int64      `json:"invitee_id"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	ForumTitle  string     `json:"forum_title,omitempty"`
}
