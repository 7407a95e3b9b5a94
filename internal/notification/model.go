package notification

import "time"

// Kind names the forum event a notification reports
type Kind string

const (
	KindGeneral        Kind = "general"
	KindInvited        Kind = "invited"
	KindKicked         Kind = "kicked"
	KindBanned         Kind = "banned"
	KindRoleChanged    Kind = "role_changed"
	KindMessageRemoved Kind = "message_removed"
)

// EntityType is the kind of row a notification points at
type EntityType string

const (
	EntityForum      EntityType = "FORUM"
	EntityInvitation EntityType = "INVITATION"
	EntityMessage    EntityType = "MESSAGE"
)

// Notification is one stored notice for a user. ForumID is nil for notices
// not tied to a forum.
type Notification struct {
	ID                int64       `json:"id"`
	RecipientID       int64       `json:"recipient_id"`
	Kind              Kind        `json:"kind"`
	ForumID           *int64      `json:"forum_id,omitempty"`
	Message           string      `json:"message"`
	IsRead            bool        `json:"is_read"`
	RelatedEntityType *EntityType `json:"related_entity_type,omitempty"`
	RelatedEntityID   *int64      `json:"related_entity_id,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}

// Filter narrows a recipient's notification list
type Filter struct {
	ForumID    int64 // 0 lists every forum
	UnreadOnly bool
	Limit      int
	Offset     int
}

func (f Filter) matches(n *Notification) bool {
	if f.UnreadOnly && n.IsRead {
		return false
	}
	if f.ForumID != 0 && (n.ForumID == nil || *n.ForumID != f.ForumID) {
		return false
	}
	return true
}

// Delivery is the payload of a notification:deliver task
type Delivery struct {
	RecipientID int64      `json:"recipient_id"`
	Kind        Kind       `json:"kind"`
	ForumID     int64      `json:"forum_id,omitempty"`
	Message     string     `json:"message"`
	EntityType  EntityType `json:"entity_type,omitempty"`
	EntityID    int64      `json:"entity_id,omitempty"`
}

// Notification builds the row a delivery stores
func (d Delivery) Notification() *Notification {
	n := &Notification{RecipientID: d.RecipientID, Kind: d.Kind, Message: d.Message}
	if n.Kind == "" {
		n.Kind = KindGeneral
	}
	if d.ForumID != 0 {
		forumID := d.ForumID
		n.ForumID = &forumID
	}
	if d.EntityType != "" {
		entityType, entityID := d.EntityType, d.EntityID
		n.RelatedEntityType = &entityType
		n.RelatedEntityID = &entityID
	}
	return n
}

// Invited is sent to the invitee of a new invitation
func Invited(recipientID int64, forumTitle string, forumID, invitationID int64) Delivery {
	return Delivery{
		RecipientID: recipientID,
		Kind:        KindInvited,
		ForumID:     forumID,
		Message:     "You have been invited to join forum: " + forumTitle,
		EntityType:  EntityInvitation,
		EntityID:    invitationID,
	}
}

// Kicked is sent to a member removed by a moderator
func Kicked(recipientID int64, forumTitle string, forumID int64) Delivery {
	return Delivery{
		RecipientID: recipientID,
		Kind:        KindKicked,
		ForumID:     forumID,
		Message:     "You have been removed from forum: " + forumTitle,
		EntityType:  EntityForum,
		EntityID:    forumID,
	}
}

// Banned is sent to a banned member
func Banned(recipientID int64, forumTitle string, forumID int64) Delivery {
	return Delivery{
		RecipientID: recipientID,
		Kind:        KindBanned,
		ForumID:     forumID,
		Message:     "You have been banned from forum: " + forumTitle,
		EntityType:  EntityForum,
		EntityID:    forumID,
	}
}

// RoleChanged is sent when the creator assigns a new role
func RoleChanged(recipientID int64, forumTitle string, forumID int64, newRole string) Delivery {
	return Delivery{
		RecipientID: recipientID,
		Kind:        KindRoleChanged,
		ForumID:     forumID,
		Message:     "Your role in forum " + forumTitle + " is now " + newRole,
		EntityType:  EntityForum,
		EntityID:    forumID,
	}
}

// MessageRemoved is sent to an author whose message a moderator deleted
func MessageRemoved(recipientID int64, forumTitle string, forumID, messageID int64) Delivery {
	return Delivery{
		RecipientID: recipientID,
		Kind:        KindMessageRemoved,
		ForumID:     forumID,
		Message:     "A moderator removed your message in forum: " + forumTitle,
		EntityType:  EntityMessage,
		EntityID:    messageID,
	}
}
