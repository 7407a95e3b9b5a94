package notification

// NotificationResponse represents the response for a notification
type NotificationResponse struct {
	ID                int64       `json:"id"`
	Kind              Kind        `json:"kind"`
	ForumID           *int64      `json:"forum_id,omitempty"`
	Message           string      `json:"message"`
	IsRead            bool        `json:"is_read"`
	RelatedEntityType *EntityType `json:"related_entity_type,omitempty"`
	RelatedEntityID   *int64      `json:"related_entity_id,omitempty"`
	CreatedAt         string      `json:"created_at"`
}

// UnreadCountResponse is returned by the unread-count endpoint. ByForum
// keys notices without a forum under 0.
type UnreadCountResponse struct {
	UnreadCount int           `json:"unread_count"`
	ByForum     map[int64]int `json:"by_forum"`
}

// ToResponse converts a Notification to a NotificationResponse
func (n *Notification) ToResponse() *NotificationResponse {
	return &NotificationResponse{
		ID:                n.ID,
		Kind:              n.Kind,
		ForumID:           n.ForumID,
		Message:           n.Message,
		IsRead:            n.IsRead,
		RelatedEntityType: n.RelatedEntityType,
		RelatedEntityID:   n.RelatedEntityID,
		CreatedAt:         n.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
