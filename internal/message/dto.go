package message

// CreateMessageRequest represents the request to post a message
type CreateMessageRequest struct {
	Type            Type   `json:"type"`
	Content         string `json:"content"`
	ProblemID       *int64 `json:"problem_id,omitempty"`
	ParentMessageID *int64 `json:"parent_message_id,omitempty"`
}

// UpdateMessageRequest represents the request to edit a message
type UpdateMessageRequest struct {
	Content string `json:"content"`
}

// MessageResponse represents a message in API responses. Deleted messages
// are tombstones: content and problem id are withheld.
type MessageResponse struct {
	ID              int64  `json:"id"`
	ForumID         int64  `json:"forum_id"`
	AuthorID        int64  `json:"author_id"`
	Type            Type   `json:"type"`
	Content         string `json:"content"`
	ProblemID       *int64 `json:"problem_id,omitempty"`
	ParentMessageID *int64 `json:"parent_message_id,omitempty"`
	ReplyCount      int    `json:"reply_count"`
	IsPinned        bool   `json:"is_pinned"`
	IsDeleted       bool   `json:"is_deleted"`
	Edited          bool   `json:"edited"`
	CreatedAt       string `json:"created_at"`
}

// ReplyCountResponse is returned by the reply-count endpoint
type ReplyCountResponse struct {
	MessageID  int64 `json:"message_id"`
	ReplyCount int   `json:"reply_count"`
}

// ToResponse converts a Message model to a MessageResponse DTO
func (m *Message) ToResponse() *MessageResponse {
	resp := &MessageResponse{
		ID:              m.ID,
		ForumID:         m.ForumID,
		AuthorID:        m.AuthorID,
		Type:            m.Type,
		Content:         m.Content,
		ProblemID:       m.ProblemID,
		ParentMessageID: m.ParentMessageID,
		ReplyCount:      m.ReplyCount,
		IsPinned:        m.IsPinned,
		IsDeleted:       m.IsDeleted,
		Edited:          m.Edited,
		CreatedAt:       m.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	if m.IsDeleted {
		resp.Content = ""
		resp.ProblemID = nil
	}
	return resp
}

// ToResponses converts a slice of messages
func ToResponses(messages []*Message) []*MessageResponse {
	responses := make([]*MessageResponse, len(messages))
	for i, m := range messages {
		responses[i] = m.ToResponse()
	}
	return responses
}
