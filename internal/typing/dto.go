package typing

// SetTypingRequest represents a typing signal
type SetTypingRequest struct {
	IsTyping bool `json:"is_typing"`
}

// TypingResponse lists the users currently typing
type TypingResponse struct {
	ForumID int64   `json:"forum_id"`
	UserIDs []int64 `json:"user_ids"`
}
