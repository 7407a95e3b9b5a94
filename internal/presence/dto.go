package presence

// OnlineCountResponse is returned by the online-count endpoint
type OnlineCountResponse struct {
	ForumID     int64 `json:"forum_id"`
	OnlineCount int   `json:"online_count"`
}

// HeartbeatResponse tells the client whether a record was refreshed. A
// false value means the client should mark itself online again.
type HeartbeatResponse struct {
	Refreshed bool `json:"refreshed"`
}

// OnlineUsersResponse lists the online members of a forum
type OnlineUsersResponse struct {
	ForumID int64   `json:"forum_id"`
	UserIDs []int64 `json:"user_ids"`
}
