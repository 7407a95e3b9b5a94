package forum

import "github.com/fkhayef/forumcore/internal/role"

// CreateForumRequest represents the request to create a new forum
type CreateForumRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=120"`
	Description string `json:"description,omitempty"`
	IsPrivate   bool   `json:"is_private"`
	MaxMembers  int    `json:"max_members,omitempty"`
}

// UpdateForumRequest represents the request to update a forum
type UpdateForumRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description,omitempty"`
	IsPrivate   *bool   `json:"is_private,omitempty"`
	MaxMembers  *int    `json:"max_members,omitempty"`
}

// ForumResponse represents the response for a forum
type ForumResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsPrivate   bool      `json:"is_private"`
	MaxMembers  int       `json:"max_members"`
	MemberCount int       `json:"member_count"`
	CreatorID   int64     `json:"creator_id"`
	MyRole      role.Role `json:"my_role,omitempty"`
	CreatedAt   string    `json:"created_at"`
}

// ToResponse converts a Forum model to a ForumResponse DTO
func (f *Forum) ToResponse() *ForumResponse {
	return &ForumResponse{
		ID:          f.ID,
		Title:       f.Title,
		Description: f.Description,
		IsPrivate:   f.IsPrivate,
		MaxMembers:  f.MaxMembers,
		MemberCount: f.MemberCount,
		CreatorID:   f.CreatorID,
		CreatedAt:   f.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
