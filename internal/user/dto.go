package user

import "github.com/fkhayef/forumcore/internal/role"

// CreateUserRequest is pushed by the identity collaborator to register a
// directory entry
type CreateUserRequest struct {
	Username  string        `json:"username" validate:"required,min=3,max=50"`
	Email     string        `json:"email" validate:"required,email"`
	AvatarURL *string       `json:"avatar_url,omitempty"`
	SiteRole  role.SiteRole `json:"site_role,omitempty"`
}

// UserResponse represents the response for a single user
type UserResponse struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// ToResponse converts a User model to a UserResponse DTO. Email stays
// private to the directory.
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
