package user

import (
	"time"

	"github.com/fkhayef/forumcore/internal/role"
)

// User is the directory entry mirrored from the identity collaborator
type User struct {
	ID        int64         `json:"id"`
	Username  string        `json:"username"`
	Email     string        `json:"email"`
	AvatarURL *string       `json:"avatar_url,omitempty"`
	SiteRole  role.SiteRole `json:"site_role"`
	CreatedAt time.Time     `json:"created_at"`
}
