package moderation

import "github.com/fkhayef/forumcore/internal/role"

// AssignRoleRequest represents the request to change a member's role
type AssignRoleRequest struct {
	Role role.Role `json:"role"`
}
