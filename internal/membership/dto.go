package membership

import "github.com/fkhayef/forumcore/internal/role"

// MemberResponse represents a member in API responses
type MemberResponse struct {
	UserID   int64     `json:"user_id"`
	Username string    `json:"username,omitempty"`
	Role     role.Role `json:"role"`
	IsActive bool      `json:"is_active"`
	IsBanned bool      `json:"is_banned"`
	BannedBy *int64    `json:"banned_by,omitempty"`
	JoinedAt string    `json:"joined_at"`
}

// ToResponse converts a Member model to a MemberResponse DTO
func (m *Member) ToResponse() *MemberResponse {
	return &MemberResponse{
		UserID:   m.UserID,
		Username: m.Username,
		Role:     m.Role,
		IsActive: m.IsActive,
		IsBanned: m.IsBanned,
		BannedBy: m.BannedBy,
		JoinedAt: m.JoinedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponses converts a slice of members
func ToResponses(members []*Member) []*MemberResponse {
	responses := make([]*MemberResponse, len(members))
	for i, m := range members {
		responses[i] = m.ToResponse()
	}
	return responses
}
