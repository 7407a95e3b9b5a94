package invitation

import "github.com/fkhayef/forumcore/internal/user"

// InviteRequest represents the request to invite a user
type InviteRequest struct {
	UserID int64 `json:"user_id"`
}

// InvitationResponse represents an invitation in API responses
type InvitationResponse struct {
	ID          int64   `json:"id"`
	ForumID     int64   `json:"forum_id"`
	ForumTitle  string  `json:"forum_title,omitempty"`
	InviterID   int64   `json:"inviter_id"`
	InviteeID   int64   `json:"invitee_id"`
	Status      Status  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	RespondedAt *string `json:"responded_at,omitempty"`
}

// InvitableUserResponse is a directory user who can be invited
type InvitableUserResponse struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// ToResponse converts an Invitation model to an InvitationResponse DTO
func (i *Invitation) ToResponse() *InvitationResponse {
	resp := &InvitationResponse{
		ID:         i.ID,
		ForumID:    i.ForumID,
		ForumTitle: i.ForumTitle,
		InviterID:  i.InviterID,
		InviteeID:  i.InviteeID,
		Status:     i.Status,
		CreatedAt:  i.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if i.RespondedAt != nil {
		respondedAt := i.RespondedAt.UTC().Format("2006-01-02T15:04:05Z")
		resp.RespondedAt = &respondedAt
	}
	return resp
}

// ToResponses converts a slice of invitations
func ToResponses(invitations []*Invitation) []*InvitationResponse {
	responses := make([]*InvitationResponse, len(invitations))
	for i, inv := range invitations {
		responses[i] = inv.ToResponse()
	}
	return responses
}

func toInvitableResponses(users []*user.User) []*InvitableUserResponse {
	responses := make([]*InvitableUserResponse, len(users))
	for i, u := range users {
		responses[i] = &InvitableUserResponse{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
	}
	return responses
}
