package moderation

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/forumcore/internal/membership"
	"github.com/fkhayef/forumcore/internal/role"
	"github.com/fkhayef/forumcore/pkg/middleware"
	"github.com/fkhayef/forumcore/pkg/request"
	"github.com/fkhayef/forumcore/pkg/response"
)

// Handler handles HTTP requests for moderation actions
type Handler struct {
	service *Service
}

// NewHandler creates a new moderation handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ForumRoutes registers the moderation endpoints under /forums/{forumID}
func (h *Handler) ForumRoutes(r chi.Router) {
	r.Delete("/members/{userID}", h.Kick)
	r.Post("/members/{userID}/ban", h.Ban)
	r.Post("/members/{userID}/unban", h.Unban)
	r.Post("/members/{userID}/assign-role", h.AssignRole)
}

// Kick handles DELETE /forums/{forumID}/members/{userID}
// @Summary      Kick a member
// @Tags         moderation
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Param        userID path int true "User ID"
// @Success      200 {object} response.APIResponse{data=membership.MemberResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /forums/{forumID}/members/{userID} [delete]
func (h *Handler) Kick(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "Failed to kick member", h.service.Kick)
}

// Ban handles POST /forums/{forumID}/members/{userID}/ban
// @Summary      Ban a member
// @Tags         moderation
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Param        userID path int true "User ID"
// @Success      200 {object} response.APIResponse{data=membership.MemberResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /forums/{forumID}/members/{userID}/ban [post]
func (h *Handler) Ban(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "Failed to ban member", h.service.Ban)
}

// Unban handles POST /forums/{forumID}/members/{userID}/unban
// @Summary      Unban a member
// @Tags         moderation
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Param        userID path int true "User ID"
// @Success      200 {object} response.APIResponse{data=membership.MemberResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /forums/{forumID}/members/{userID}/unban [post]
func (h *Handler) Unban(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "Failed to unban member", h.service.Unban)
}

// AssignRole handles POST /forums/{forumID}/members/{userID}/assign-role
// @Summary      Assign a role
// @Description  Creator only. The creator role itself cannot be assigned or changed.
// @Tags         moderation
// @Accept       json
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Param        userID path int true "User ID"
// @Param        request body AssignRoleRequest true "New role"
// @Success      200 {object} response.APIResponse{data=membership.MemberResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /forums/{forumID}/members/{userID}/assign-role [post]
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req AssignRoleRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	h.run(w, r, "Failed to assign role", func(ctx context.Context, p role.Principal, forumID, targetID int64) (*membership.Member, error) {
		return h.service.AssignRole(ctx, p, forumID, targetID, req.Role)
	})
}

type actionFunc func(ctx context.Context, p role.Principal, forumID, targetID int64) (*membership.Member, error)

func (h *Handler) run(w http.ResponseWriter, r *http.Request, failure string, action actionFunc) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	targetID, err := request.IDParam(r, "userID")
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	m, err := action(r.Context(), principal, forumID, targetID)
	if err != nil {
		response.FromError(w, err, failure)
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}
