package invitation

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/forumcore/pkg/middleware"
	"github.com/fkhayef/forumcore/pkg/request"
	"github.com/fkhayef/forumcore/pkg/response"
)

// Handler handles HTTP requests for invitations
type Handler struct {
	service *Service
}

// NewHandler creates a new invitation handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ForumRoutes registers the forum-scoped endpoints under /forums/{forumID}
func (h *Handler) ForumRoutes(r chi.Router) {
	r.Get("/invite-users", h.InvitableUsers)
	r.Post("/invite", h.Invite)
}

// Routes returns the router for /invitations
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Mine)
	r.Post("/{invitationID}/accept", h.Accept)
	r.Post("/{invitationID}/decline", h.Decline)

	return r
}

// InvitableUsers handles GET /forums/{forumID}/invite-users
// @Summary      Search users who can be invited
// @Tags         invitations
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Param        q query string false "Username fragment"
// @Param        limit query int false "Maximum results" default(20)
// @Success      200 {object} response.APIResponse{data=[]InvitableUserResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /forums/{forumID}/invite-users [get]
func (h *Handler) InvitableUsers(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	users, err := h.service.InvitableUsers(r.Context(), principal, forumID, r.URL.Query().Get("q"), limit)
	if err != nil {
		response.FromError(w, err, "Failed to search users")
		return
	}

	response.JSON(w, http.StatusOK, toInvitableResponses(users))
}

// Invite handles POST /forums/{forumID}/invite
// @Summary      Invite a user
// @Tags         invitations
// @Accept       json
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Param        request body InviteRequest true "Invitee"
// @Success      201 {object} response.APIResponse{data=InvitationResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /forums/{forumID}/invite [post]
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	var req InviteRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.UserID <= 0 {
		response.BadRequest(w, "user_id is required")
		return
	}

	inv, err := h.service.Invite(r.Context(), principal, forumID, req.UserID)
	if err != nil {
		response.FromError(w, err, "Failed to invite user")
		return
	}

	response.JSON(w, http.StatusCreated, inv.ToResponse())
}

// Mine handles GET /invitations
// @Summary      List my invitations
// @Tags         invitations
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]InvitationResponse}
// @Router       /invitations [get]
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())

	invitations, err := h.service.Mine(r.Context(), principal)
	if err != nil {
		response.FromError(w, err, "Failed to list invitations")
		return
	}

	response.JSON(w, http.StatusOK, ToResponses(invitations))
}

// Accept handles POST /invitations/{invitationID}/accept
// @Summary      Accept an invitation
// @Tags         invitations
// @Produce      json
// @Param        invitationID path int true "Invitation ID"
// @Success      200 {object} response.APIResponse{data=InvitationResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /invitations/{invitationID}/accept [post]
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	invitationID, err := request.IDParam(r, "invitationID")
	if err != nil {
		response.BadRequest(w, "Invalid invitation ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	inv, err := h.service.Accept(r.Context(), principal, invitationID)
	if err != nil {
		response.FromError(w, err, "Failed to accept invitation")
		return
	}

	response.JSON(w, http.StatusOK, inv.ToResponse())
}

// Decline handles POST /invitations/{invitationID}/decline
// @Summary      Decline an invitation
// @Tags         invitations
// @Produce      json
// @Param        invitationID path int true "Invitation ID"
// @Success      200 {object} response.APIResponse{data=InvitationResponse}
// @Failure      409 {object} response.APIResponse
// @Router       /invitations/{invitationID}/decline [post]
func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	invitationID, err := request.IDParam(r, "invitationID")
	if err != nil {
		response.BadRequest(w, "Invalid invitation ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	inv, err := h.service.Decline(r.Context(), principal, invitationID)
	if err != nil {
		response.FromError(w, err, "Failed to decline invitation")
		return
	}

	response.JSON(w, http.StatusOK, inv.ToResponse())
}
