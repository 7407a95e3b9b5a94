package membership

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/forumcore/pkg/middleware"
	"github.com/fkhayef/forumcore/pkg/request"
	"github.com/fkhayef/forumcore/pkg/response"
)

// Handler handles HTTP requests for joining, leaving and member listings
type Handler struct {
	service *Service
}

// NewHandler creates a new membership handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ForumRoutes registers the membership endpoints under /forums/{forumID}
func (h *Handler) ForumRoutes(r chi.Router) {
	r.Post("/join", h.Join)
	r.Delete("/leave", h.Leave)
	r.Get("/members", h.Members)
	r.Get("/banned-members", h.BannedMembers)
}

// Join handles POST /forums/{forumID}/join
// @Summary      Join a forum
// @Tags         members
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Success      201 {object} response.APIResponse{data=MemberResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /forums/{forumID}/join [post]
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	member, err := h.service.Join(r.Context(), principal, forumID)
	if err != nil {
		response.FromError(w, err, "Failed to join forum")
		return
	}

	response.JSON(w, http.StatusCreated, member.ToResponse())
}

// Leave handles DELETE /forums/{forumID}/leave
// @Summary      Leave a forum
// @Tags         members
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /forums/{forumID}/leave [delete]
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	if err := h.service.Leave(r.Context(), forumID, principal.UserID); err != nil {
		response.FromError(w, err, "Failed to leave forum")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Left forum successfully"})
}

// Members handles GET /forums/{forumID}/members
// @Summary      List active members
// @Tags         members
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Success      200 {object} response.APIResponse{data=[]MemberResponse}
// @Router       /forums/{forumID}/members [get]
func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	members, err := h.service.Members(r.Context(), principal, forumID)
	if err != nil {
		response.FromError(w, err, "Failed to get members")
		return
	}

	response.JSON(w, http.StatusOK, ToResponses(members))
}

// BannedMembers handles GET /forums/{forumID}/banned-members
// @Summary      List banned members
// @Tags         members
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Success      200 {object} response.APIResponse{data=[]MemberResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /forums/{forumID}/banned-members [get]
func (h *Handler) BannedMembers(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	members, err := h.service.BannedMembers(r.Context(), principal, forumID)
	if err != nil {
		response.FromError(w, err, "Failed to get banned members")
		return
	}

	response.JSON(w, http.StatusOK, ToResponses(members))
}
