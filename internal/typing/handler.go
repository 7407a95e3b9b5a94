package typing

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/forumcore/pkg/middleware"
	"github.com/fkhayef/forumcore/pkg/request"
	"github.com/fkhayef/forumcore/pkg/response"
)

// Handler handles HTTP requests for typing indicators
type Handler struct {
	service *Service
}

// NewHandler creates a new typing handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ForumRoutes registers the typing endpoints under /forums/{forumID}
func (h *Handler) ForumRoutes(r chi.Router) {
	r.Post("/typing", h.SetTyping)
	r.Get("/typing", h.ListTyping)
}

// SetTyping handles POST /forums/{forumID}/typing
// @Summary      Signal typing
// @Tags         typing
// @Accept       json
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Param        request body SetTypingRequest true "Typing signal"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /forums/{forumID}/typing [post]
func (h *Handler) SetTyping(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	var req SetTypingRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.service.SetTyping(r.Context(), principal, forumID, req.IsTyping); err != nil {
		response.FromError(w, err, "Failed to update typing status")
		return
	}

	response.JSON(w, http.StatusOK, map[string]bool{"is_typing": req.IsTyping})
}

// ListTyping handles GET /forums/{forumID}/typing
// @Summary      List users typing
// @Description  Excludes the caller
// @Tags         typing
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Success      200 {object} response.APIResponse{data=TypingResponse}
// @Router       /forums/{forumID}/typing [get]
func (h *Handler) ListTyping(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	users, err := h.service.ListTyping(r.Context(), principal, forumID)
	if err != nil {
		response.FromError(w, err, "Failed to list typing users")
		return
	}

	response.JSON(w, http.StatusOK, TypingResponse{ForumID: forumID, UserIDs: users})
}
