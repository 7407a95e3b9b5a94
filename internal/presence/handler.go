package presence

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/forumcore/pkg/middleware"
	"github.com/fkhayef/forumcore/pkg/request"
	"github.com/fkhayef/forumcore/pkg/response"
)

// Handler handles HTTP requests for presence
type Handler struct {
	service *Service
}

// NewHandler creates a new presence handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ForumRoutes registers the presence endpoints under /forums/{forumID}
func (h *Handler) ForumRoutes(r chi.Router) {
	r.Post("/online", h.MarkOnline)
	r.Delete("/online", h.MarkOffline)
	r.Get("/online", h.OnlineUsers)
	r.Post("/heartbeat", h.Heartbeat)
	r.Get("/online-count", h.OnlineCount)
}

// MarkOnline handles POST /forums/{forumID}/online
// @Summary      Mark the caller online
// @Tags         presence
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      503 {object} response.APIResponse
// @Router       /forums/{forumID}/online [post]
func (h *Handler) MarkOnline(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	if err := h.service.MarkOnline(r.Context(), principal, forumID); err != nil {
		response.FromError(w, err, "Failed to mark online")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Marked online"})
}

// MarkOffline handles DELETE /forums/{forumID}/online
// @Summary      Mark the caller offline
// @Tags         presence
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Success      200 {object} response.APIResponse
// @Router       /forums/{forumID}/online [delete]
func (h *Handler) MarkOffline(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	if err := h.service.MarkOffline(r.Context(), principal, forumID); err != nil {
		response.FromError(w, err, "Failed to mark offline")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Marked offline"})
}

// Heartbeat handles POST /forums/{forumID}/heartbeat
// @Summary      Refresh the caller's presence
// @Tags         presence
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Success      200 {object} response.APIResponse{data=HeartbeatResponse}
// @Failure      503 {object} response.APIResponse
// @Router       /forums/{forumID}/heartbeat [post]
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	refreshed, err := h.service.Heartbeat(r.Context(), principal, forumID)
	if err != nil {
		response.FromError(w, err, "Failed to record heartbeat")
		return
	}

	response.JSON(w, http.StatusOK, HeartbeatResponse{Refreshed: refreshed})
}

// OnlineCount handles GET /forums/{forumID}/online-count
// @Summary      Count online members
// @Tags         presence
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Success      200 {object} response.APIResponse{data=OnlineCountResponse}
// @Router       /forums/{forumID}/online-count [get]
func (h *Handler) OnlineCount(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	count, err := h.service.OnlineCount(r.Context(), principal, forumID)
	if err != nil {
		response.FromError(w, err, "Failed to count online members")
		return
	}

	response.JSON(w, http.StatusOK, OnlineCountResponse{ForumID: forumID, OnlineCount: count})
}

// OnlineUsers handles GET /forums/{forumID}/online
// @Summary      List online members
// @Tags         presence
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Success      200 {object} response.APIResponse{data=OnlineUsersResponse}
// @Router       /forums/{forumID}/online [get]
func (h *Handler) OnlineUsers(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	users, err := h.service.OnlineUsers(r.Context(), principal, forumID)
	if err != nil {
		response.FromError(w, err, "Failed to list online members")
		return
	}
	if users == nil {
		users = []int64{}
	}

	response.JSON(w, http.StatusOK, OnlineUsersResponse{ForumID: forumID, UserIDs: users})
}
