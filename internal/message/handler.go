package message

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/forumcore/pkg/middleware"
	"github.com/fkhayef/forumcore/pkg/request"
	"github.com/fkhayef/forumcore/pkg/response"
)

// Handler handles HTTP requests for forum messages
type Handler struct {
	service *Service
}

// NewHandler creates a new message handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ForumRoutes registers the message endpoints under /forums/{forumID}
func (h *Handler) ForumRoutes(r chi.Router) {
	r.Route("/messages", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/pinned", h.Pinned)
		r.Delete("/unpin", h.Unpin)

		r.Route("/{messageID}", func(r chi.Router) {
			r.Get("/", h.GetByID)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/pin", h.Pin)
			r.Get("/reply-count", h.ReplyCount)
			r.Get("/replies", h.Replies)
		})
	})
}

// List handles GET /forums/{forumID}/messages
// @Summary      List messages
// @Description  Cursor-paginated listing in id order. Deleted messages appear as tombstones.
// @Tags         messages
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Param        cursor query int false "Exclusive id cursor"
// @Param        order query string false "asc or desc" default(asc)
// @Param        limit query int false "Page size" default(50)
// @Success      200 {object} response.APIResponse{data=[]MessageResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /forums/{forumID}/messages [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	q := ListQuery{ForumID: forumID, Order: Order(r.URL.Query().Get("order"))}
	if q.Order == "" {
		q.Order = OrderAsc
	}
	if q.Order != OrderAsc && q.Order != OrderDesc {
		response.BadRequest(w, "order must be asc or desc")
		return
	}
	if v := r.URL.Query().Get("cursor"); v != "" {
		q.Cursor, err = strconv.ParseInt(v, 10, 64)
		if err != nil || q.Cursor < 0 {
			response.BadRequest(w, "Invalid cursor")
			return
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		q.Limit, err = strconv.Atoi(v)
		if err != nil || q.Limit < 1 {
			response.BadRequest(w, "Invalid limit")
			return
		}
	}

	messages, next, err := h.service.List(r.Context(), principal, q)
	if err != nil {
		response.FromError(w, err, "Failed to list messages")
		return
	}

	response.JSONWithMeta(w, http.StatusOK, ToResponses(messages), &response.Meta{NextCursor: next})
}

// Create handles POST /forums/{forumID}/messages
// @Summary      Post a message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Param        request body CreateMessageRequest true "Message"
// @Success      201 {object} response.APIResponse{data=MessageResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /forums/{forumID}/messages [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	var req CreateMessageRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	m, err := h.service.Post(r.Context(), principal, forumID, &req)
	if err != nil {
		response.FromError(w, err, "Failed to post message")
		return
	}

	response.JSON(w, http.StatusCreated, m.ToResponse())
}

// Pinned handles GET /forums/{forumID}/messages/pinned
// @Summary      Get the pinned message
// @Tags         messages
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Success      200 {object} response.APIResponse{data=MessageResponse}
// @Router       /forums/{forumID}/messages/pinned [get]
func (h *Handler) Pinned(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	m, err := h.service.Pinned(r.Context(), principal, forumID)
	if err != nil {
		response.FromError(w, err, "Failed to get pinned message")
		return
	}
	if m == nil {
		response.JSON(w, http.StatusOK, nil)
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}

// Unpin handles DELETE /forums/{forumID}/messages/unpin
// @Summary      Clear the pinned message
// @Tags         messages
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /forums/{forumID}/messages/unpin [delete]
func (h *Handler) Unpin(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	if err := h.service.Unpin(r.Context(), principal, forumID); err != nil {
		response.FromError(w, err, "Failed to unpin message")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Message unpinned"})
}

// GetByID handles GET /forums/{forumID}/messages/{messageID}
// @Summary      Get a message
// @Tags         messages
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Param        messageID path int true "Message ID"
// @Success      200 {object} response.APIResponse{data=MessageResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /forums/{forumID}/messages/{messageID} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	forumID, messageID, ok := ids(w, r)
	if !ok {
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	m, err := h.service.Get(r.Context(), principal, forumID, messageID)
	if err != nil {
		response.FromError(w, err, "Failed to get message")
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}

// Update handles PUT /forums/{forumID}/messages/{messageID}
// @Summary      Edit a message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Param        messageID path int true "Message ID"
// @Param        request body UpdateMessageRequest true "New content"
// @Success      200 {object} response.APIResponse{data=MessageResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /forums/{forumID}/messages/{messageID} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	forumID, messageID, ok := ids(w, r)
	if !ok {
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	var req UpdateMessageRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	m, err := h.service.Edit(r.Context(), principal, forumID, messageID, req.Content)
	if err != nil {
		response.FromError(w, err, "Failed to edit message")
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}

// Delete handles DELETE /forums/{forumID}/messages/{messageID}
// @Summary      Delete a message
// @Tags         messages
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Param        messageID path int true "Message ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /forums/{forumID}/messages/{messageID} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	forumID, messageID, ok := ids(w, r)
	if !ok {
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	if err := h.service.Delete(r.Context(), principal, forumID, messageID); err != nil {
		response.FromError(w, err, "Failed to delete message")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Message deleted successfully"})
}

// Pin handles POST /forums/{forumID}/messages/{messageID}/pin
// @Summary      Pin a message
// @Description  Replaces any previously pinned message in the forum
// @Tags         messages
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Param        messageID path int true "Message ID"
// @Success      200 {object} response.APIResponse{data=MessageResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /forums/{forumID}/messages/{messageID}/pin [post]
func (h *Handler) Pin(w http.ResponseWriter, r *http.Request) {
	forumID, messageID, ok := ids(w, r)
	if !ok {
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	m, err := h.service.Pin(r.Context(), principal, forumID, messageID)
	if err != nil {
		response.FromError(w, err, "Failed to pin message")
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}

// ReplyCount handles GET /forums/{forumID}/messages/{messageID}/reply-count
// @Summary      Get the reply count of a message
// @Tags         messages
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Param        messageID path int true "Message ID"
// @Success      200 {object} response.APIResponse{data=ReplyCountResponse}
// @Router       /forums/{forumID}/messages/{messageID}/reply-count [get]
func (h *Handler) ReplyCount(w http.ResponseWriter, r *http.Request) {
	forumID, messageID, ok := ids(w, r)
	if !ok {
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	count, err := h.service.ReplyCount(r.Context(), principal, forumID, messageID)
	if err != nil {
		response.FromError(w, err, "Failed to get reply count")
		return
	}

	response.JSON(w, http.StatusOK, ReplyCountResponse{MessageID: messageID, ReplyCount: count})
}

// Replies handles GET /forums/{forumID}/messages/{messageID}/replies
// @Summary      List replies to a message
// @Tags         messages
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Param        messageID path int true "Message ID"
// @Param        limit query int false "Maximum number of replies" default(100)
// @Success      200 {object} response.APIResponse{data=[]MessageResponse}
// @Router       /forums/{forumID}/messages/{messageID}/replies [get]
func (h *Handler) Replies(w http.ResponseWriter, r *http.Request) {
	forumID, messageID, ok := ids(w, r)
	if !ok {
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	replies, err := h.service.Replies(r.Context(), principal, forumID, messageID, limit)
	if err != nil {
		response.FromError(w, err, "Failed to get replies")
		return
	}

	response.JSON(w, http.StatusOK, ToResponses(replies))
}

func ids(w http.ResponseWriter, r *http.Request) (forumID, messageID int64, ok bool) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return 0, 0, false
	}
	messageID, err = request.IDParam(r, "messageID")
	if err != nil {
		response.BadRequest(w, "Invalid message ID")
		return 0, 0, false
	}
	return forumID, messageID, true
}
