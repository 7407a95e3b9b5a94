package forum

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/forumcore/internal/role"
	"github.com/fkhayef/forumcore/pkg/middleware"
	"github.com/fkhayef/forumcore/pkg/request"
	"github.com/fkhayef/forumcore/pkg/response"
)

// Subrouter is implemented by feature handlers that serve endpoints under
// /forums/{forumID}
type Subrouter interface {
	ForumRoutes(r chi.Router)
}

// Handler handles HTTP requests for forum operations
type Handler struct {
	service *Service
}

// NewHandler creates a new forum handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for /forums. Each sub registers its endpoints
// inside the /{forumID} scope.
func (h *Handler) Routes(subs ...Subrouter) chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Route("/{forumID}", func(r chi.Router) {
		r.Get("/", h.GetByID)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)

		for _, sub := range subs {
			sub.ForumRoutes(r)
		}
	})

	return r
}

// Create handles POST /forums
// @Summary      Create a new forum
// @Description  Create a forum and add the caller as its creator
// @Tags         forums
// @Accept       json
// @Produce      json
// @Param        request body CreateForumRequest true "Forum creation request"
// @Success      201 {object} response.APIResponse{data=ForumResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /forums [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())

	var req CreateForumRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	forum, err := h.service.Create(r.Context(), principal, &req)
	if err != nil {
		response.FromError(w, err, "Failed to create forum")
		return
	}

	resp := forum.ToResponse()
	resp.MyRole = role.Creator
	response.JSON(w, http.StatusCreated, resp)
}

// GetByID handles GET /forums/{forumID}
// @Summary      Get forum by ID
// @Tags         forums
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Success      200 {object} response.APIResponse{data=ForumResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /forums/{forumID} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	forum, myRole, err := h.service.Get(r.Context(), principal, id)
	if err != nil {
		response.FromError(w, err, "Failed to get forum")
		return
	}

	resp := forum.ToResponse()
	resp.MyRole = myRole
	response.JSON(w, http.StatusOK, resp)
}

// List handles GET /forums
// @Summary      List public forums
// @Tags         forums
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]ForumResponse}
// @Router       /forums [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := request.Pagination(r)

	forums, total, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		response.FromError(w, err, "Failed to list forums")
		return
	}

	forumResponses := make([]*ForumResponse, len(forums))
	for i, forum := range forums {
		forumResponses[i] = forum.ToResponse()
	}

	totalPages := (total + perPage - 1) / perPage
	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	response.JSONWithMeta(w, http.StatusOK, forumResponses, meta)
}

// Update handles PUT /forums/{forumID}
// @Summary      Update a forum
// @Tags         forums
// @Accept       json
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Param        request body UpdateForumRequest true "Forum update request"
// @Success      200 {object} response.APIResponse{data=ForumResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /forums/{forumID} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	var req UpdateForumRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	forum, err := h.service.Update(r.Context(), principal, id, &req)
	if err != nil {
		response.FromError(w, err, "Failed to update forum")
		return
	}

	response.JSON(w, http.StatusOK, forum.ToResponse())
}

// Delete handles DELETE /forums/{forumID}
// @Summary      Delete a forum
// @Tags         forums
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /forums/{forumID} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		response.FromError(w, err, "Failed to delete forum")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Forum deleted successfully"})
}
