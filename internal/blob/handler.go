package blob

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/forumcore/pkg/middleware"
	"github.com/fkhayef/forumcore/pkg/request"
	"github.com/fkhayef/forumcore/pkg/response"
)

// multipartOverhead leaves room for form boundaries around the file
const multipartOverhead = 1 << 20

// Handler handles HTTP requests for attachments
type Handler struct {
	service  *Service
	maxBytes int64
}

// NewHandler creates a new attachment handler
func NewHandler(service *Service, maxBytes int64) *Handler {
	return &Handler{service: service, maxBytes: maxBytes}
}

// ForumRoutes registers the forum-scoped endpoints under /forums/{forumID}
func (h *Handler) ForumRoutes(r chi.Router) {
	r.Post("/attachments", h.Upload)
}

// Upload handles POST /forums/{forumID}/attachments
// @Summary      Upload an image attachment
// @Description  Stores the image and returns the reference to use as the content of an image message
// @Tags         attachments
// @Accept       multipart/form-data
// @Produce      json
// @Param        forumID path int true "Forum ID"
// @Param        image formData file true "Image (jpeg, png, gif or webp)"
// @Success      201 {object} response.APIResponse{data=Object}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      503 {object} response.APIResponse
// @Router       /forums/{forumID}/attachments [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	forumID, err := request.IDParam(r, "forumID")
	if err != nil {
		response.BadRequest(w, "Invalid forum ID")
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		response.BadRequest(w, "Invalid multipart form")
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		response.BadRequest(w, "image file is required")
		return
	}
	defer file.Close()

	obj, err := h.service.Upload(r.Context(), principal, forumID, file)
	if err != nil {
		response.FromError(w, err, "Failed to store attachment")
		return
	}

	response.JSON(w, http.StatusCreated, obj)
}
