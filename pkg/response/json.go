package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fkhayef/forumcore/pkg/apperror"
)

// APIResponse is the standard response wrapper
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// APIError represents an error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta contains pagination and other metadata
type Meta struct {
	Page       int   `json:"page,omitempty"`
	PerPage    int   `json:"per_page,omitempty"`
	Total      int   `json:"total,omitempty"`
	TotalPages int   `json:"total_pages,omitempty"`
	NextCursor int64 `json:"next_cursor,omitempty"`
}

// JSON sends a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	json.NewEncoder(w).Encode(response)
}

// JSONWithMeta sends a JSON response with pagination metadata
func JSONWithMeta(w http.ResponseWriter, status int, data interface{}, meta *Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta:    meta,
	}

	json.NewEncoder(w).Encode(response)
}

// Error sends an error JSON response
func Error(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// StatusOf maps an error kind to its HTTP status code
func StatusOf(kind apperror.Kind) int {
	switch kind {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindPermissionDenied, apperror.KindNotMember, apperror.KindBanned:
		return http.StatusForbidden
	case apperror.KindAlreadyMember, apperror.KindCapacityExceeded,
		apperror.KindCreatorCannotLeave, apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindInvalidParent:
		return http.StatusUnprocessableEntity
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindTransientUpstream:
		return http.StatusServiceUnavailable
	case apperror.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// FromError writes the error envelope for err. Typed errors keep their
// kind and message; anything else is logged and reported with fallback.
func FromError(w http.ResponseWriter, err error, fallback string) {
	kind := apperror.KindOf(err)
	if kind == apperror.KindInternal && apperror.IsTimeout(err) {
		err = apperror.Transient("storage", err)
		kind = apperror.KindTransientUpstream
	}
	if kind == apperror.KindInternal {
		slog.Error(fallback, "error", err)
		InternalError(w, fallback)
		return
	}
	if kind == apperror.KindTransientUpstream {
		w.Header().Set("Retry-After", "2")
	}
	Error(w, StatusOf(kind), string(kind), apperror.MessageOf(err))
}

// Common error responses
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, "BAD_REQUEST", message)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, "NOT_FOUND", message)
}

func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, "FORBIDDEN", message)
}

func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, "CONFLICT", message)
}
