// Package handlers provides the HTTP handlers for the shelf API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shelf-fs/shelf/internal/logger"
	"github.com/shelf-fs/shelf/pkg/fs/backend"
	"github.com/shelf-fs/shelf/pkg/fs/models"
)

// Problem represents an RFC 7807 "problem details" response.
// https://tools.ietf.org/html/rfc7807
type Problem struct {
	// Type is a URI reference that identifies the problem type.
	// If not set, defaults to "about:blank".
	Type string `json:"type,omitempty"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence of the problem.
	Status int `json:"status"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`
}

// ContentTypeProblemJSON is the Content-Type for RFC 7807 problem responses.
const ContentTypeProblemJSON = "application/problem+json"

// WriteProblem writes an RFC 7807 problem response.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	problem := &Problem{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	}

	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// BadRequest writes a 400 Bad Request problem response.
func BadRequest(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, "Bad Request", detail)
}

// Unauthorized writes a 401 Unauthorized problem response.
func Unauthorized(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusUnauthorized, "Unauthorized", detail)
}

// Forbidden writes a 403 Forbidden problem response.
func Forbidden(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusForbidden, "Forbidden", detail)
}

// NotFound writes a 404 Not Found problem response.
func NotFound(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusNotFound, "Not Found", detail)
}

// Conflict writes a 409 Conflict problem response.
func Conflict(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusConflict, "Conflict", detail)
}

// UnprocessableEntity writes a 422 Unprocessable Entity problem response.
func UnprocessableEntity(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", detail)
}

// InternalServerError writes a 500 Internal Server Error problem response.
func InternalServerError(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", detail)
}

// ServiceError maps a filesystem service error to its problem response.
// Unrecognized errors are logged with full context server-side and
// rendered as an opaque 500 so no internal paths or queries leak.
func ServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		UnprocessableEntity(w, verr.Error())
	case errors.Is(err, models.ErrItemNotFound),
		errors.Is(err, models.ErrMediumNotFound),
		errors.Is(err, models.ErrUserNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, models.ErrAlreadyExists),
		errors.Is(err, models.ErrDuplicateMedium),
		errors.Is(err, models.ErrDuplicateUser):
		Conflict(w, err.Error())
	case errors.Is(err, models.ErrInvalidType),
		errors.Is(err, models.ErrNoWork),
		errors.Is(err, models.ErrMimeMismatch),
		errors.Is(err, models.ErrInvalidHash):
		BadRequest(w, err.Error())
	case errors.Is(err, models.ErrMaxSize):
		WriteProblem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", err.Error())
	case errors.Is(err, models.ErrNotPermitted),
		errors.Is(err, models.ErrPermissionDenied):
		Forbidden(w, err.Error())
	case errors.Is(err, models.ErrFileMissing),
		errors.Is(err, backend.ErrMismatch):
		// Metadata/disk divergence or corrupt backend descriptors: an
		// internal consistency fault, not a client error.
		logger.Error("storage consistency fault",
			"method", r.Method, "path", r.URL.Path, "error", err)
		InternalServerError(w, "Storage inconsistency detected")
	default:
		logger.Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		InternalServerError(w, "An internal error occurred")
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteJSONOK writes a 200 OK JSON response.
func WriteJSONOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteJSONCreated writes a 201 Created JSON response.
func WriteJSONCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
