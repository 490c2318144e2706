package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shelf-fs/shelf/pkg/fs/models"
	"github.com/shelf-fs/shelf/pkg/fs/service"
)

// StorageHandler handles the storage medium endpoints.
type StorageHandler struct {
	svc *service.Service
}

// NewStorageHandler creates a new StorageHandler.
func NewStorageHandler(svc *service.Service) *StorageHandler {
	return &StorageHandler{svc: svc}
}

// List handles GET /api/v1/fs/storage.
func (h *StorageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	opts, err := parseListOptions(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	mediums, err := h.svc.ListMediums(r.Context(), userID, opts)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	WriteJSONOK(w, mediums)
}

// CreateRequest is the request body for POST /api/v1/fs/storage.
type CreateRequest struct {
	Name string        `json:"name"`
	Path string        `json:"path"`
	Tags models.TagMap `json:"tags,omitempty"`
}

// Create handles POST /api/v1/fs/storage.
// The path must name an existing absolute directory; the medium's Root
// item is provisioned in the same transaction.
func (h *StorageHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	medium, err := h.svc.CreateMedium(r.Context(), userID, service.CreateMediumRequest{
		Name: req.Name,
		Path: req.Path,
		Tags: req.Tags,
	})
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	WriteJSONCreated(w, medium)
}

// Get handles GET /api/v1/fs/storage/{id}.
func (h *StorageHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	medium, err := h.svc.GetMedium(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	WriteJSONOK(w, medium)
}

// UpdateRequest is the request body for PUT /api/v1/fs/storage/{id}.
type UpdateRequest struct {
	Name *string       `json:"name,omitempty"`
	Tags models.TagMap `json:"tags,omitempty"`
}

// Update handles PUT /api/v1/fs/storage/{id}.
func (h *StorageHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	medium, err := h.svc.UpdateMedium(r.Context(), userID, service.UpdateMediumRequest{
		MediumID: chi.URLParam(r, "id"),
		Name:     req.Name,
		Tags:     req.Tags,
	})
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	WriteJSONOK(w, medium)
}

// Delete handles DELETE /api/v1/fs/storage/{id}.
// Soft-deletes the medium and everything under it; bytes stay on disk.
func (h *StorageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteMedium(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		ServiceError(w, r, err)
		return
	}
	WriteNoContent(w)
}
