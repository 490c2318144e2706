package handlers

import (
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shelf-fs/shelf/pkg/fs/models"
	"github.com/shelf-fs/shelf/pkg/fs/service"
)

// FSHandler handles the filesystem item endpoints.
type FSHandler struct {
	svc *service.Service
}

// NewFSHandler creates a new FSHandler.
func NewFSHandler(svc *service.Service) *FSHandler {
	return &FSHandler{svc: svc}
}

// ListRoots handles GET /api/v1/fs.
// Returns one page of the caller's root items.
func (h *FSHandler) ListRoots(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	opts, err := parseListOptions(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	page, err := h.svc.ListRoots(r.Context(), userID, opts)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	WriteJSONOK(w, page)
}

// GetItem handles GET /api/v1/fs/{uid}.
func (h *FSHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	item, err := h.svc.GetItem(r.Context(), userID, chi.URLParam(r, "uid"))
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	WriteJSONOK(w, item)
}

// CreateDirectoryRequest is the request body for POST /api/v1/fs/{uid}.
type CreateDirectoryRequest struct {
	Basename string         `json:"basename"`
	Comment  *string        `json:"comment,omitempty"`
	Tags     models.TagMap  `json:"tags,omitempty"`
}

// CreateDirectory handles POST /api/v1/fs/{uid}.
// Creates a directory under the addressed container.
func (h *FSHandler) CreateDirectory(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req CreateDirectoryRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	item, err := h.svc.CreateDirectory(r.Context(), userID, service.CreateDirectoryRequest{
		ParentUID: chi.URLParam(r, "uid"),
		Basename:  req.Basename,
		Comment:   req.Comment,
		Tags:      req.Tags,
	})
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	WriteJSONCreated(w, item)
}

// Upload handles PUT /api/v1/fs/{uid}.
// Uploading to a container creates a file named by the `basename` query
// parameter or the x-basename header; uploading to a file replaces its
// content. The optional x-hash header (`blake3:<hex>`) requests server-side
// integrity verification.
func (h *FSHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	basename := r.URL.Query().Get("basename")
	if basename == "" {
		basename = r.Header.Get("x-basename")
	}

	mimeType := r.Header.Get("Content-Type")
	if mimeType != "" {
		// Strip parameters such as charset; the stored type is the bare
		// media type.
		if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
			mimeType = parsed
		}
	}

	targetUID := chi.URLParam(r, "uid")
	item, err := h.svc.Upload(r.Context(), userID, service.UploadRequest{
		TargetUID:    targetUID,
		Basename:     basename,
		Mime:         mimeType,
		ExpectedHash: r.Header.Get("x-hash"),
		Body:         r.Body,
	})
	if err != nil {
		ServiceError(w, r, err)
		return
	}

	// A replace addresses the file itself, so the response carries the
	// request's own uid; only the create path minted a new resource.
	if item.UID == targetUID {
		WriteJSONOK(w, item)
		return
	}
	WriteJSONCreated(w, item)
}

// UpdateMetadataRequest is the request body for PATCH /api/v1/fs/{uid}.
// An empty comment clears the column; a present tags map replaces the
// full tag set.
type UpdateMetadataRequest struct {
	Comment *string       `json:"comment,omitempty"`
	Tags    models.TagMap `json:"tags,omitempty"`
}

// UpdateMetadata handles PATCH /api/v1/fs/{uid}.
func (h *FSHandler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req UpdateMetadataRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	item, err := h.svc.UpdateMetadata(r.Context(), userID, service.UpdateMetadataRequest{
		ItemUID: chi.URLParam(r, "uid"),
		Comment: req.Comment,
		Tags:    req.Tags,
	})
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	WriteJSONOK(w, item)
}

// DeleteItem handles DELETE /api/v1/fs/{uid}.
// Files are removed outright; directories are removed recursively, best
// effort, with the per-node outcome summarized in the response.
func (h *FSHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	result, err := h.svc.DeleteItem(r.Context(), userID, chi.URLParam(r, "uid"))
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	WriteJSONOK(w, result)
}

// ListContents handles GET /api/v1/fs/{uid}/contents.
// Returns one page of the container's direct children, min-projected.
func (h *FSHandler) ListContents(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	opts, err := parseListOptions(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	page, err := h.svc.ListContents(r.Context(), userID, chi.URLParam(r, "uid"), opts)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	WriteJSONOK(w, page)
}

// Download handles GET /api/v1/fs/{uid}/download.
// Streams the file's bytes with content-length/type/disposition and the
// content hash in x-hash.
func (h *FSHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	dl, err := h.svc.DownloadFile(r.Context(), userID, chi.URLParam(r, "uid"))
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	defer dl.Content.Close()

	w.Header().Set("Content-Type", dl.Item.Mime)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", dl.Item.Basename))
	w.Header().Set("x-hash", service.FormatHash(dl.Item.Hash))

	modTime := dl.Item.CreatedAt
	if dl.Item.UpdatedAt != nil {
		modTime = *dl.Item.UpdatedAt
	}
	http.ServeContent(w, r, dl.Item.Basename, modTime.Truncate(time.Second), dl.Content)
}
