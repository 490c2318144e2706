package handlers

import (
	"net/http"
	"time"

	"github.com/shelf-fs/shelf/pkg/fs/store"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store *store.GORMStore
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(st *store.GORMStore) *HealthHandler {
	return &HealthHandler{store: st}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// Liveness handles GET /health.
// Answers 200 whenever the process is serving requests.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

// Readiness handles GET /health/ready.
// Answers 200 only when the metadata store responds to a ping.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:    "unhealthy",
			Timestamp: time.Now().UTC(),
			Error:     err.Error(),
		})
		return
	}

	WriteJSONOK(w, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}
