package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shelf-fs/shelf/pkg/api/middleware"
	"github.com/shelf-fs/shelf/pkg/fs/models"
	"github.com/shelf-fs/shelf/pkg/fs/store"
)

// UsersHandler handles user management endpoints. All routes are
// admin-only except ChangePassword, which also accepts the user acting on
// their own account.
type UsersHandler struct {
	store *store.GORMStore
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(st *store.GORMStore) *UsersHandler {
	return &UsersHandler{store: st}
}

// List handles GET /api/v1/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.Conn(r.Context()).ListUsers()
	if err != nil {
		InternalServerError(w, "Failed to list users")
		return
	}

	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, userToResponse(&users[i]))
	}
	WriteJSONOK(w, out)
}

// CreateUserRequest is the request body for POST /api/v1/users.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Create handles POST /api/v1/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		BadRequest(w, "Username and password are required")
		return
	}

	role := models.UserRole(req.Role)
	if req.Role == "" {
		role = models.RoleUser
	}
	if !role.IsValid() {
		BadRequest(w, "Unknown role")
		return
	}

	user, err := h.store.Conn(r.Context()).CreateUser(req.Username, req.Password, role)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateUser) {
			Conflict(w, "Username is already taken")
			return
		}
		InternalServerError(w, "Failed to create user")
		return
	}
	WriteJSONCreated(w, userToResponse(user))
}

// ChangePasswordRequest is the request body for PUT /api/v1/users/{id}/password.
type ChangePasswordRequest struct {
	Password string `json:"password"`
}

// ChangePassword handles PUT /api/v1/users/{id}/password.
// Admins may change any password; users only their own.
func (h *UsersHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return
	}

	targetID := chi.URLParam(r, "id")
	if targetID != claims.UserID && !claims.IsAdmin() {
		Forbidden(w, "Cannot change another user's password")
		return
	}

	var req ChangePasswordRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Password == "" {
		BadRequest(w, "Password is required")
		return
	}

	if err := h.store.Conn(r.Context()).UpdatePassword(targetID, req.Password); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			NotFound(w, "User not found")
			return
		}
		InternalServerError(w, "Failed to change password")
		return
	}
	WriteNoContent(w)
}

// Delete handles DELETE /api/v1/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims != nil && claims.UserID == chi.URLParam(r, "id") {
		BadRequest(w, "Cannot delete your own account")
		return
	}

	if err := h.store.Conn(r.Context()).DeleteUser(chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			NotFound(w, "User not found")
			return
		}
		InternalServerError(w, "Failed to delete user")
		return
	}
	WriteNoContent(w)
}
