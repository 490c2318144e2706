package handlers

import (
	"errors"
	"net/http"

	"github.com/shelf-fs/shelf/pkg/api/auth"
	"github.com/shelf-fs/shelf/pkg/api/middleware"
	"github.com/shelf-fs/shelf/pkg/fs/models"
	"github.com/shelf-fs/shelf/pkg/fs/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store      *store.GORMStore
	jwtService *auth.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(st *store.GORMStore, jwtService *auth.Service) *AuthHandler {
	return &AuthHandler{store: st, jwtService: jwtService}
}

// LoginRequest is the request body for POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the response body for POST /api/v1/auth/login.
type LoginResponse struct {
	auth.TokenPair
	User UserResponse `json:"user"`
}

// UserResponse is a sanitized user representation for API responses.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func userToResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	}
}

// Login handles POST /api/v1/auth/login.
// Authenticates credentials and returns a JWT token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		BadRequest(w, "Username and password are required")
		return
	}

	user, err := h.store.Conn(r.Context()).ValidateCredentials(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			Unauthorized(w, "Invalid username or password")
			return
		}
		InternalServerError(w, "Authentication failed")
		return
	}

	tokenPair, err := h.jwtService.GenerateTokenPair(user)
	if err != nil {
		InternalServerError(w, "Failed to generate token")
		return
	}

	WriteJSONOK(w, LoginResponse{
		TokenPair: *tokenPair,
		User:      userToResponse(user),
	})
}

// RefreshRequest is the request body for POST /api/v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /api/v1/auth/refresh.
// Exchanges a valid refresh token for a new token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		BadRequest(w, "Refresh token is required")
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			Unauthorized(w, "Refresh token has expired")
			return
		}
		Unauthorized(w, "Invalid refresh token")
		return
	}

	user, err := h.store.Conn(r.Context()).GetUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			Unauthorized(w, "User no longer exists")
			return
		}
		InternalServerError(w, "Failed to get user")
		return
	}

	tokenPair, err := h.jwtService.GenerateTokenPair(user)
	if err != nil {
		InternalServerError(w, "Failed to generate token")
		return
	}

	WriteJSONOK(w, LoginResponse{
		TokenPair: *tokenPair,
		User:      userToResponse(user),
	})
}

// Me handles GET /api/v1/auth/me.
// Returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return
	}

	user, err := h.store.Conn(r.Context()).GetUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			Unauthorized(w, "User no longer exists")
			return
		}
		InternalServerError(w, "Failed to get user")
		return
	}
	WriteJSONOK(w, userToResponse(user))
}
