// Package api provides the shelf REST API server.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/shelf-fs/shelf/internal/logger"
	"github.com/shelf-fs/shelf/pkg/api/auth"
	"github.com/shelf-fs/shelf/pkg/api/handlers"
	"github.com/shelf-fs/shelf/pkg/api/middleware"
	"github.com/shelf-fs/shelf/pkg/fs/models"
	"github.com/shelf-fs/shelf/pkg/fs/service"
	"github.com/shelf-fs/shelf/pkg/fs/store"
)

// Dependencies carries the collaborators the router wires together.
type Dependencies struct {
	Store   *store.GORMStore
	Service *service.Service
	JWT     *auth.Service

	// Metrics, when non-nil, is mounted at GET /metrics.
	Metrics http.Handler
}

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// Middleware stack: request id, real IP, request logging, panic recovery.
// No blanket timeout middleware: uploads and downloads stream for as long
// as they need, and the per-route handlers are bounded by the server's
// connection timeouts instead.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	healthHandler := handlers.NewHealthHandler(deps.Store)
	authHandler := handlers.NewAuthHandler(deps.Store, deps.JWT)
	usersHandler := handlers.NewUsersHandler(deps.Store)
	storageHandler := handlers.NewStorageHandler(deps.Service)
	fsHandler := handlers.NewFSHandler(deps.Service)

	authed := middleware.JWTAuth(deps.JWT)
	fsRead := middleware.RequireAbility(deps.Store, models.ScopeFs, models.AbilityRead)
	fsWrite := middleware.RequireAbility(deps.Store, models.ScopeFs, models.AbilityWrite)
	storageRead := middleware.RequireAbility(deps.Store, models.ScopeStorage, models.AbilityRead)
	storageWrite := middleware.RequireAbility(deps.Store, models.ScopeStorage, models.AbilityWrite)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.With(authed).Get("/me", authHandler.Me)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authed)
			r.With(middleware.RequireAdmin()).Get("/", usersHandler.List)
			r.With(middleware.RequireAdmin()).Post("/", usersHandler.Create)
			r.With(middleware.RequireAdmin()).Delete("/{id}", usersHandler.Delete)
			r.Put("/{id}/password", usersHandler.ChangePassword)
		})

		r.Route("/fs", func(r chi.Router) {
			r.Use(authed)

			r.With(fsRead).Get("/", fsHandler.ListRoots)

			r.Route("/storage", func(r chi.Router) {
				r.With(storageRead).Get("/", storageHandler.List)
				r.With(storageWrite).Post("/", storageHandler.Create)
				r.With(storageRead).Get("/{id}", storageHandler.Get)
				r.With(storageWrite).Put("/{id}", storageHandler.Update)
				r.With(storageWrite).Delete("/{id}", storageHandler.Delete)
			})

			r.Route("/{uid}", func(r chi.Router) {
				r.With(fsRead).Get("/", fsHandler.GetItem)
				r.With(fsWrite).Post("/", fsHandler.CreateDirectory)
				r.With(fsWrite).Put("/", fsHandler.Upload)
				r.With(fsWrite).Patch("/", fsHandler.UpdateMetadata)
				r.With(fsWrite).Delete("/", fsHandler.DeleteItem)
				r.With(fsRead).Get("/contents", fsHandler.ListContents)
				r.With(fsRead).Get("/download", fsHandler.Download)
			})
		})
	})

	return r
}

// requestLogger logs request start at DEBUG and completion at INFO using
// the internal logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chimiddleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
