package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/shelf-fs/shelf/internal/logger"
)

// Server is the shelf REST API server.
type Server struct {
	server       *http.Server
	config       Config
	shutdownOnce sync.Once
}

// NewServer creates a new API server for the given router.
func NewServer(cfg Config, handler http.Handler) *Server {
	cfg.applyDefaults()

	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		config: cfg,
	}
}

// Start runs the HTTP server until the context is cancelled or the
// listener fails. It blocks.
func (s *Server) Start(ctx context.Context) error {
	logger.Info("Starting API server", "addr", s.server.Addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop gracefully shuts down the server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Stop() error {
	var err error
	s.shutdownOnce.Do(func() {
		logger.Info("Stopping API server")

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if shutdownErr := s.server.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("API server shutdown: %w", shutdownErr)
		}
	})
	return err
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.server.Addr
}
