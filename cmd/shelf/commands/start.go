package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shelf-fs/shelf/internal/logger"
	"github.com/shelf-fs/shelf/pkg/api"
	"github.com/shelf-fs/shelf/pkg/api/auth"
	"github.com/shelf-fs/shelf/pkg/config"
	"github.com/shelf-fs/shelf/pkg/fs/service"
	"github.com/shelf-fs/shelf/pkg/fs/store"
	"github.com/shelf-fs/shelf/pkg/metrics"
	promrecorder "github.com/shelf-fs/shelf/pkg/metrics/prometheus"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the shelf server",
	Long: `Start the shelf server with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/shelf/config.yaml.

Examples:
  # Start with the default config location
  shelf start

  # Start with a custom config
  shelf start --config /etc/shelf/config.yaml

  # Override config with environment variables
  SHELF_LOGGING_LEVEL=DEBUG shelf start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Logging.LoggerConfig()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Configuration loaded",
		"source", configSource(GetConfigFile()),
		"log_level", cfg.Logging.Level,
		"database", cfg.Database.Type)

	st, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize metadata store: %w", err)
	}
	defer func() { _ = st.Close() }()

	jwtService, err := auth.NewService(auth.Config{
		Secret:               cfg.Auth.Secret,
		AccessTokenDuration:  cfg.Auth.AccessTokenDuration,
		RefreshTokenDuration: cfg.Auth.RefreshTokenDuration,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	var recorder metrics.Recorder
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		rec := promrecorder.New()
		recorder = rec
		metricsHandler = rec.Handler()
		logger.Info("Metrics enabled")
	} else {
		logger.Info("Metrics collection disabled")
	}

	svc := service.New(st, service.Options{
		Recorder:       recorder,
		MaxUploadBytes: cfg.FS.MaxUploadBytes,
	})

	router := api.NewRouter(api.Dependencies{
		Store:   st,
		Service: svc,
		JWT:     jwtService,
		Metrics: metricsHandler,
	})
	server := api.NewServer(cfg.API, router)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}

// configSource describes where the config was loaded from.
func configSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.DefaultConfigPath()
	}
	return "defaults"
}
