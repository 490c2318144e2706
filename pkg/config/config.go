// Package config loads and validates the shelf server configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/shelf-fs/shelf/internal/logger"
	"github.com/shelf-fs/shelf/pkg/api"
	"github.com/shelf-fs/shelf/pkg/fs/store"
)

// Config represents the shelf server configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (SHELF_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Dynamic state (users, storage mediums, items) lives in the metadata
// store and is managed through the API and CLI, not through this file.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Database configures the metadata store (SQLite or PostgreSQL).
	Database store.Config `mapstructure:"database" yaml:"database"`

	// API contains the REST API server configuration.
	API api.Config `mapstructure:"api" yaml:"api"`

	// Auth contains JWT authentication configuration.
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// FS contains filesystem service settings.
	FS FSConfig `mapstructure:"fs" yaml:"fs"`

	// Admin contains the initial admin user for bootstrap.
	// Used by 'shelf init' to set up the first account.
	Admin AdminConfig `mapstructure:"admin" yaml:"admin"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format.
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written.
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`

	// Rotation settings, used only when Output is a file path.
	MaxSizeMB  int `mapstructure:"max_size_mb" yaml:"max_size_mb,omitempty"`
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups,omitempty"`
	MaxAgeDays int `mapstructure:"max_age_days" yaml:"max_age_days,omitempty"`
}

// LoggerConfig converts the section into the internal logger's config.
func (c LoggingConfig) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.Level,
		Format:     c.Format,
		Output:     c.Output,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

// AuthConfig contains JWT authentication configuration.
type AuthConfig struct {
	// Secret is the HMAC signing secret for JWT tokens.
	// Must be at least 32 characters. No default: generated by
	// 'shelf init' or supplied via SHELF_AUTH_SECRET.
	Secret string `mapstructure:"secret" validate:"required,min=32" yaml:"secret"`

	// AccessTokenDuration is the lifetime of access tokens.
	// Default: 15m
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration" yaml:"access_token_duration"`

	// RefreshTokenDuration is the lifetime of refresh tokens.
	// Default: 168h (7 days)
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" yaml:"refresh_token_duration"`
}

// MetricsConfig configures Prometheus metrics.
// When Enabled is false no collectors are registered and /metrics is not
// mounted.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// FSConfig contains filesystem service settings.
type FSConfig struct {
	// MaxUploadBytes caps the size of a single uploaded file.
	// Zero means unlimited.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes,omitempty"`
}

// AdminConfig contains the initial admin user for bootstrap.
type AdminConfig struct {
	// Username is the admin username.
	// Default: "admin"
	Username string `mapstructure:"username" yaml:"username"`
}

// Load loads configuration from file, environment, and defaults.
//
// An optional .env file in the working directory is loaded first so that
// SHELF_* variables can be kept out of the shell profile during
// development.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := Default()
		bindEnvOverrides(v, cfg)
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	bindEnvOverrides(v, &cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when the file
// is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  shelf init\n\n"+
				"Or specify a custom config file:\n"+
				"  shelf <command> --config /path/to/config.yaml",
				DefaultConfigPath())
		}
		configPath = DefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  shelf init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path in YAML.
//
// The file is written with 0600 permissions: it carries the JWT signing
// secret.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures environment variable support and the config file
// search path.
func setupViper(v *viper.Viper, configPath string) {
	// Example: SHELF_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("SHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(configDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing
// file is not an error.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// bindEnvOverrides applies environment overrides that AutomaticEnv alone
// does not surface when the key is absent from the config file.
func bindEnvOverrides(v *viper.Viper, cfg *Config) {
	if secret := v.GetString("auth.secret"); secret != "" {
		cfg.Auth.Secret = secret
	}
	if level := v.GetString("logging.level"); level != "" {
		cfg.Logging.Level = level
	}
}

// durationDecodeHook converts strings like "30s", "5m", "1h" into
// time.Duration values.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// configDir returns the configuration directory.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, falling back to the
// current directory if the home directory cannot be determined.
func configDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "shelf")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "shelf")
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultConfigExists checks for a config file at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(DefaultConfigPath())
	return err == nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() string {
	return configDir()
}
