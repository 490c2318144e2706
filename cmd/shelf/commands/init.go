package commands

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shelf-fs/shelf/internal/cli/prompt"
	"github.com/shelf-fs/shelf/pkg/config"
	"github.com/shelf-fs/shelf/pkg/fs/models"
	"github.com/shelf-fs/shelf/pkg/fs/store"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the configuration file and admin user",
	Long: `Create the shelf configuration file with a freshly generated JWT signing
secret, initialize the metadata store, and create the first admin user.

Examples:
  # Initialize at the default location
  shelf init

  # Initialize at a custom location
  shelf init --config /etc/shelf/config.yaml

  # Overwrite an existing configuration file
  shelf init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	cfg := config.Default()

	secret, err := generateSecret()
	if err != nil {
		return fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	cfg.Auth.Secret = secret

	if err := config.Save(cfg, configPath); err != nil {
		return err
	}
	fmt.Printf("Configuration file created at: %s\n", configPath)

	st, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize metadata store: %w", err)
	}
	defer func() { _ = st.Close() }()

	if err := createAdminUser(st, cfg.Admin.Username); err != nil {
		return err
	}

	fmt.Println("\nNext steps:")
	fmt.Println("  1. Review the configuration file")
	fmt.Println("  2. Start the server with: shelf start")
	fmt.Println("  3. Register a storage medium via the API to begin uploading")
	return nil
}

func createAdminUser(st *store.GORMStore, username string) error {
	password, err := prompt.NewPassword()
	if err != nil {
		if prompt.IsAborted(err) {
			return fmt.Errorf("aborted")
		}
		return err
	}

	_, err = st.Conn(context.Background()).CreateUser(username, password, models.RoleAdmin)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateUser) {
			fmt.Printf("Admin user %q already exists, leaving it unchanged\n", username)
			return nil
		}
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	fmt.Printf("Admin user %q created\n", username)
	return nil
}

// generateSecret returns a random 64 character hex string for JWT
// signing.
func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
