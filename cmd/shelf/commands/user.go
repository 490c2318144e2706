package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shelf-fs/shelf/internal/cli/output"
	"github.com/shelf-fs/shelf/internal/cli/prompt"
	"github.com/shelf-fs/shelf/pkg/config"
	"github.com/shelf-fs/shelf/pkg/fs/models"
	"github.com/shelf-fs/shelf/pkg/fs/store"
)

var (
	userAddRole     string
	userDeleteForce bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
	Long: `Manage shelf users directly against the metadata store.

Examples:
  shelf user add alice
  shelf user add bob --role admin
  shelf user passwd alice
  shelf user list
  shelf user delete alice`,
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a new user (prompts for password)",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all users",
	Args:    cobra.NoArgs,
	RunE:    runUserList,
}

var userPasswdCmd = &cobra.Command{
	Use:     "passwd <username>",
	Aliases: []string{"password"},
	Short:   "Change a user's password",
	Args:    cobra.ExactArgs(1),
	RunE:    runUserPasswd,
}

var userDeleteCmd = &cobra.Command{
	Use:     "delete <username>",
	Aliases: []string{"remove"},
	Short:   "Delete a user",
	Args:    cobra.ExactArgs(1),
	RunE:    runUserDelete,
}

func init() {
	userAddCmd.Flags().StringVar(&userAddRole, "role", string(models.RoleUser), "User role (user or admin)")
	userDeleteCmd.Flags().BoolVarP(&userDeleteForce, "force", "f", false, "Skip the confirmation prompt")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userPasswdCmd)
	userCmd.AddCommand(userDeleteCmd)
}

// openStore loads the configuration and opens the metadata store.
func openStore() (*store.GORMStore, error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, err
	}
	st, err := store.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}
	return st, nil
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	username := args[0]

	role := models.UserRole(userAddRole)
	if !role.IsValid() {
		return fmt.Errorf("unknown role %q (valid: user, admin)", userAddRole)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	password, err := prompt.NewPassword()
	if err != nil {
		if prompt.IsAborted(err) {
			return fmt.Errorf("aborted")
		}
		return err
	}

	user, err := st.Conn(context.Background()).CreateUser(username, password, role)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateUser) {
			return fmt.Errorf("user %q already exists", username)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("User %q created (role: %s)\n", user.Username, user.Role)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	users, err := st.Conn(context.Background()).ListUsers()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	table := output.NewTable("ID", "Username", "Role", "Created")
	for i := range users {
		table.Append(
			users[i].ID,
			users[i].Username,
			users[i].Role,
			users[i].CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return table.Write(os.Stdout)
}

func runUserPasswd(cmd *cobra.Command, args []string) error {
	username := args[0]

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	conn := st.Conn(context.Background())
	user, err := conn.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return fmt.Errorf("user %q does not exist", username)
		}
		return err
	}

	password, err := prompt.NewPassword()
	if err != nil {
		if prompt.IsAborted(err) {
			return fmt.Errorf("aborted")
		}
		return err
	}

	if err := conn.UpdatePassword(user.ID, password); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	fmt.Printf("Password changed for %q\n", username)
	return nil
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	username := args[0]

	confirmed, err := prompt.ConfirmWithForce(
		fmt.Sprintf("Delete user %q", username), userDeleteForce)
	if err != nil {
		if prompt.IsAborted(err) {
			return fmt.Errorf("aborted")
		}
		return err
	}
	if !confirmed {
		fmt.Println("Cancelled")
		return nil
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	conn := st.Conn(context.Background())
	user, err := conn.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return fmt.Errorf("user %q does not exist", username)
		}
		return err
	}

	if err := conn.DeleteUser(user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	fmt.Printf("User %q deleted\n", username)
	return nil
}
