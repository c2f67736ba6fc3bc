package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/marmos91/botkit/internal/cli/output"
	"github.com/marmos91/botkit/internal/cli/prompt"
	"github.com/marmos91/botkit/pkg/admin"
	"github.com/marmos91/botkit/pkg/models"
	"github.com/spf13/cobra"
)

var (
	adminPassword string
	adminOutput   string
	adminForce    bool
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin panel accounts",
	Long: `Manage the accounts allowed into the admin panel.

Bot users whose Telegram username matches an active admin account are also
treated as admins in chat.`,
}

var adminCreateCmd = &cobra.Command{
	Use:   "create [username]",
	Short: "Create an admin account",
	Long: `Create an admin account. The password is prompted for unless --password
is given.

Examples:
  botkit admin create alice
  botkit admin create alice --password "$ADMIN_PASSWORD"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdminCreate,
}

var adminListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List admin accounts",
	RunE:    runAdminList,
}

var adminDeleteCmd = &cobra.Command{
	Use:     "delete <username>",
	Aliases: []string{"rm"},
	Short:   "Delete an admin account",
	Args:    cobra.ExactArgs(1),
	RunE:    runAdminDelete,
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "Password (prompted when empty)")
	adminListCmd.Flags().StringVarP(&adminOutput, "output", "o", "table", "Output format (table|json|yaml)")
	adminDeleteCmd.Flags().BoolVarP(&adminForce, "force", "f", false, "Skip confirmation")

	adminCmd.AddCommand(adminCreateCmd)
	adminCmd.AddCommand(adminListCmd)
	adminCmd.AddCommand(adminDeleteCmd)
}

func runAdminCreate(cmd *cobra.Command, args []string) error {
	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		var err error
		username, err = prompt.InputWithValidation("Username", func(s string) error {
			if s == "" {
				return errors.New("username is required")
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	password := adminPassword
	if password == "" {
		var err error
		password, err = prompt.NewPassword()
		if err != nil {
			return err
		}
	}

	hash, err := admin.HashPassword(password)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx := context.Background()
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	a := &models.Admin{Username: username, PasswordHash: hash, IsActive: true}
	if err := s.CreateAdmin(ctx, a); err != nil {
		if errors.Is(err, models.ErrDuplicateAdmin) {
			return fmt.Errorf("admin %q already exists", username)
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}

	output.NewPrinter(cmd.OutOrStdout(), output.FormatTable, true).Success(fmt.Sprintf("Admin %q created", username))
	return nil
}

// adminList renders admins as a table.
type adminList []*models.Admin

func (l adminList) Headers() []string {
	return []string{"ID", "Username", "Active", "Created"}
}

func (l adminList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, a := range l {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(a.ID), 10),
			a.Username,
			strconv.FormatBool(a.IsActive),
			a.CreatedAt.UTC().Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func runAdminList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(adminOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx := context.Background()
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	admins, err := s.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to list admins: %w", err)
	}

	return output.NewPrinter(cmd.OutOrStdout(), format, false).Print(adminList(admins))
}

func runAdminDelete(cmd *cobra.Command, args []string) error {
	username := args[0]
	if !adminForce {
		ok, err := prompt.Confirm(fmt.Sprintf("Delete admin %q", username))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx := context.Background()
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := s.DeleteAdmin(ctx, username); err != nil {
		return fmt.Errorf("failed to delete admin: %w", err)
	}
	output.NewPrinter(cmd.OutOrStdout(), output.FormatTable, true).Success(fmt.Sprintf("Admin %q deleted", username))
	return nil
}
