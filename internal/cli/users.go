package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"teachdash/internal/api"
	"teachdash/internal/auth"
)

func newUsersCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage dashboard accounts and their pages",
		Long: `Manage dashboard accounts. Page names: ` + grantableNames() + `.
Requires an account that has the users page.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.setup(cmd, false); err != nil {
				return err
			}
			_, err := rt.requirePage(auth.PageUsers)
			return err
		},
	}
	cmd.AddCommand(
		newUsersListCmd(rt),
		newUsersAddCmd(rt),
		newUsersSetCmd(rt),
		newUsersRemoveCmd(rt),
	)
	return cmd
}

func newUsersListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := rt.client.ListUsers(cmd.Context())
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}
			renderUsers(cmd.OutOrStdout(), users)
			return nil
		},
	}
}

func newUsersAddCmd(rt *runtime) *cobra.Command {
	var email, password string
	var pages []string
	var inactive bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		Long: `Create an account. The password is read from stdin when --password is
not given.`,
		Example: `  teachdash users add --email ada@example.com --page dashboard --page libraries`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			allowed, err := backendPages(pages)
			if err != nil {
				return err
			}
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				if password, err = readLine(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("read password: %w", err)
				}
			}
			nu := api.NewUser{Email: strings.TrimSpace(email), Password: password, AllowedPages: allowed}
			if inactive {
				active := false
				nu.IsActive = &active
			}
			u, err := rt.client.CreateUser(cmd.Context(), nu)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			rt.logger.Info("user created", zap.Int("user_id", u.ID), zap.Strings("pages", u.AllowedPages))
			renderUsers(cmd.OutOrStdout(), []api.User{u})
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prefer stdin)")
	cmd.Flags().StringSliceVar(&pages, "page", nil, "page the account may open (repeatable)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the account disabled")
	return cmd
}

func newUsersSetCmd(rt *runtime) *cobra.Command {
	var email string
	var pages []string
	var noPages, active, passwordStdin bool
	cmd := &cobra.Command{
		Use:   "set <user-id>",
		Short: "Change an account's email, password, pages or active flag",
		Example: `  teachdash users set 4 --page dashboard --page upload
  teachdash users set 4 --active=false
  echo "$NEW_PASSWORD" | teachdash users set 4 --password-stdin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			var u api.UserUpdate
			if cmd.Flags().Changed("email") {
				trimmed := strings.TrimSpace(email)
				u.Email = &trimmed
			}
			switch {
			case noPages && len(pages) > 0:
				return errors.New("--page and --no-pages are exclusive")
			case noPages:
				none := []string{}
				u.AllowedPages = &none
			case len(pages) > 0:
				allowed, err := backendPages(pages)
				if err != nil {
					return err
				}
				u.AllowedPages = &allowed
			}
			if cmd.Flags().Changed("active") {
				u.IsActive = &active
			}
			if passwordStdin {
				p, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				u.Password = &p
			}
			if u.Empty() {
				return errors.New("nothing to update; pass --email, --page, --no-pages, --active or --password-stdin")
			}
			got, err := rt.client.UpdateUser(cmd.Context(), id, u)
			if err != nil {
				return fmt.Errorf("user %d: %w", id, err)
			}
			renderUsers(cmd.OutOrStdout(), []api.User{got})
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "new email")
	cmd.Flags().StringSliceVar(&pages, "page", nil, "replace the pages with these (repeatable)")
	cmd.Flags().BoolVar(&noPages, "no-pages", false, "remove every page")
	cmd.Flags().BoolVar(&active, "active", true, "whether the account may sign in")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read a new password from stdin")
	return cmd
}

func newUsersRemoveCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <user-id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			sess, err := rt.requirePage(auth.PageUsers)
			if err != nil {
				return err
			}
			if sess.UserID == id {
				return errors.New("cannot remove the signed-in account")
			}
			if err := rt.client.DeleteUser(cmd.Context(), id); err != nil {
				return fmt.Errorf("user %d: %w", id, err)
			}
			rt.logger.Info("user removed", zap.Int("user_id", id))
			fmt.Fprintf(cmd.OutOrStdout(), "User %d removed\n", id)
			return nil
		},
	}
}

// backendPages validates page names and converts them to the names the
// backend stores. Duplicates are dropped.
func backendPages(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	seen := make(map[auth.Page]bool)
	for _, n := range names {
		p, ok := auth.ParsePage(n)
		if !ok {
			return nil, fmt.Errorf("unknown page %q (want one of %s)", n, grantableNames())
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p.BackendName())
		}
	}
	return out, nil
}

func grantableNames() string {
	names := make([]string, len(auth.Grantable))
	for i, p := range auth.Grantable {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func parseUserID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return id, nil
}
