package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"teachdash/internal/api"
	"teachdash/internal/auth"
)

// requirePage loads the saved session and checks it may open page.
func (r *runtime) requirePage(page auth.Page) (*auth.Session, error) {
	sess, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errors.New("not signed in; run `teachdash login` first")
	}
	if !sess.Allows(page) {
		return nil, fmt.Errorf("%s may not open %s", sess.Email, page.Title())
	}
	return sess, nil
}

func newLoginCmd(rt *runtime) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Long: `Sign in with email and password. The password is read from stdin when
--password is not given. The session is saved in the state directory.`,
		Example: `  teachdash login --email ada@example.com
  echo "$PASSWORD" | teachdash login --email ada@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				p, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = p
			}
			if password == "" {
				return errors.New("password is required")
			}

			res, err := rt.client.Login(cmd.Context(), strings.TrimSpace(email), password)
			if api.IsUnauthorized(err) {
				return errors.New("invalid email or password")
			}
			if err != nil {
				return err
			}
			sess := auth.Session{UserID: res.UserID, Email: res.Email, AllowedPages: res.AllowedPages}
			if err := rt.store.Save(sess); err != nil {
				return err
			}
			rt.logger.Info("signed in", zap.String("email", sess.Email))
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (pages: %s)\n", sess.Email, strings.Join(sess.AllowedPages, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prefer stdin)")
	return cmd
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.store.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
