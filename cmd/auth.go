package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/api"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/config"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/session"
	"github.com/spf13/cobra"
)

var (
	flagEmail    string
	flagPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the content API and remember the token",
	Long: `Sign in with an admin, super-admin or author account. The password is read
from --password or, when that is empty, from the first line of stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagEmail == "" {
			return errors.New("--email is required")
		}
		password := flagPassword
		if password == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			p, err := readLine(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}
			password = p
		}

		sess, err := newCLISession()
		if err != nil {
			return err
		}
		user, err := sess.Login(cmd.Context(), flagEmail, password)
		if err != nil {
			return fmt.Errorf("signing in: %w", err)
		}
		if !session.Allowed(user) {
			// The token is useless for admin work; do not keep it around.
			_ = sess.Logout()
			return fmt.Errorf("account %s has role %q, which cannot use the admin area", user.Info.Email, user.Info.Role)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", user.Info.Name, user.Info.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := session.NewFileTokenStore(config.TokenPath()).Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newCLISession()
		if err != nil {
			return err
		}
		if err := sess.Hydrate(cmd.Context()); err != nil {
			return err
		}
		u := sess.User()
		if !u.IsAuthenticated || u.Info == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", u.Info.Name, u.Info.Email, u.Info.Role)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&flagEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&flagPassword, "password", "", "account password (prompted when empty)")
}

func newCLISession() (*session.Session, error) {
	client, err := api.New(cfg.API.BaseURL, cfg.APITimeout())
	if err != nil {
		return nil, err
	}
	return session.New(client, session.NewFileTokenStore(config.TokenPath()), logger.Named("session")), nil
}

// readLine returns the first line of r without its line ending.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty input")
	}
	return line, nil
}
