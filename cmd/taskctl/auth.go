package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	emailFlag    string
	passwordFlag string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd, true)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd, false)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget the token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		if s.api.Token() != "" {
			// the token is dropped locally even if the server is unreachable
			if err := s.api.Logout(cmd.Context()); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
			}
		}
		if err := s.cfg.ClearToken(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		if err := s.requireLogin(); err != nil {
			return err
		}
		u, err := s.api.Me(cmd.Context())
		if err != nil {
			return s.check(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) %s\n", u.Email, u.Role, u.ID)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVarP(&emailFlag, "email", "e", "", "account email")
		c.Flags().StringVarP(&passwordFlag, "password", "p", "", "account password (prompted when omitted)")
	}
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd)
}

func authenticate(cmd *cobra.Command, register bool) error {
	s, err := loadSession()
	if err != nil {
		return err
	}

	in := bufio.NewReader(cmd.InOrStdin())
	email := strings.TrimSpace(emailFlag)
	if email == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Email: ")
		if email, err = readLine(in); err != nil {
			return err
		}
	}
	password := passwordFlag
	if password == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		if password, err = readPassword(in); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	ctx := cmd.Context()
	if register {
		_, err = s.api.Register(ctx, email, password)
	} else {
		_, err = s.api.Login(ctx, email, password)
	}
	if err != nil {
		return err
	}
	if err := s.cfg.SaveToken(s.api.Token()); err != nil {
		return err
	}

	u, err := s.api.Me(ctx)
	if err != nil {
		return s.check(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", u.Email, u.Role)
	return nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo on a terminal and falls back to a plain
// line when input is piped.
func readPassword(r *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if r.Buffered() == 0 && term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
