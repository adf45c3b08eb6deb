// Command taskctl is the command-line and terminal client for the task API.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"mini-task-manager/internal/client"
	"mini-task-manager/internal/config"
)

const appVersion = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:           "taskctl",
	Short:         "Manage tasks on a mini task manager server",
	Version:       appVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/mini-task-manager/config.toml)")
}

// session bundles the loaded config with a client that carries the saved token.
type session struct {
	cfg *config.Client
	api *client.Client
}

func loadSession() (*session, error) {
	path := configPath
	if path == "" {
		p, err := config.ClientConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.LoadClient(path)
	if err != nil {
		return nil, err
	}
	token, err := cfg.ReadToken()
	if err != nil {
		return nil, err
	}

	api := client.New(cfg.Server)
	api.Platform = "cli"
	api.AppVersion = appVersion
	api.SetToken(token)
	return &session{cfg: cfg, api: api}, nil
}

// requireLogin fails early when no token is stored.
func (s *session) requireLogin() error {
	if s.api.Token() == "" {
		return errors.New("not logged in, run `taskctl login` first")
	}
	return nil
}

// check turns a 401 into a cleared session and a hint to log in again.
func (s *session) check(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		if cerr := s.cfg.ClearToken(); cerr != nil {
			return errors.Join(err, cerr)
		}
		return fmt.Errorf("%w (session cleared, run `taskctl login`)", err)
	}
	return err
}
