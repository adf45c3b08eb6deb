package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Client is the taskctl configuration file.
type Client struct {
	// Server is the API base URL, without the /api suffix.
	Server string `toml:"server"`
	// PageSize is the list limit used by the CLI and the TUI.
	PageSize int `toml:"page-size"`
	// TokenFile stores the bearer token between runs.
	TokenFile string `toml:"token-file"`
}

const defaultServer = "http://localhost:3001"

// ClientConfigPath returns $XDG_CONFIG_HOME/mini-task-manager/config.toml.
func ClientConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get config directory: %w", err)
	}
	return filepath.Join(dir, "mini-task-manager", "config.toml"), nil
}

// LoadClient reads the client config at path. A missing file yields the
// defaults. TASKS_SERVER overrides the server from the file.
func LoadClient(path string) (*Client, error) {
	cfg := &Client{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if s := os.Getenv("TASKS_SERVER"); s != "" {
		cfg.Server = s
	}
	cfg.Server = strings.TrimRight(strings.TrimSpace(cfg.Server), "/")
	if cfg.Server == "" {
		cfg.Server = defaultServer
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = filepath.Join(filepath.Dir(path), "token")
	}
	return cfg, nil
}

// ReadToken returns the stored token, or "" when none is saved.
func (c *Client) ReadToken() (string, error) {
	data, err := os.ReadFile(c.TokenFile)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *Client) SaveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(c.TokenFile), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(c.TokenFile, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (c *Client) ClearToken() error {
	err := os.Remove(c.TokenFile)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}
