package main

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"mini-task-manager/internal/optimistic"
	"mini-task-manager/internal/querycache"
	"mini-task-manager/internal/tui"
)

var debugLog string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse and edit tasks in an interactive terminal view",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loggedIn()
		if err != nil {
			return err
		}
		s.api.Platform = "tui"

		u, err := s.api.Me(cmd.Context())
		if err != nil {
			return s.check(err)
		}

		logger := slog.New(slog.DiscardHandler)
		if debugLog != "" {
			f, err := os.OpenFile(debugLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return fmt.Errorf("open debug log: %w", err)
			}
			defer f.Close()
			logger = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}

		coord := optimistic.New(s.api, querycache.New(), logger)
		defer coord.Close()
		coord.OnUnauthorized = func() {
			if err := s.cfg.ClearToken(); err != nil {
				logger.Error("clear token", "error", err)
			}
		}

		m := tui.New(cmd.Context(), coord, u.Actor(), s.cfg.PageSize)
		if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run(); err != nil {
			return fmt.Errorf("run tui: %w", err)
		}
		return nil
	},
}

func init() {
	tuiCmd.Flags().StringVar(&debugLog, "debug-log", "", "write debug logs to this file")
	rootCmd.AddCommand(tuiCmd)
}
