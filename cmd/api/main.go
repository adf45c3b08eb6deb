package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"

	"mini-task-manager/internal/config"
	"mini-task-manager/internal/db"
	"mini-task-manager/internal/server"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "api",
	Short:         "Mini task manager API server",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	RunE:  runMigrate,
}

var serveAddr string
var serveMigrate bool

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides ADDR)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "apply the schema before serving")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

// open loads the config and connects to the database.
func open() (*config.Config, *db.DB, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	log := newLogger(cfg)

	database, err := db.Connect(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	log.Info("connected to database", "driver", cfg.Driver)
	return cfg, database, log, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	_, database, log, err := open()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(cmd.Context()); err != nil {
		return err
	}
	log.Info("schema up to date")
	fmt.Fprintln(cmd.OutOrStdout(), "migrated")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, database, log, err := open()
	if err != nil {
		return err
	}
	defer database.Close()

	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	if serveMigrate {
		if err := database.Migrate(cmd.Context()); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	if cfg.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.MaxConns)
	}

	srv := &http.Server{
		Handler:           server.New(cfg, database, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server is running", "addr", ln.Addr().String(), "env", cfg.Env)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
