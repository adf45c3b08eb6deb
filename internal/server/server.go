// Package server assembles the HTTP API.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"mini-task-manager/internal/activity"
	"mini-task-manager/internal/auth"
	"mini-task-manager/internal/config"
	"mini-task-manager/internal/db"
	"mini-task-manager/internal/respond"
	"mini-task-manager/internal/tasks"
)

// New returns the complete API handler: routes, auth, CORS and request
// logging.
func New(cfg *config.Config, database *db.DB, log *slog.Logger) http.Handler {
	started := time.Now()

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiresIn)
	users := auth.NewUsers(database)
	requireAuth := auth.New(tokens)
	th := &tasks.Handlers{
		Store:  tasks.NewStore(database),
		Events: activity.NewLog(database),
		Log:    log,
	}

	mux := http.NewServeMux()

	// Health endpoint
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		respond.OK(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"uptime":      int(time.Since(started).Seconds()),
			"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
			"environment": cfg.Env,
		})
	})

	// ----- AUTH API -----
	mux.HandleFunc("POST /api/auth/register", auth.RegisterHandler(users, tokens, log))
	mux.HandleFunc("POST /api/auth/login", auth.LoginHandler(users, tokens, log))
	mux.HandleFunc("GET /api/auth/me", requireAuth.Wrap(auth.MeHandler(users, log)))
	mux.HandleFunc("POST /api/auth/logout", requireAuth.Wrap(auth.LogoutHandler()))

	// ----- TASKS API -----
	mux.HandleFunc("GET /api/tasks", requireAuth.Wrap(th.List))
	mux.HandleFunc("POST /api/tasks", requireAuth.Wrap(th.Create))
	mux.HandleFunc("GET /api/tasks/{id}", requireAuth.Wrap(th.Get))
	mux.HandleFunc("PUT /api/tasks/{id}", requireAuth.Wrap(th.Update))
	mux.HandleFunc("DELETE /api/tasks/{id}", requireAuth.Wrap(th.Delete))
	mux.HandleFunc("PATCH /api/tasks/{id}/restore", requireAuth.Wrap(th.Restore))
	mux.HandleFunc("GET /api/tasks/{id}/activity", requireAuth.Wrap(th.Activity))

	mux.HandleFunc("/", respond.NotFound)

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key", "X-Platform", "X-App-Version", "X-Session-Id"},
		AllowCredentials: true,
	})

	return respond.WithLogging(log, c.Handler(mux))
}
