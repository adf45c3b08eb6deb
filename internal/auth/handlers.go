package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"mini-task-manager/internal/model"
	"mini-task-manager/internal/respond"
)

// Session is what register and login answer with.
type Session struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func RegisterHandler(users *Users, tokens *Tokens, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body credentials
		if err := respond.DecodeJSON(w, r, &body); err != nil {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		email, password, fe := validateRegister(body)
		if fe.Any() {
			respond.Validation(w, fe)
			return
		}

		u, err := users.Create(r.Context(), email, password, model.RoleUser)
		if errors.Is(err, ErrEmailTaken) {
			respond.Error(w, http.StatusConflict, err.Error())
			return
		}
		if err != nil {
			respond.Internal(w, r, log, err)
			return
		}

		token, err := tokens.GenerateToken(u)
		if err != nil {
			respond.Internal(w, r, log, err)
			return
		}
		respond.OK(w, http.StatusCreated, Session{Token: token, User: u})
	}
}

func LoginHandler(users *Users, tokens *Tokens, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body credentials
		if err := respond.DecodeJSON(w, r, &body); err != nil {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		email, password, fe := validateLogin(body)
		if fe.Any() {
			respond.Validation(w, fe)
			return
		}

		u, err := users.Authenticate(r.Context(), email, password)
		if errors.Is(err, ErrInvalidCredentials) {
			respond.Error(w, http.StatusUnauthorized, err.Error())
			return
		}
		if err != nil {
			respond.Internal(w, r, log, err)
			return
		}

		token, err := tokens.GenerateToken(u)
		if err != nil {
			respond.Internal(w, r, log, err)
			return
		}
		respond.OK(w, http.StatusOK, Session{Token: token, User: u})
	}
}

func MeHandler(users *Users, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "Authorization token is required")
			return
		}

		u, err := users.ByID(r.Context(), actor.ID)
		if errors.Is(err, ErrUserNotFound) {
			respond.Error(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			respond.Internal(w, r, log, err)
			return
		}
		respond.OK(w, http.StatusOK, u)
	}
}
