package auth

import (
	"context"
	"net/http"
	"strings"

	"mini-task-manager/internal/model"
	"mini-task-manager/internal/respond"
)

type ctxKey string

const actorKey ctxKey = "actor"

type Middleware struct {
	tokens *Tokens
}

func New(tokens *Tokens) Middleware {
	return Middleware{tokens: tokens}
}

func (m Middleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			respond.Error(w, http.StatusUnauthorized, "Authorization token is required")
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		if tokenString == "" {
			respond.Error(w, http.StatusUnauthorized, "Authorization token is required")
			return
		}

		actor, err := m.tokens.ParseToken(tokenString)
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		next(w, r.WithContext(WithActor(r.Context(), actor)))
	}
}

func WithActor(ctx context.Context, a model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	a, ok := ctx.Value(actorKey).(model.Actor)
	return a, ok
}
