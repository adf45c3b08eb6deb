package auth

import (
	"net/http"

	"mini-task-manager/internal/respond"
)

func LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// JWT stateless => сервер ничего не “разлогинивает”.
		// Клиент просто удаляет токен.
		respond.OK(w, http.StatusOK, map[string]bool{"loggedOut": true})
	}
}
