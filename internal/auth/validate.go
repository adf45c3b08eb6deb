package auth

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"mini-task-manager/internal/model"
)

type credentials struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func normalizeEmail(fe model.FieldErrors, raw *string) string {
	if raw == nil {
		fe.Add("email", "Required")
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(*raw))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email || !strings.Contains(email, "@") {
		fe.Add("email", "Invalid email format")
	}
	if utf8.RuneCountInString(email) > 255 {
		fe.Add("email", "String must contain at most 255 character(s)")
	}
	return email
}

func validateRegister(c credentials) (email, password string, fe model.FieldErrors) {
	fe = model.FieldErrors{}
	email = normalizeEmail(fe, c.Email)
	switch {
	case c.Password == nil:
		fe.Add("password", "Required")
	case utf8.RuneCountInString(*c.Password) < 8:
		fe.Add("password", "Password must be at least 8 characters")
	case utf8.RuneCountInString(*c.Password) > 128:
		fe.Add("password", "Password must be at most 128 characters")
	default:
		password = *c.Password
	}
	return email, password, fe
}

func validateLogin(c credentials) (email, password string, fe model.FieldErrors) {
	fe = model.FieldErrors{}
	email = normalizeEmail(fe, c.Email)
	switch {
	case c.Password == nil:
		fe.Add("password", "Required")
	case *c.Password == "":
		fe.Add("password", "Password is required")
	default:
		password = *c.Password
	}
	return email, password, fe
}
