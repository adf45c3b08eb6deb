package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"mini-task-manager/internal/db"
	"mini-task-manager/internal/model"
)

const bcryptCost = 10

var (
	ErrEmailTaken         = errors.New("Email is already registered")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrUserNotFound       = errors.New("User not found")
)

// Users persists accounts.
type Users struct {
	db  *db.DB
	now func() time.Time
}

func NewUsers(d *db.DB) *Users {
	return &Users{db: d, now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }}
}

const userColumns = `id, email, role, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, err
}

// Create stores a new account with a bcrypt hash of password.
func (s *Users) Create(ctx context.Context, email, password string, role model.Role) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u := model.User{ID: uuid.NewString(), Email: email, Role: role, CreatedAt: now, UpdatedAt: now}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO users (id, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), u.ID, u.Email, string(hash), u.Role, u.CreatedAt, u.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return model.User{}, ErrEmailTaken
	}
	if err != nil {
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// Authenticate checks the password and returns the account. Unknown emails
// and wrong passwords fail the same way.
func (s *Users) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	var hash string
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT password_hash, `+userColumns+` FROM users WHERE email = ?`), email)
	var u model.User
	err := row.Scan(&hash, &u.ID, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, fmt.Errorf("select user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return model.User{}, ErrInvalidCredentials
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (s *Users) ByID(ctx context.Context, id string) (model.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}
