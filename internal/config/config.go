package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr   string
	Env    string
	Driver string

	DatabaseURL string
	DBHost      string
	DBPort      int
	DBUser      string
	DBPassword  string
	DBName      string

	JWTSecret    []byte
	JWTExpiresIn time.Duration

	CORSOrigins []string
	MaxConns    int
	LogLevel    slog.Level

	Seed SeedConfig
}

// SeedConfig holds the demo accounts created by the seed command.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	UserEmail     string
	UserPassword  string
}

const devJWTSecret = "dev-jwt-secret"

func Load() (*Config, error) {

	// Парсим DB_PORT
	port, err := strconv.Atoi(os.Getenv("DB_PORT"))
	if err != nil {
		port = 5432 // fallback
	}

	c := &Config{
		Addr:   getenv("ADDR", ":3001"),
		Env:    getenv("APP_ENV", "development"),
		Driver: getenv("DATABASE_DRIVER", "postgres"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      getenv("DB_HOST", "localhost"),
		DBPort:      port,
		DBUser:      os.Getenv("DB_USER"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBName:      os.Getenv("DB_NAME"),

		CORSOrigins: splitList(getenv("CORS_ORIGIN", "http://localhost:5173")),

		Seed: SeedConfig{
			AdminEmail:    getenv("SEED_ADMIN_EMAIL", "admin@mini-task.local"),
			AdminPassword: getenv("SEED_ADMIN_PASSWORD", "Admin123!"),
			UserEmail:     getenv("SEED_USER_EMAIL", "user@mini-task.local"),
			UserPassword:  getenv("SEED_USER_PASSWORD", "User123!"),
		},
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if c.IsProduction() {
			return nil, errors.New("JWT_SECRET is required in production")
		}
		secret = devJWTSecret
	}
	c.JWTSecret = []byte(secret)

	c.JWTExpiresIn = 12 * time.Hour
	if s := os.Getenv("JWT_EXPIRES_IN"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid JWT_EXPIRES_IN %q", s)
		}
		c.JWTExpiresIn = d
	}

	if s := os.Getenv("MAX_CONNS"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid MAX_CONNS %q", s)
		}
		c.MaxConns = n
	}

	if s := os.Getenv("LOG_LEVEL"); s != "" {
		if err := c.LogLevel.UnmarshalText([]byte(s)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
		}
	}

	return c, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

// DSN prefers DATABASE_URL and falls back to the DB_* variables.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if c.Driver == "sqlite" {
		return "tasks.db"
	}
	return c.ConnString()
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
