package db

import (
	"context"
	"fmt"
	"strings"
)

// schema is written once for both dialects. {{ts}} stands for the timestamp type.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL DEFAULT 'todo' CHECK (status IN ('todo', 'doing', 'done')),
		priority TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
		due_date {{ts}},
		owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_by_id TEXT NOT NULL REFERENCES users(id),
		updated_by_id TEXT NOT NULL REFERENCES users(id),
		deleted_at {{ts}},
		deleted_by_id TEXT REFERENCES users(id) ON DELETE SET NULL,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS tasks_owner_deleted_idx ON tasks (owner_id, deleted_at)`,
	`CREATE INDEX IF NOT EXISTS tasks_status_idx ON tasks (status)`,
	`CREATE INDEX IF NOT EXISTS tasks_priority_idx ON tasks (priority)`,
	`CREATE INDEX IF NOT EXISTS tasks_due_date_idx ON tasks (due_date)`,
	`CREATE INDEX IF NOT EXISTS tasks_created_at_idx ON tasks (created_at)`,
	`CREATE TABLE IF NOT EXISTS task_events (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		actor_id TEXT NOT NULL,
		event_name TEXT NOT NULL,
		platform TEXT NOT NULL DEFAULT 'unknown',
		app_version TEXT,
		session_id TEXT,
		source_event_key TEXT UNIQUE,
		properties TEXT NOT NULL DEFAULT '{}',
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS task_events_task_idx ON task_events (task_id, created_at)`,
}

// Migrate creates any missing tables and indexes.
func (db *DB) Migrate(ctx context.Context) error {
	tsType := "TIMESTAMP"
	if db.isPostgres() {
		tsType = "TIMESTAMPTZ"
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, strings.ReplaceAll(stmt, "{{ts}}", tsType)); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Truncate removes every row from the given tables, in order.
func (db *DB) Truncate(ctx context.Context, tables ...string) error {
	for _, t := range tables {
		if strings.ContainsAny(t, " ;\"'") {
			return fmt.Errorf("bad table name %q", t)
		}
		if _, err := db.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("truncate %s: %w", t, err)
		}
	}
	return nil
}
