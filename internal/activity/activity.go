package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mini-task-manager/internal/db"
)

// Event names.
const (
	TaskCreated  = "task_created"
	TaskUpdated  = "task_updated"
	TaskDeleted  = "task_deleted"
	TaskRestored = "task_restored"
)

// Envelope is what we store with every event.
type Envelope struct {
	ActorID    string
	SessionID  string
	Platform   string
	AppVersion string
}

var platforms = map[string]bool{"web": true, "cli": true, "tui": true, "ios": true, "android": true}

// FromRequest extracts event envelope fields from request.
func FromRequest(r *http.Request) Envelope {
	platform := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Platform")))
	if !platforms[platform] {
		platform = "unknown"
	}

	return Envelope{
		SessionID:  strings.TrimSpace(r.Header.Get("X-Session-Id")),
		Platform:   platform,
		AppVersion: strings.TrimSpace(r.Header.Get("X-App-Version")),
	}
}

// SourceEventKeyFromRequest returns the client idempotency key, if any.
// A repeated key is recorded once.
func SourceEventKeyFromRequest(r *http.Request) string {
	k := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if k != "" {
		return k
	}
	return strings.TrimSpace(r.Header.Get("X-Source-Event-Key"))
}

// Event is one recorded change to a task.
type Event struct {
	ID         string          `json:"id"`
	TaskID     string          `json:"taskId"`
	ActorID    string          `json:"actorId"`
	Name       string          `json:"event"`
	Platform   string          `json:"platform"`
	AppVersion *string         `json:"appVersion"`
	Properties json.RawMessage `json:"properties"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Log records task events.
type Log struct {
	db  *db.DB
	now func() time.Time

	mu   sync.Mutex
	last time.Time
}

func NewLog(d *db.DB) *Log {
	return &Log{db: d, now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }}
}

// stamp never repeats, so events from one process keep their order.
func (l *Log) stamp() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.now()
	if !t.After(l.last) {
		t = l.last.Add(time.Microsecond)
	}
	l.last = t
	return t
}

// Record inserts one event. Callers treat failures as non-fatal.
func (l *Log) Record(ctx context.Context, env Envelope, taskID, eventName string, props any, sourceEventKey string) error {
	if eventName == "" || env.ActorID == "" {
		return nil
	}

	b, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("marshal props: %w", err)
	}

	_, err = l.db.ExecContext(ctx, l.db.Rebind(`
		INSERT INTO task_events (
			id, task_id, actor_id, event_name,
			platform, app_version, session_id,
			source_event_key, properties, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_event_key) DO NOTHING
	`), uuid.NewString(), taskID, env.ActorID, eventName,
		env.Platform, nullIfEmpty(env.AppVersion), nullIfEmpty(env.SessionID),
		nullIfEmpty(sourceEventKey), string(b), l.stamp())
	if err != nil {
		return fmt.Errorf("insert task event: %w", err)
	}
	return nil
}

// ForTask lists a task's events, oldest first.
func (l *Log) ForTask(ctx context.Context, taskID string) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx, l.db.Rebind(`
		SELECT id, task_id, actor_id, event_name, platform, app_version, properties, created_at
		FROM task_events
		WHERE task_id = ?
		ORDER BY created_at, id
	`), taskID)
	if err != nil {
		return nil, fmt.Errorf("list task events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			e     Event
			ver   sql.NullString
			props string
		)
		if err := rows.Scan(&e.ID, &e.TaskID, &e.ActorID, &e.Name, &e.Platform, &ver, &props, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task event: %w", err)
		}
		if ver.Valid {
			e.AppVersion = &ver.String
		}
		e.Properties = json.RawMessage(props)
		e.CreatedAt = e.CreatedAt.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
