// Package client calls the task API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"mini-task-manager/internal/model"
	"mini-task-manager/internal/taskquery"
)

// Client talks to one API server. It is safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client

	// Platform and AppVersion are sent as X-Platform and X-App-Version.
	Platform   string
	AppVersion string

	mu    sync.RWMutex
	token string
}

// New creates a client for the given address or URL.
func New(addr string) *Client {
	baseURL := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Client{baseURL: baseURL, client: &http.Client{Timeout: 30 * time.Second}}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// APIError is a non-success answer from the server.
type APIError struct {
	Status  int
	Message string
	Errors  map[string][]string
}

// Error joins field messages as "field: a, b | other: c" when present.
func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		if e.Message != "" {
			return e.Message
		}
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e.Errors[f], ", "))
	}
	return strings.Join(parts, " | ")
}

type idempotencyKey struct{}

// WithIdempotencyKey attaches an Idempotency-Key to requests made with ctx.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey{}, key)
}

// Session is returned by Register and Login.
type Session struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Event is one entry of a task's activity log.
type Event struct {
	ID         string          `json:"id"`
	TaskID     string          `json:"taskId"`
	ActorID    string          `json:"actorId"`
	Event      string          `json:"event"`
	Platform   string          `json:"platform"`
	AppVersion *string         `json:"appVersion"`
	Properties json.RawMessage `json:"properties"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and stores the returned token.
func (c *Client) Register(ctx context.Context, email, password string) (Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", credentials{email, password}, &s, nil); err != nil {
		return Session{}, err
	}
	c.SetToken(s.Token)
	return s, nil
}

// Login authenticates and stores the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", credentials{email, password}, &s, nil); err != nil {
		return Session{}, err
	}
	c.SetToken(s.Token)
	return s, nil
}

func (c *Client) Me(ctx context.Context) (model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u, nil)
	return u, err
}

// Logout tells the server and forgets the token either way.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
	c.SetToken("")
	return err
}

func (c *Client) ListTasks(ctx context.Context, p taskquery.Params) (taskquery.Page, error) {
	path := "/api/tasks"
	if q := p.Values().Encode(); q != "" {
		path += "?" + q
	}
	var pg taskquery.Page
	var meta *taskquery.Meta
	if err := c.do(ctx, http.MethodGet, path, nil, &pg.Data, &meta); err != nil {
		return taskquery.Page{}, err
	}
	if meta != nil {
		pg.Meta = *meta
	} else {
		n := p.Normalize()
		pg.Meta = taskquery.NewMeta(n.Page, n.Limit, len(pg.Data))
	}
	if pg.Data == nil {
		pg.Data = []model.Task{}
	}
	return pg, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, &t, nil)
	return t, err
}

func (c *Client) CreateTask(ctx context.Context, in model.CreateTaskInput) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPost, "/api/tasks", in, &t, nil)
	return t, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, in model.UpdateTaskInput) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPut, "/api/tasks/"+url.PathEscape(id), in, &t, nil)
	return t, err
}

// DeleteTask soft-deletes and returns the deleted task.
func (c *Client) DeleteTask(ctx context.Context, id string) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, &t, nil)
	return t, err
}

func (c *Client) RestoreTask(ctx context.Context, id string) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(id)+"/restore", nil, &t, nil)
	return t, err
}

func (c *Client) TaskActivity(ctx context.Context, id string) ([]Event, error) {
	var events []Event
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id)+"/activity", nil, &events, nil)
	return events, err
}

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Meta    json.RawMessage     `json:"meta"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

// do sends one request and decodes data and meta into the given targets.
func (c *Client) do(ctx context.Context, method, path string, payload, data, meta any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if c.Platform != "" {
		req.Header.Set("X-Platform", c.Platform)
	}
	if c.AppVersion != "" {
		req.Header.Set("X-App-Version", c.AppVersion)
	}
	if key, ok := ctx.Value(idempotencyKey{}).(string); ok && key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return readResponse(resp, data, meta)
}

func readResponse(resp *http.Response, data, meta any) error {
	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || decodeErr != nil || !env.Success {
		apiErr := &APIError{Status: resp.StatusCode, Message: env.Error, Errors: env.Errors}
		if decodeErr != nil && apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return apiErr
	}

	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	if meta != nil && len(env.Meta) > 0 {
		if err := json.Unmarshal(env.Meta, meta); err != nil {
			return fmt.Errorf("decode meta: %w", err)
		}
	}
	return nil
}
