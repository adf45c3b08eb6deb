// Package model holds the task and user types shared by the API server and
// the client-side cache.
package model

import (
	"time"
)

type Status string

const (
	StatusTodo  Status = "todo"
	StatusDoing Status = "doing"
	StatusDone  Status = "done"
)

// Statuses lists every status in ordinal order.
var Statuses = []Status{StatusTodo, StatusDoing, StatusDone}

func (s Status) IsValid() bool {
	return s.Rank() >= 0
}

// Rank is the ordinal used for sorting: todo < doing < done.
func (s Status) Rank() int {
	switch s {
	case StatusTodo:
		return 0
	case StatusDoing:
		return 1
	case StatusDone:
		return 2
	}
	return -1
}

// Next cycles todo -> doing -> done -> todo.
func (s Status) Next() Status {
	return Statuses[(s.Rank()+1)%len(Statuses)]
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) IsValid() bool {
	return p.Rank() >= 0
}

// Rank is the ordinal used for sorting: low < medium < high.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	}
	return -1
}

func (p Priority) Next() Priority {
	return Priorities[(p.Rank()+1)%len(Priorities)]
}

// Task is the central entity. DeletedAt and DeletedByID are either both set
// or both nil.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	OwnerID     string     `json:"ownerId"`
	CreatedByID string     `json:"createdById"`
	UpdatedByID string     `json:"updatedById"`
	DeletedAt   *time.Time `json:"deletedAt"`
	DeletedByID *string    `json:"deletedById"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (t Task) IsDeleted() bool {
	return t.DeletedAt != nil
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	out := t
	out.Description = clonePtr(t.Description)
	out.DueDate = clonePtr(t.DueDate)
	out.DeletedAt = clonePtr(t.DeletedAt)
	out.DeletedByID = clonePtr(t.DeletedByID)
	return out
}

// Equal reports whether both tasks carry the same field values.
func (t Task) Equal(o Task) bool {
	return t.ID == o.ID &&
		t.Title == o.Title &&
		equalPtr(t.Description, o.Description, func(a, b string) bool { return a == b }) &&
		t.Status == o.Status &&
		t.Priority == o.Priority &&
		equalPtr(t.DueDate, o.DueDate, time.Time.Equal) &&
		t.OwnerID == o.OwnerID &&
		t.CreatedByID == o.CreatedByID &&
		t.UpdatedByID == o.UpdatedByID &&
		equalPtr(t.DeletedAt, o.DeletedAt, time.Time.Equal) &&
		equalPtr(t.DeletedByID, o.DeletedByID, func(a, b string) bool { return a == b }) &&
		t.CreatedAt.Equal(o.CreatedAt) &&
		t.UpdatedAt.Equal(o.UpdatedAt)
}

// MarkDeleted returns t soft-deleted by actorID at the given time.
func (t Task) MarkDeleted(actorID string, at time.Time) Task {
	out := t.Clone()
	out.DeletedAt = &at
	out.DeletedByID = &actorID
	out = out.Touch(actorID, at)
	return out
}

// MarkRestored returns t with both soft-delete markers cleared.
func (t Task) MarkRestored(actorID string, at time.Time) Task {
	out := t.Clone()
	out.DeletedAt = nil
	out.DeletedByID = nil
	out = out.Touch(actorID, at)
	return out
}

// Touch records a write by actorID. UpdatedAt never moves backwards.
func (t Task) Touch(actorID string, at time.Time) Task {
	t.UpdatedByID = actorID
	if at.After(t.UpdatedAt) {
		t.UpdatedAt = at
	}
	return t
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func equalPtr[T any](a, b *T, eq func(T, T) bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return eq(*a, *b)
}
