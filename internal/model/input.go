package model

import (
	"strings"
	"time"
)

// CreateTaskInput is a validated create payload. Empty Status and Priority
// fall back to todo and medium.
type CreateTaskInput struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      Status     `json:"status,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// WithDefaults fills the optional enum fields.
func (in CreateTaskInput) WithDefaults() CreateTaskInput {
	if in.Status == "" {
		in.Status = StatusTodo
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	return in
}

// Trimmed strips surrounding whitespace from the text fields, as the server
// does before storing them.
func (in CreateTaskInput) Trimmed() CreateTaskInput {
	in.Title = strings.TrimSpace(in.Title)
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		in.Description = &d
	}
	return in
}

// NewTask builds the task a create would produce, before the server assigns
// anything of its own.
func (in CreateTaskInput) NewTask(id string, actor Actor, at time.Time) Task {
	in = in.WithDefaults()
	t := Task{
		ID:          id,
		Title:       in.Title,
		Status:      in.Status,
		Priority:    in.Priority,
		OwnerID:     actor.ID,
		CreatedByID: actor.ID,
		UpdatedByID: actor.ID,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if in.Description != nil {
		d := *in.Description
		t.Description = &d
	}
	if in.DueDate != nil {
		d := *in.DueDate
		t.DueDate = &d
	}
	return t
}

// UpdateTaskInput is a partial update. Description and DueDate may be
// cleared with an explicit null.
type UpdateTaskInput struct {
	Title       *string             `json:"title,omitempty"`
	Description Nullable[string]    `json:"description,omitzero"`
	Status      *Status             `json:"status,omitempty"`
	Priority    *Priority           `json:"priority,omitempty"`
	DueDate     Nullable[time.Time] `json:"dueDate,omitzero"`
}

// IsEmpty reports whether the update carries no fields at all.
func (in UpdateTaskInput) IsEmpty() bool {
	return in.Title == nil && !in.Description.Set && in.Status == nil &&
		in.Priority == nil && !in.DueDate.Set
}

// Trimmed strips surrounding whitespace from the text fields that are set.
func (in UpdateTaskInput) Trimmed() UpdateTaskInput {
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	if in.Description.Valid {
		in.Description.Value = strings.TrimSpace(in.Description.Value)
	}
	return in
}

// Apply merges the provided fields into t. Audit fields are left alone.
func (in UpdateTaskInput) Apply(t Task) Task {
	out := t.Clone()
	if in.Title != nil {
		out.Title = *in.Title
	}
	if in.Description.Set {
		out.Description = in.Description.Ptr()
	}
	if in.Status != nil {
		out.Status = *in.Status
	}
	if in.Priority != nil {
		out.Priority = *in.Priority
	}
	if in.DueDate.Set {
		out.DueDate = in.DueDate.Ptr()
	}
	return out
}
