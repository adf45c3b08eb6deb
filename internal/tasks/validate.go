package tasks

import (
	"strings"
	"time"
	"unicode/utf8"

	"mini-task-manager/internal/model"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 2000
)

// taskRequest is a raw create or update body before validation.
type taskRequest struct {
	Title       *string                `json:"title"`
	Description model.Nullable[string] `json:"description"`
	Status      *string                `json:"status"`
	Priority    *string                `json:"priority"`
	DueDate     model.Nullable[string] `json:"dueDate"`
}

func validateCreate(req taskRequest) (model.CreateTaskInput, model.FieldErrors) {
	fe := model.FieldErrors{}
	var in model.CreateTaskInput

	if req.Title == nil {
		fe.Add("title", "Title is required")
	} else {
		in.Title = checkTitle(fe, *req.Title)
	}
	if req.Description.Valid {
		d := checkDescription(fe, req.Description.Value)
		in.Description = &d
	}
	if req.Status != nil {
		in.Status = checkStatus(fe, *req.Status)
	}
	if req.Priority != nil {
		in.Priority = checkPriority(fe, *req.Priority)
	}
	if req.DueDate.Valid {
		in.DueDate = checkDueDate(fe, req.DueDate.Value)
	}

	return in.WithDefaults(), fe
}

func validateUpdate(req taskRequest) (model.UpdateTaskInput, model.FieldErrors) {
	fe := model.FieldErrors{}
	var in model.UpdateTaskInput

	if req.Title != nil {
		t := checkTitle(fe, *req.Title)
		in.Title = &t
	}
	if req.Description.Set {
		if req.Description.Valid {
			in.Description = model.Some(checkDescription(fe, req.Description.Value))
		} else {
			in.Description = model.Null[string]()
		}
	}
	if req.Status != nil {
		s := checkStatus(fe, *req.Status)
		in.Status = &s
	}
	if req.Priority != nil {
		p := checkPriority(fe, *req.Priority)
		in.Priority = &p
	}
	if req.DueDate.Set {
		in.DueDate = model.Null[time.Time]()
		if req.DueDate.Valid {
			in.DueDate = model.FromPtr(checkDueDate(fe, req.DueDate.Value))
		}
	}

	return in, fe
}

func checkTitle(fe model.FieldErrors, raw string) string {
	t := strings.TrimSpace(raw)
	switch n := utf8.RuneCountInString(t); {
	case n == 0:
		fe.Add("title", "Title cannot be empty")
	case n > maxTitleLen:
		fe.Add("title", "Title must be at most 200 characters")
	}
	return t
}

func checkDescription(fe model.FieldErrors, raw string) string {
	d := strings.TrimSpace(raw)
	if utf8.RuneCountInString(d) > maxDescriptionLen {
		fe.Add("description", "Description must be at most 2000 characters")
	}
	return d
}

func checkStatus(fe model.FieldErrors, raw string) model.Status {
	s := model.Status(raw)
	if !s.IsValid() {
		fe.Add("status", "Invalid enum value. Expected 'todo' | 'doing' | 'done', received '"+raw+"'")
	}
	return s
}

func checkPriority(fe model.FieldErrors, raw string) model.Priority {
	p := model.Priority(raw)
	if !p.IsValid() {
		fe.Add("priority", "Invalid enum value. Expected 'low' | 'medium' | 'high', received '"+raw+"'")
	}
	return p
}

func checkDueDate(fe model.FieldErrors, raw string) *time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		fe.Add("dueDate", "dueDate must be a valid ISO 8601 date-time string")
		return nil
	}
	t = t.UTC().Truncate(time.Microsecond)
	return &t
}
