package tasks

import (
	"errors"
	"log/slog"
	"net/http"

	"mini-task-manager/internal/activity"
	"mini-task-manager/internal/auth"
	"mini-task-manager/internal/model"
	"mini-task-manager/internal/respond"
	"mini-task-manager/internal/taskquery"
)

// Handlers serves /api/tasks. Routes are wrapped by auth.Middleware, so an
// actor is always on the context.
type Handlers struct {
	Store  *Store
	Events *activity.Log
	Log    *slog.Logger
}

func (h *Handlers) actor(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	a, ok := auth.ActorFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Authorization token is required")
	}
	return a, ok
}

// writeStoreError maps store errors onto the response envelope.
func (h *Handlers) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var nf *NotFoundError
	switch {
	case errors.As(err, &nf):
		respond.Error(w, http.StatusNotFound, nf.Error())
	case errors.Is(err, ErrForbidden):
		respond.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrDeletedTask), errors.Is(err, ErrAlreadyDeleted), errors.Is(err, ErrNotDeleted):
		respond.Error(w, http.StatusConflict, err.Error())
	default:
		respond.Internal(w, r, h.Log, err)
	}
}

func (h *Handlers) record(r *http.Request, actor model.Actor, taskID, event string, props any) {
	if h.Events == nil {
		return
	}
	env := activity.FromRequest(r)
	env.ActorID = actor.ID
	if err := h.Events.Record(r.Context(), env, taskID, event, props, activity.SourceEventKeyFromRequest(r)); err != nil {
		h.Log.Warn("activity record failed", "task_id", taskID, "event", event, "err", err)
	}
}

func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	params, fe := taskquery.Parse(r.URL.Query())
	if fe.Any() {
		respond.Validation(w, fe)
		return
	}

	page, err := h.Store.List(r.Context(), actor, params)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	respond.List(w, page.Data, page.Meta)
}

func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	t, err := h.Store.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	respond.OK(w, http.StatusOK, t)
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var body taskRequest
	if err := respond.DecodeJSON(w, r, &body); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	in, fe := validateCreate(body)
	if fe.Any() {
		respond.Validation(w, fe)
		return
	}

	t, err := h.Store.Create(r.Context(), actor, in)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.record(r, actor, t.ID, activity.TaskCreated, map[string]any{
		"status":       t.Status,
		"priority":     t.Priority,
		"has_due_date": t.DueDate != nil,
	})
	respond.OK(w, http.StatusCreated, t)
}

func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var body taskRequest
	if err := respond.DecodeJSON(w, r, &body); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	in, fe := validateUpdate(body)
	if fe.Any() {
		respond.Validation(w, fe)
		return
	}

	t, err := h.Store.Update(r.Context(), actor, r.PathValue("id"), in)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.record(r, actor, t.ID, activity.TaskUpdated, map[string]any{"fields": changedFields(in)})
	respond.OK(w, http.StatusOK, t)
}

func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	t, err := h.Store.Delete(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.record(r, actor, t.ID, activity.TaskDeleted, nil)
	respond.OK(w, http.StatusOK, t)
}

func (h *Handlers) Restore(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	t, err := h.Store.Restore(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.record(r, actor, t.ID, activity.TaskRestored, nil)
	respond.OK(w, http.StatusOK, t)
}

// Activity lists a task's events. Deleted tasks keep their history visible.
func (h *Handlers) Activity(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	t, err := h.Store.Find(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	events, err := h.Events.ForTask(r.Context(), t.ID)
	if err != nil {
		respond.Internal(w, r, h.Log, err)
		return
	}
	respond.OK(w, http.StatusOK, events)
}

func changedFields(in model.UpdateTaskInput) []string {
	fields := []string{}
	if in.Title != nil {
		fields = append(fields, "title")
	}
	if in.Description.Set {
		fields = append(fields, "description")
	}
	if in.Status != nil {
		fields = append(fields, "status")
	}
	if in.Priority != nil {
		fields = append(fields, "priority")
	}
	if in.DueDate.Set {
		fields = append(fields, "dueDate")
	}
	return fields
}
