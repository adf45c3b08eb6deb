package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mini-task-manager/internal/db"
	"mini-task-manager/internal/model"
	"mini-task-manager/internal/taskquery"
)

var (
	ErrNotFound       = errors.New("task not found")
	ErrForbidden      = errors.New("You do not have permission for this resource")
	ErrDeletedTask    = errors.New("Cannot update a deleted task. Restore it first.")
	ErrAlreadyDeleted = errors.New("Task is already deleted")
	ErrNotDeleted     = errors.New("Task is not deleted")
)

// NotFoundError names the missing task. It matches ErrNotFound.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Task with id %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Store persists tasks. Every method checks the actor's access itself.
type Store struct {
	db  *db.DB
	now func() time.Time
}

func NewStore(d *db.DB) *Store {
	return &Store{db: d, now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }}
}

const taskColumns = `id, title, description, status, priority, due_date, owner_id,
	created_by_id, updated_by_id, deleted_at, deleted_by_id, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (model.Task, error) {
	var (
		t         model.Task
		desc      sql.NullString
		deletedBy sql.NullString
		due       sql.NullTime
		deletedAt sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Title, &desc, &t.Status, &t.Priority, &due, &t.OwnerID,
		&t.CreatedByID, &t.UpdatedByID, &deletedAt, &deletedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Task{}, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	if deletedBy.Valid {
		t.DeletedByID = &deletedBy.String
	}
	if due.Valid {
		d := due.Time.UTC()
		t.DueDate = &d
	}
	if deletedAt.Valid {
		d := deletedAt.Time.UTC()
		t.DeletedAt = &d
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

// List returns one page of the tasks visible to actor. Non-admins only see
// their own tasks and never deleted ones.
func (s *Store) List(ctx context.Context, actor model.Actor, p taskquery.Params) (taskquery.Page, error) {
	p = p.Normalize().ForActor(actor)
	where, args := s.where(actor, p)

	var page taskquery.Page
	err := s.db.Tx(ctx, func(tx *sql.Tx) error {
		var total int
		if err := tx.QueryRowContext(ctx, s.db.Rebind(`SELECT COUNT(*) FROM tasks`+where), args...).Scan(&total); err != nil {
			return fmt.Errorf("count tasks: %w", err)
		}

		q := `SELECT ` + taskColumns + ` FROM tasks` + where + ` ORDER BY ` + s.orderBy(p) + ` LIMIT ? OFFSET ?`
		rows, err := tx.QueryContext(ctx, s.db.Rebind(q), append(args, p.Limit, p.Offset())...)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		defer rows.Close()

		data := make([]model.Task, 0, p.Limit)
		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return fmt.Errorf("scan task: %w", err)
			}
			data = append(data, t)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		page = taskquery.Page{Data: data, Meta: taskquery.NewMeta(p.Page, p.Limit, total)}
		return nil
	})
	return page, err
}

func (s *Store) where(actor model.Actor, p taskquery.Params) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !actor.IsAdmin() {
		conds = append(conds, "owner_id = ?")
		args = append(args, actor.ID)
	}
	if !p.IncludeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if p.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, p.Status)
	}
	if p.Priority != "" {
		conds = append(conds, "priority = ?")
		args = append(args, p.Priority)
	}
	if p.Search != "" {
		lower := s.db.Lower()
		conds = append(conds, `(`+lower+`(title) LIKE ? ESCAPE '\' OR `+lower+`(COALESCE(description, '')) LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(strings.ToLower(p.Search)) + "%"
		args = append(args, pattern, pattern)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// orderBy mirrors taskquery.Compare so the server and the client cache agree
// on positions.
func (s *Store) orderBy(p taskquery.Params) string {
	dir := "ASC"
	if p.SortOrder == taskquery.Desc {
		dir = "DESC"
	}
	coll := s.db.BinaryCollation()

	var primary string
	switch p.SortBy {
	case taskquery.SortTitle:
		primary = "title" + coll + " " + dir
	case taskquery.SortDueDate:
		// missing due dates count as the latest
		primary = "(due_date IS NULL) " + dir + ", due_date " + dir
	case taskquery.SortPriority:
		primary = "CASE priority WHEN 'low' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END " + dir
	case taskquery.SortStatus:
		primary = "CASE status WHEN 'todo' THEN 0 WHEN 'doing' THEN 1 ELSE 2 END " + dir
	default:
		primary = "created_at " + dir
	}
	return primary + ", created_at DESC, id" + coll + " ASC"
}

func (s *Store) load(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, id string, lock bool) (model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	if lock {
		query += s.db.ForUpdate()
	}
	t, err := scanTask(q.QueryRowContext(ctx, s.db.Rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, &NotFoundError{ID: id}
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("select task: %w", err)
	}
	return t, nil
}

// Find returns a task the actor may access, deleted or not.
func (s *Store) Find(ctx context.Context, actor model.Actor, id string) (model.Task, error) {
	t, err := s.load(ctx, s.db, id, false)
	if err != nil {
		return model.Task{}, err
	}
	if !actor.CanAccess(t.OwnerID) {
		return model.Task{}, ErrForbidden
	}
	return t, nil
}

// Get returns a live task the actor may access. Deleted tasks are reported
// as missing.
func (s *Store) Get(ctx context.Context, actor model.Actor, id string) (model.Task, error) {
	t, err := s.Find(ctx, actor, id)
	if err != nil {
		return model.Task{}, err
	}
	if t.IsDeleted() {
		return model.Task{}, &NotFoundError{ID: id}
	}
	return t, nil
}

func (s *Store) Create(ctx context.Context, actor model.Actor, in model.CreateTaskInput) (model.Task, error) {
	t := in.NewTask(uuid.NewString(), actor, s.now())
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), t.ID, t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.OwnerID,
		t.CreatedByID, t.UpdatedByID, t.DeletedAt, t.DeletedByID, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return model.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// Update applies a partial update. Deleted tasks must be restored first.
func (s *Store) Update(ctx context.Context, actor model.Actor, id string, in model.UpdateTaskInput) (model.Task, error) {
	return s.modify(ctx, actor, id, func(cur model.Task, now time.Time) (model.Task, error) {
		if cur.IsDeleted() {
			return model.Task{}, ErrDeletedTask
		}
		return in.Apply(cur).Touch(actor.ID, now), nil
	})
}

// Delete soft-deletes a task.
func (s *Store) Delete(ctx context.Context, actor model.Actor, id string) (model.Task, error) {
	return s.modify(ctx, actor, id, func(cur model.Task, now time.Time) (model.Task, error) {
		if cur.IsDeleted() {
			return model.Task{}, ErrAlreadyDeleted
		}
		return cur.MarkDeleted(actor.ID, now), nil
	})
}

func (s *Store) Restore(ctx context.Context, actor model.Actor, id string) (model.Task, error) {
	return s.modify(ctx, actor, id, func(cur model.Task, now time.Time) (model.Task, error) {
		if !cur.IsDeleted() {
			return model.Task{}, ErrNotDeleted
		}
		return cur.MarkRestored(actor.ID, now), nil
	})
}

// modify loads, checks and rewrites one task inside a transaction.
func (s *Store) modify(ctx context.Context, actor model.Actor, id string, change func(model.Task, time.Time) (model.Task, error)) (model.Task, error) {
	var out model.Task
	err := s.db.Tx(ctx, func(tx *sql.Tx) error {
		cur, err := s.load(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if !actor.CanAccess(cur.OwnerID) {
			return ErrForbidden
		}
		next, err := change(cur, s.now())
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, s.db.Rebind(`
			UPDATE tasks
			SET title = ?, description = ?, status = ?, priority = ?, due_date = ?,
				updated_by_id = ?, deleted_at = ?, deleted_by_id = ?, updated_at = ?
			WHERE id = ?
		`), next.Title, next.Description, next.Status, next.Priority, next.DueDate,
			next.UpdatedByID, next.DeletedAt, next.DeletedByID, next.UpdatedAt, next.ID)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		out = next
		return nil
	})
	return out, err
}
