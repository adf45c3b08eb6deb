package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"mini-task-manager/internal/auth"
	"mini-task-manager/internal/db"
	"mini-task-manager/internal/model"
	"mini-task-manager/internal/taskquery"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Connect(db.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}

type fixture struct {
	store *Store
	admin model.Actor
	alice model.Actor
	bob   model.Actor
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := setupTestDB(t)
	users := auth.NewUsers(d)
	ctx := context.Background()

	mk := func(email string, role model.Role) model.Actor {
		u, err := users.Create(ctx, email, "password1", role)
		if err != nil {
			t.Fatal(err)
		}
		return u.Actor()
	}

	f := &fixture{
		store: NewStore(d),
		admin: mk("admin@example.com", model.RoleAdmin),
		alice: mk("alice@example.com", model.RoleUser),
		bob:   mk("bob@example.com", model.RoleUser),
		clock: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	// deterministic, strictly increasing timestamps
	f.store.now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	return f
}

func (f *fixture) create(t *testing.T, actor model.Actor, in model.CreateTaskInput) model.Task {
	t.Helper()
	task, err := f.store.Create(context.Background(), actor, in)
	if err != nil {
		t.Fatal(err)
	}
	return task
}

func TestStoreVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, f.alice, model.CreateTaskInput{Title: "alice task"})
	f.create(t, f.bob, model.CreateTaskInput{Title: "bob task"})

	page, err := f.store.List(ctx, f.alice, taskquery.Params{})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Data) != 1 || page.Data[0].ID != a.ID || page.Meta.Total != 1 {
		t.Fatalf("alice sees %+v", page)
	}

	page, _ = f.store.List(ctx, f.admin, taskquery.Params{})
	if page.Meta.Total != 2 {
		t.Fatalf("admin total = %d", page.Meta.Total)
	}

	if _, err := f.store.Get(ctx, f.bob, a.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("bob get = %v, want ErrForbidden", err)
	}
	if _, err := f.store.Update(ctx, f.bob, a.ID, model.UpdateTaskInput{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("bob update = %v, want ErrForbidden", err)
	}
	_, err = f.store.Get(ctx, f.alice, "missing")
	if !errors.Is(err, ErrNotFound) || err.Error() != `Task with id "missing" not found` {
		t.Fatalf("missing get = %v", err)
	}
}

func TestStoreCreateDefaults(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.alice, model.CreateTaskInput{Title: "x"})
	if task.Status != model.StatusTodo || task.Priority != model.PriorityMedium {
		t.Fatalf("defaults = %s/%s", task.Status, task.Priority)
	}
	if task.OwnerID != f.alice.ID || task.CreatedByID != f.alice.ID || task.UpdatedByID != f.alice.ID {
		t.Fatalf("ownership = %+v", task)
	}

	got, err := f.store.Get(context.Background(), f.alice, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(task) {
		t.Fatalf("stored %+v\nreturned %+v", got, task)
	}
}

func TestStoreSoftDeleteLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, f.alice, model.CreateTaskInput{Title: "x"})

	deleted, err := f.store.Delete(ctx, f.admin, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !deleted.IsDeleted() || *deleted.DeletedByID != f.admin.ID || deleted.UpdatedByID != f.admin.ID {
		t.Fatalf("deleted = %+v", deleted)
	}
	if !deleted.UpdatedAt.After(task.UpdatedAt) {
		t.Fatal("updatedAt did not advance")
	}

	if _, err := f.store.Delete(ctx, f.alice, task.ID); !errors.Is(err, ErrAlreadyDeleted) {
		t.Fatalf("second delete = %v", err)
	}
	title := "y"
	if _, err := f.store.Update(ctx, f.alice, task.ID, model.UpdateTaskInput{Title: &title}); !errors.Is(err, ErrDeletedTask) {
		t.Fatalf("update deleted = %v", err)
	}
	if _, err := f.store.Get(ctx, f.alice, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted = %v", err)
	}

	// only admins can ask for deleted rows
	page, _ := f.store.List(ctx, f.alice, taskquery.Params{IncludeDeleted: true})
	if page.Meta.Total != 0 {
		t.Fatalf("alice includeDeleted total = %d", page.Meta.Total)
	}
	page, _ = f.store.List(ctx, f.admin, taskquery.Params{IncludeDeleted: true})
	if page.Meta.Total != 1 || !page.Data[0].IsDeleted() {
		t.Fatalf("admin includeDeleted = %+v", page)
	}

	restored, err := f.store.Restore(ctx, f.alice, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if restored.IsDeleted() || restored.DeletedByID != nil {
		t.Fatalf("restored = %+v", restored)
	}
	if _, err := f.store.Restore(ctx, f.alice, task.ID); !errors.Is(err, ErrNotDeleted) {
		t.Fatalf("second restore = %v", err)
	}
}

func TestStoreUpdateClearsNullableFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	desc := "d"
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	task := f.create(t, f.alice, model.CreateTaskInput{Title: "x", Description: &desc, DueDate: &due})

	status := model.StatusDoing
	updated, err := f.store.Update(ctx, f.alice, task.ID, model.UpdateTaskInput{
		Status:      &status,
		Description: model.Null[string](),
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Description != nil || updated.DueDate == nil || updated.Status != model.StatusDoing {
		t.Fatalf("updated = %+v", updated)
	}
	got, _ := f.store.Get(ctx, f.alice, task.ID)
	if !got.Equal(updated) {
		t.Fatalf("stored %+v\nreturned %+v", got, updated)
	}
}

func TestStoreOrderingMatchesComparator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	inputs := []model.CreateTaskInput{
		{Title: "banana", Priority: model.PriorityHigh, Status: model.StatusDone, DueDate: &d2},
		{Title: "Apple", Priority: model.PriorityLow},
		{Title: "cherry", Priority: model.PriorityHigh, DueDate: &d1},
		{Title: "apple", Priority: model.PriorityMedium, Status: model.StatusDoing},
		{Title: "date", Priority: model.PriorityLow, Status: model.StatusDone},
	}
	for _, in := range inputs {
		f.create(t, f.alice, in)
	}

	for _, field := range taskquery.SortFields {
		for _, order := range []taskquery.SortOrder{taskquery.Asc, taskquery.Desc} {
			t.Run(fmt.Sprintf("%s_%s", field, order), func(t *testing.T) {
				p := taskquery.Params{SortBy: field, SortOrder: order, Limit: 100}
				page, err := f.store.List(ctx, f.alice, p)
				if err != nil {
					t.Fatal(err)
				}
				want := append([]model.Task(nil), page.Data...)
				taskquery.Sort(want, p)
				for i := range want {
					if want[i].ID != page.Data[i].ID {
						t.Fatalf("position %d: sql %q, comparator %q", i, page.Data[i].Title, want[i].Title)
					}
				}
			})
		}
	}
}

func TestStoreFiltersAndPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	desc := "contains 100% pure_juice"
	for i := 0; i < 11; i++ {
		f.create(t, f.alice, model.CreateTaskInput{Title: fmt.Sprintf("task %02d", i)})
	}
	f.create(t, f.alice, model.CreateTaskInput{Title: "Juice run", Description: &desc, Status: model.StatusDone})

	page, _ := f.store.List(ctx, f.alice, taskquery.Params{Page: 2})
	if page.Meta != (taskquery.Meta{Page: 2, Limit: 10, Total: 12, TotalPages: 2}) || len(page.Data) != 2 {
		t.Fatalf("page 2 = %+v (%d rows)", page.Meta, len(page.Data))
	}

	page, _ = f.store.List(ctx, f.alice, taskquery.Params{Search: "JUICE"})
	if page.Meta.Total != 1 {
		t.Fatalf("search total = %d", page.Meta.Total)
	}
	page, _ = f.store.List(ctx, f.alice, taskquery.Params{Search: "100%"})
	if page.Meta.Total != 1 {
		t.Fatalf("literal percent search total = %d", page.Meta.Total)
	}
	page, _ = f.store.List(ctx, f.alice, taskquery.Params{Search: "e_j"})
	if page.Meta.Total != 1 {
		t.Fatalf("literal underscore search total = %d", page.Meta.Total)
	}
	page, _ = f.store.List(ctx, f.alice, taskquery.Params{Search: "k_0"})
	if page.Meta.Total != 0 {
		t.Fatalf("underscore matched as wildcard: %d", page.Meta.Total)
	}

	page, _ = f.store.List(ctx, f.alice, taskquery.Params{Status: model.StatusDone})
	if page.Meta.Total != 1 || page.Data[0].Title != "Juice run" {
		t.Fatalf("status filter = %+v", page)
	}

	page, _ = f.store.List(ctx, f.alice, taskquery.Params{Status: model.StatusDoing})
	if page.Meta != (taskquery.Meta{Page: 1, Limit: 10, Total: 0, TotalPages: 1}) || len(page.Data) != 0 {
		t.Fatalf("empty result = %+v", page)
	}
}

func TestStoreSearchFoldsNonASCII(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	desc := "Réunion à l'ÉCOLE"
	task := f.create(t, f.alice, model.CreateTaskInput{Title: "ÉCOLE meeting"})
	f.create(t, f.alice, model.CreateTaskInput{Title: "groceries", Description: &desc})
	f.create(t, f.alice, model.CreateTaskInput{Title: "ecole without accent"})

	p := taskquery.Params{Search: "école", SortBy: taskquery.SortTitle, SortOrder: taskquery.Asc}
	page, err := f.store.List(ctx, f.alice, p)
	if err != nil {
		t.Fatal(err)
	}
	// byte order puts "groceries" before "ÉCOLE"
	if page.Meta.Total != 2 || page.Data[0].Title != "groceries" || page.Data[1].ID != task.ID {
		t.Fatalf("search = %+v", page)
	}
	for _, got := range page.Data {
		if !taskquery.Matches(got, p) {
			t.Errorf("server returned %q but Matches disagrees", got.Title)
		}
	}
}
