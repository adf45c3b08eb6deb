package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"mini-task-manager/internal/model"
	"mini-task-manager/internal/optimistic"
	"mini-task-manager/internal/querycache"
	"mini-task-manager/internal/taskquery"
)

var errNotSupported = errors.New("not supported")

type stubAPI struct {
	mu    sync.Mutex
	tasks []model.Task
}

func (s *stubAPI) ListTasks(ctx context.Context, p taskquery.Params) (taskquery.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = p.Normalize()
	var all []model.Task
	for _, t := range s.tasks {
		if taskquery.Matches(t, p) {
			all = append(all, t.Clone())
		}
	}
	taskquery.Sort(all, p)
	pg := taskquery.Page{Data: []model.Task{}, Meta: taskquery.NewMeta(p.Page, p.Limit, len(all))}
	for i := p.Offset(); i < len(all) && i < p.Offset()+p.Limit; i++ {
		pg.Data = append(pg.Data, all[i])
	}
	return pg, nil
}

func (s *stubAPI) UpdateTask(ctx context.Context, id string, in model.UpdateTaskInput) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks[i] = in.Apply(t).Touch("u1", time.Now().UTC())
			return s.tasks[i].Clone(), nil
		}
	}
	return model.Task{}, errNotSupported
}

func (s *stubAPI) GetTask(context.Context, string) (model.Task, error) {
	return model.Task{}, errNotSupported
}

func (s *stubAPI) CreateTask(context.Context, model.CreateTaskInput) (model.Task, error) {
	return model.Task{}, errNotSupported
}

func (s *stubAPI) DeleteTask(context.Context, string) (model.Task, error) {
	return model.Task{}, errNotSupported
}

func (s *stubAPI) RestoreTask(context.Context, string) (model.Task, error) {
	return model.Task{}, errNotSupported
}

func newTestModel(t *testing.T, n int) (*Model, *stubAPI) {
	t.Helper()
	api := &stubAPI{}
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	actor := model.Actor{ID: "u1", Role: model.RoleUser}
	for i := 1; i <= n; i++ {
		at = at.Add(time.Minute)
		api.tasks = append(api.tasks, model.CreateTaskInput{Title: fmt.Sprintf("task %d", i)}.
			NewTask(fmt.Sprintf("t%d", i), actor, at))
	}
	coord := optimistic.New(api, querycache.New(), nil)
	t.Cleanup(coord.Close)
	m := New(context.Background(), coord, actor, 10)
	return m, api
}

func press(m *Model, k string) tea.Cmd {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

func TestLoadAndRender(t *testing.T) {
	m, _ := newTestModel(t, 3)
	m.Update(m.load()())

	view := m.View()
	for _, want := range []string{"task 1", "task 3", "page 1/1 · 3 tasks", "status: all"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if m.page.Data[0].Title != "task 3" {
		t.Fatalf("newest first, got %q", m.page.Data[0].Title)
	}

	press(m, "j")
	if m.cursor != 1 {
		t.Fatalf("cursor = %d", m.cursor)
	}
}

func TestStatusKeyUpdatesOptimistically(t *testing.T) {
	m, api := newTestModel(t, 2)
	m.Update(m.load()())

	cmd := press(m, "s")
	if cmd == nil {
		t.Fatal("status key should start a mutation")
	}
	m.Update(cmd())
	if !strings.Contains(m.notice, "Updated: task 2") {
		t.Fatalf("notice = %q err = %q", m.notice, m.err)
	}

	m.Update(cacheChangedMsg{})
	if m.page.Data[0].Status != model.StatusDoing {
		t.Fatalf("cached status = %s", m.page.Data[0].Status)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.tasks[1].Status != model.StatusDoing {
		t.Fatal("server not updated")
	}
}

func TestFailedMutationShowsServerMessage(t *testing.T) {
	m, _ := newTestModel(t, 1)
	m.Update(m.load()())

	cmd := press(m, "d")
	m.Update(cmd())
	if m.err != errNotSupported.Error() {
		t.Fatalf("err = %q", m.err)
	}
	m.Update(cacheChangedMsg{})
	if len(m.page.Data) != 1 {
		t.Fatal("failed delete should be rolled back")
	}
}

func TestFilterSortAndSearch(t *testing.T) {
	m, _ := newTestModel(t, 1)
	m.Update(m.load()())

	press(m, "f")
	if m.Params().Status != model.StatusTodo || m.Params().Page != 1 {
		t.Fatalf("params = %+v", m.Params())
	}
	press(m, "o")
	if m.Params().SortBy != taskquery.SortDueDate {
		t.Fatalf("sortBy = %s", m.Params().SortBy)
	}
	press(m, "O")
	if m.Params().SortOrder != taskquery.Asc {
		t.Fatalf("sortOrder = %s", m.Params().SortOrder)
	}

	press(m, "/")
	for _, r := range "report" {
		press(m, string(r))
	}
	press(m, "enter")
	if m.Params().Search != "report" || m.mode != modeBrowse {
		t.Fatalf("search = %q mode = %d", m.Params().Search, m.mode)
	}

	press(m, "x")
	if m.Params().IncludeDeleted || m.err == "" {
		t.Fatal("non-admins cannot show deleted tasks")
	}
}

func TestStalePageIgnoredAndPageClamped(t *testing.T) {
	m, _ := newTestModel(t, 1)
	m.Update(pageMsg{params: taskquery.Params{Status: model.StatusDone}.Normalize(), page: taskquery.Page{Meta: taskquery.NewMeta(1, 10, 9)}})
	if m.loaded {
		t.Fatal("page for another view should be ignored")
	}

	m.params.Page = 2
	cmd := m.show(taskquery.Page{Data: []model.Task{}, Meta: taskquery.Meta{Page: 1, Limit: 10, Total: 10, TotalPages: 1}})
	if m.params.Page != 1 || cmd == nil {
		t.Fatalf("page = %d", m.params.Page)
	}
}

func TestAddRequiresTitle(t *testing.T) {
	m, _ := newTestModel(t, 0)
	press(m, "a")
	if m.mode != modeAdd {
		t.Fatal("add mode not entered")
	}
	press(m, "enter")
	if m.err != "Title cannot be empty" || m.mode != modeBrowse {
		t.Fatalf("err = %q", m.err)
	}
}
