// Package tui is the terminal task list. It reads pages through the
// optimistic coordinator and redraws whenever the cache changes, so writes
// show up before the server answers.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"mini-task-manager/internal/model"
	"mini-task-manager/internal/optimistic"
	"mini-task-manager/internal/taskquery"
)

type mode int

const (
	modeBrowse mode = iota
	modeSearch
	modeAdd
)

// Model is the bubbletea model for the task list.
type Model struct {
	ctx    context.Context
	coord  *optimistic.Coordinator
	actor  model.Actor
	keys   KeyMap
	help   help.Model
	input  textinput.Model
	spin   spinner.Model
	styles styles

	params  taskquery.Params
	page    taskquery.Page
	loaded  bool
	loading bool
	cursor  int
	mode    mode
	notice  string
	err     string

	width  int
	height int

	changes chan struct{}
	unsub   func()
}

func New(ctx context.Context, coord *optimistic.Coordinator, actor model.Actor, limit int) *Model {
	input := textinput.New()
	input.CharLimit = 200

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return &Model{
		ctx:     ctx,
		coord:   coord,
		actor:   actor,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		input:   input,
		spin:    spin,
		styles:  newStyles(),
		params:  taskquery.Params{Limit: limit}.Normalize(),
		changes: make(chan struct{}, 1),
	}
}

// Params is the view currently shown.
func (m *Model) Params() taskquery.Params {
	return m.params
}

type pageMsg struct {
	params taskquery.Params
	page   taskquery.Page
	err    error
}

type mutationMsg struct {
	kind optimistic.Kind
	task model.Task
	err  error
}

type cacheChangedMsg struct{}

func (m *Model) Init() tea.Cmd {
	m.unsub = m.coord.Cache().Subscribe(func() {
		select {
		case m.changes <- struct{}{}:
		default:
		}
	})
	return tea.Batch(m.load(), m.waitForChange(), m.spin.Tick)
}

func (m *Model) load() tea.Cmd {
	m.loading = true
	params := m.params
	return func() tea.Msg {
		pg, err := m.coord.Query(m.ctx, params)
		return pageMsg{params: params, page: pg, err: err}
	}
}

func (m *Model) waitForChange() tea.Cmd {
	ch := m.changes
	return func() tea.Msg {
		<-ch
		return cacheChangedMsg{}
	}
}

func (m *Model) quit() tea.Cmd {
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}
	return tea.Quit
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case pageMsg:
		if msg.params.Key() != m.params.Key() {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = describe(msg.err)
			return m, nil
		}
		return m, m.show(msg.page)

	case cacheChangedMsg:
		cmds := []tea.Cmd{m.waitForChange()}
		if e, ok := m.coord.Cache().List(m.params); ok {
			cmds = append(cmds, m.show(e.Page))
		}
		return m, tea.Batch(cmds...)

	case mutationMsg:
		if msg.err != nil {
			m.err = describe(msg.err)
			m.notice = ""
		} else {
			m.err = ""
			m.notice = fmt.Sprintf("%s: %s", verb(msg.kind), msg.task.Title)
		}
		return m, nil

	case tea.KeyMsg:
		if m.mode != modeBrowse {
			return m.updateInput(msg)
		}
		return m, m.updateBrowse(msg)
	}
	return m, nil
}

// show displays pg. When the page shrank away, the view moves back to the
// last page that still exists.
func (m *Model) show(pg taskquery.Page) tea.Cmd {
	m.page = pg
	m.loaded = true
	if m.cursor >= len(pg.Data) {
		m.cursor = max(len(pg.Data)-1, 0)
	}
	if clamped := taskquery.ClampPage(m.params, pg.Meta); clamped.Page != m.params.Page {
		m.params = clamped
		return m.load()
	}
	return nil
}

func (m *Model) selected() (model.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.page.Data) {
		return model.Task{}, false
	}
	t := m.page.Data[m.cursor]
	// the server does not know provisional rows yet
	if optimistic.IsTemporaryID(t.ID) {
		return model.Task{}, false
	}
	return t, true
}

func (m *Model) mutate(kind optimistic.Kind, fn func(context.Context) (model.Task, error)) tea.Cmd {
	m.err, m.notice = "", ""
	ctx := m.ctx
	return func() tea.Msg {
		t, err := fn(ctx)
		return mutationMsg{kind: kind, task: t, err: err}
	}
}

func (m *Model) setView(p taskquery.Params) tea.Cmd {
	p.Page = 1
	m.params = p.Normalize()
	m.cursor = 0
	return m.load()
}

func (m *Model) updateBrowse(msg tea.KeyMsg) tea.Cmd {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m.quit()
	case key.Matches(msg, k.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, k.Down):
		if m.cursor < len(m.page.Data)-1 {
			m.cursor++
		}
	case key.Matches(msg, k.NextPage):
		if m.page.HasNext() {
			m.params.Page++
			m.cursor = 0
			return m.load()
		}
	case key.Matches(msg, k.PrevPage):
		if m.params.Page > 1 {
			m.params.Page--
			m.cursor = 0
			return m.load()
		}
	case key.Matches(msg, k.Add):
		m.mode = modeAdd
		m.input.Reset()
		m.input.Placeholder = "Title of the new task"
		m.input.Focus()
		return textinput.Blink
	case key.Matches(msg, k.Search):
		m.mode = modeSearch
		m.input.SetValue(m.params.Search)
		m.input.Placeholder = "Search title or description"
		m.input.Focus()
		return textinput.Blink
	case key.Matches(msg, k.Status):
		if t, ok := m.selected(); ok && !t.IsDeleted() {
			next := t.Status.Next()
			return m.mutate(optimistic.KindUpdate, func(ctx context.Context) (model.Task, error) {
				return m.coord.Update(ctx, t.ID, model.UpdateTaskInput{Status: &next}, m.actor)
			})
		}
	case key.Matches(msg, k.Priority):
		if t, ok := m.selected(); ok && !t.IsDeleted() {
			next := t.Priority.Next()
			return m.mutate(optimistic.KindUpdate, func(ctx context.Context) (model.Task, error) {
				return m.coord.Update(ctx, t.ID, model.UpdateTaskInput{Priority: &next}, m.actor)
			})
		}
	case key.Matches(msg, k.Delete):
		if t, ok := m.selected(); ok {
			return m.mutate(optimistic.KindDelete, func(ctx context.Context) (model.Task, error) {
				return m.coord.Delete(ctx, t.ID, m.actor)
			})
		}
	case key.Matches(msg, k.Restore):
		if t, ok := m.selected(); ok {
			return m.mutate(optimistic.KindRestore, func(ctx context.Context) (model.Task, error) {
				return m.coord.Restore(ctx, t.ID, m.actor)
			})
		}
	case key.Matches(msg, k.Filter):
		p := m.params
		p.Status = nextStatusFilter(p.Status)
		return m.setView(p)
	case key.Matches(msg, k.Sort):
		p := m.params
		p.SortBy = nextSortField(p.SortBy)
		return m.setView(p)
	case key.Matches(msg, k.Order):
		p := m.params
		if p.SortOrder == taskquery.Asc {
			p.SortOrder = taskquery.Desc
		} else {
			p.SortOrder = taskquery.Asc
		}
		return m.setView(p)
	case key.Matches(msg, k.Deleted):
		if m.actor.IsAdmin() {
			p := m.params
			p.IncludeDeleted = !p.IncludeDeleted
			return m.setView(p)
		}
		m.err = "Only admins can show deleted tasks"
	case key.Matches(msg, k.Refresh):
		m.coord.Cache().Invalidate()
		return m.load()
	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return nil
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		value := strings.TrimSpace(m.input.Value())
		current := m.mode
		m.mode = modeBrowse
		m.input.Blur()
		if current == modeSearch {
			p := m.params
			p.Search = value
			return m, m.setView(p)
		}
		if value == "" {
			m.err = "Title cannot be empty"
			return m, nil
		}
		in := model.CreateTaskInput{Title: value}
		return m, m.mutate(optimistic.KindCreate, func(ctx context.Context) (model.Task, error) {
			return m.coord.Create(ctx, in, m.actor)
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func nextStatusFilter(s model.Status) model.Status {
	if s == "" {
		return model.Statuses[0]
	}
	for i, v := range model.Statuses {
		if v == s && i+1 < len(model.Statuses) {
			return model.Statuses[i+1]
		}
	}
	return ""
}

func nextSortField(f taskquery.SortField) taskquery.SortField {
	for i, v := range taskquery.SortFields {
		if v == f {
			return taskquery.SortFields[(i+1)%len(taskquery.SortFields)]
		}
	}
	return taskquery.SortCreatedAt
}

func verb(k optimistic.Kind) string {
	switch k {
	case optimistic.KindCreate:
		return "Created"
	case optimistic.KindDelete:
		return "Deleted"
	case optimistic.KindRestore:
		return "Restored"
	}
	return "Updated"
}

func describe(err error) string {
	if optimistic.Classify(err) == optimistic.FailureUnauthorized {
		return "Session expired, run `taskctl login`"
	}
	return err.Error()
}
