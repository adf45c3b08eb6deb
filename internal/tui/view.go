package tui

import (
	"fmt"
	"strings"

	"mini-task-manager/internal/model"
	"mini-task-manager/internal/optimistic"
)

const maxTitle = 48

func (m *Model) View() string {
	var b strings.Builder
	s := m.styles

	b.WriteString(s.title.Render("Tasks"))
	b.WriteString("  ")
	b.WriteString(s.muted.Render(m.describeView()))
	b.WriteString("\n\n")

	switch {
	case !m.loaded && m.loading:
		b.WriteString(m.spin.View() + " Loading tasks...\n")
	case len(m.page.Data) == 0:
		b.WriteString(s.muted.Render("No tasks match this view.") + "\n")
	default:
		for i, t := range m.page.Data {
			line := m.row(t)
			if i == m.cursor {
				line = s.selected.Render("> " + line)
			} else {
				line = "  " + line
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n")
	meta := m.page.Meta
	footer := fmt.Sprintf("page %d/%d · %d tasks", max(meta.Page, 1), max(meta.TotalPages, 1), meta.Total)
	if m.loading && m.loaded {
		footer += " " + m.spin.View()
	}
	b.WriteString(s.muted.Render(footer) + "\n")

	switch m.mode {
	case modeAdd:
		b.WriteString("New task: " + m.input.View() + "\n")
	case modeSearch:
		b.WriteString("Search: " + m.input.View() + "\n")
	}
	if m.err != "" {
		b.WriteString(s.err.Render(m.err) + "\n")
	} else if m.notice != "" {
		b.WriteString(s.notice.Render(m.notice) + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m *Model) describeView() string {
	p := m.params
	parts := []string{
		"status: " + orAll(string(p.Status)),
		"priority: " + orAll(string(p.Priority)),
		fmt.Sprintf("sort: %s %s", p.SortBy, p.SortOrder),
	}
	if p.Search != "" {
		parts = append(parts, fmt.Sprintf("search: %q", p.Search))
	}
	if p.IncludeDeleted {
		parts = append(parts, "with deleted")
	}
	return strings.Join(parts, " · ")
}

func orAll(s string) string {
	if s == "" {
		return "all"
	}
	return s
}

func (m *Model) row(t model.Task) string {
	s := m.styles
	status := s.status[string(t.Status)].Render(fmt.Sprintf("%-5s", t.Status))
	priority := s.priority[string(t.Priority)].Render(fmt.Sprintf("%-6s", t.Priority))

	title := t.Title
	if r := []rune(title); len(r) > maxTitle {
		title = string(r[:maxTitle-1]) + "…"
	}
	title = fmt.Sprintf("%-*s", maxTitle, title)
	if t.IsDeleted() {
		title = s.deleted.Render(title)
	}

	due := ""
	if t.DueDate != nil {
		due = "due " + t.DueDate.Format("2006-01-02")
	}
	line := fmt.Sprintf("[%s] %s %s %s", status, priority, title, s.muted.Render(due))
	if optimistic.IsTemporaryID(t.ID) {
		line += " " + s.pending.Render("saving...")
	}
	return line
}
