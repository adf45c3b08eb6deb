package taskquery

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"mini-task-manager/internal/model"
)

// Matches reports whether t would appear in the view p selects, ignoring
// pagination. Pass params already narrowed with ForActor.
func Matches(t model.Task, p Params) bool {
	if t.IsDeleted() && !p.IncludeDeleted {
		return false
	}
	if p.Status != "" && t.Status != p.Status {
		return false
	}
	if p.Priority != "" && t.Priority != p.Priority {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(p.Search)); q != "" {
		if strings.Contains(strings.ToLower(t.Title), q) {
			return true
		}
		if t.Description != nil && strings.Contains(strings.ToLower(*t.Description), q) {
			return true
		}
		return false
	}
	return true
}

// Compare orders tasks for the view p. It is a strict total order: ties on
// the sort field fall back to createdAt descending, then id ascending.
func Compare(a, b model.Task, p Params) int {
	return compare(a, b, p.Normalize())
}

// Sort orders tasks in place for the view p.
func Sort(tasks []model.Task, p Params) {
	p = p.Normalize()
	slices.SortStableFunc(tasks, func(a, b model.Task) int {
		return compare(a, b, p)
	})
}

func compare(a, b model.Task, p Params) int {
	dir := 1
	if p.SortOrder == Desc {
		dir = -1
	}
	if c := comparePrimary(a, b, p.SortBy); c != 0 {
		return c * dir
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func comparePrimary(a, b model.Task, field SortField) int {
	switch field {
	case SortTitle:
		return strings.Compare(a.Title, b.Title)
	case SortDueDate:
		return compareDue(a.DueDate, b.DueDate)
	case SortPriority:
		return cmp.Compare(a.Priority.Rank(), b.Priority.Rank())
	case SortStatus:
		return cmp.Compare(a.Status.Rank(), b.Status.Rank())
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// compareDue treats a missing due date as later than any date, so it sorts
// last ascending and first descending.
func compareDue(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}
