package taskquery

import (
	"net/url"
	"testing"
	"time"

	"mini-task-manager/internal/model"
)

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func task(id string, mod func(*model.Task)) model.Task {
	t := model.Task{
		ID:        id,
		Title:     id,
		Status:    model.StatusTodo,
		Priority:  model.PriorityMedium,
		OwnerID:   "u1",
		CreatedAt: base,
		UpdatedAt: base,
	}
	if mod != nil {
		mod(&t)
	}
	return t
}

func ids(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMatches(t *testing.T) {
	desc := "Buy MILK today"
	deletedAt := base
	withDesc := task("a", func(t *model.Task) { t.Title = "Groceries"; t.Description = &desc })
	deleted := task("b", func(t *model.Task) { t.DeletedAt = &deletedAt; t.DeletedByID = &t.OwnerID })

	cases := []struct {
		name string
		task model.Task
		p    Params
		want bool
	}{
		{"no filters", withDesc, Params{}, true},
		{"status mismatch", withDesc, Params{Status: model.StatusDone}, false},
		{"priority match", withDesc, Params{Priority: model.PriorityMedium}, true},
		{"search title case-insensitive", withDesc, Params{Search: "grocer"}, true},
		{"search description", withDesc, Params{Search: "milk"}, true},
		{"search miss", withDesc, Params{Search: "bread"}, false},
		{"search nil description", task("c", nil), Params{Search: "zzz"}, false},
		{"deleted hidden", deleted, Params{}, false},
		{"deleted shown", deleted, Params{IncludeDeleted: true}, true},
		{"active shown with includeDeleted", withDesc, Params{IncludeDeleted: true}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Matches(tc.task, tc.p); got != tc.want {
				t.Errorf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSortDueDateNilPlacement(t *testing.T) {
	d1 := base.Add(24 * time.Hour)
	d2 := base.Add(48 * time.Hour)
	tasks := []model.Task{
		task("none", nil),
		task("late", func(t *model.Task) { t.DueDate = &d2 }),
		task("early", func(t *model.Task) { t.DueDate = &d1 }),
	}

	Sort(tasks, Params{SortBy: SortDueDate, SortOrder: Asc})
	if got, want := ids(tasks), []string{"early", "late", "none"}; !equalIDs(got, want) {
		t.Errorf("asc = %v, want %v", got, want)
	}

	Sort(tasks, Params{SortBy: SortDueDate, SortOrder: Desc})
	if got, want := ids(tasks), []string{"none", "late", "early"}; !equalIDs(got, want) {
		t.Errorf("desc = %v, want %v", got, want)
	}
}

func TestSortOrdinalsAndTieBreaks(t *testing.T) {
	tasks := []model.Task{
		task("b", func(t *model.Task) { t.Priority = model.PriorityLow }),
		task("a", func(t *model.Task) { t.Priority = model.PriorityLow }),
		task("c", func(t *model.Task) { t.Priority = model.PriorityHigh; t.CreatedAt = base.Add(time.Minute) }),
		task("d", func(t *model.Task) { t.Priority = model.PriorityHigh }),
	}

	Sort(tasks, Params{SortBy: SortPriority, SortOrder: Asc})
	// equal priority: newer createdAt first, then id ascending
	if got, want := ids(tasks), []string{"a", "b", "c", "d"}; !equalIDs(got, want) {
		t.Errorf("priority asc = %v, want %v", got, want)
	}

	Sort(tasks, Params{SortBy: SortPriority, SortOrder: Desc})
	if got, want := ids(tasks), []string{"c", "d", "a", "b"}; !equalIDs(got, want) {
		t.Errorf("priority desc = %v, want %v", got, want)
	}
}

func TestSortStatusAndTitle(t *testing.T) {
	tasks := []model.Task{
		task("1", func(t *model.Task) { t.Status = model.StatusDone; t.Title = "b" }),
		task("2", func(t *model.Task) { t.Status = model.StatusTodo; t.Title = "B" }),
		task("3", func(t *model.Task) { t.Status = model.StatusDoing; t.Title = "a" }),
	}
	Sort(tasks, Params{SortBy: SortStatus, SortOrder: Asc})
	if got, want := ids(tasks), []string{"2", "3", "1"}; !equalIDs(got, want) {
		t.Errorf("status asc = %v, want %v", got, want)
	}
	// byte order: upper case before lower case
	Sort(tasks, Params{SortBy: SortTitle, SortOrder: Asc})
	if got, want := ids(tasks), []string{"2", "3", "1"}; !equalIDs(got, want) {
		t.Errorf("title asc = %v, want %v", got, want)
	}
}

func TestCompareIsStrict(t *testing.T) {
	a := task("a", nil)
	b := task("b", nil)
	for _, f := range SortFields {
		for _, o := range []SortOrder{Asc, Desc} {
			p := Params{SortBy: f, SortOrder: o}
			if Compare(a, b, p) == 0 || Compare(a, b, p) != -Compare(b, a, p) {
				t.Errorf("%s %s: compare is not a strict order", f, o)
			}
			if Compare(a, a, p) != 0 {
				t.Errorf("%s %s: compare(a, a) != 0", f, o)
			}
		}
	}
}

func TestParse(t *testing.T) {
	p, fe := Parse(url.Values{"status": {"done"}, "page": {"2"}, "search": {"  x "}})
	if fe != nil {
		t.Fatalf("unexpected errors: %v", fe)
	}
	want := Params{Status: model.StatusDone, Search: "x", SortBy: SortCreatedAt, SortOrder: Desc, Page: 2, Limit: 10}
	if p != want {
		t.Errorf("Parse = %+v, want %+v", p, want)
	}

	_, fe = Parse(url.Values{"limit": {"101"}, "page": {"0"}, "sortBy": {"owner"}, "includeDeleted": {"yes"}})
	for _, field := range []string{"limit", "page", "sortBy", "includeDeleted"} {
		if len(fe[field]) == 0 {
			t.Errorf("expected an error for %s, got %v", field, fe)
		}
	}
}

func TestKeyIsCanonical(t *testing.T) {
	a := Params{Status: model.StatusDone}
	b := Params{Status: model.StatusDone, SortBy: SortCreatedAt, SortOrder: Desc, Page: 1, Limit: 10}
	if a.Key() != b.Key() {
		t.Errorf("keys differ: %q vs %q", a.Key(), b.Key())
	}
	if a.Key() == a.WithPage(2).Key() {
		t.Error("pages should have distinct keys")
	}
	if a.ViewKey() != a.WithPage(2).ViewKey() {
		t.Error("pages of one view should share a view key")
	}

	round, fe := Parse(b.Values())
	if fe != nil || round != b {
		t.Errorf("round trip = %+v (%v), want %+v", round, fe, b)
	}
}

func TestMeta(t *testing.T) {
	cases := []struct{ total, limit, want int }{
		{0, 10, 1}, {1, 10, 1}, {10, 10, 1}, {11, 10, 2}, {25, 5, 5},
	}
	for _, c := range cases {
		if got := TotalPages(c.total, c.limit); got != c.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", c.total, c.limit, got, c.want)
		}
	}

	m := NewMeta(2, 10, 11).WithTotal(10)
	if m != (Meta{Page: 1, Limit: 10, Total: 10, TotalPages: 1}) {
		t.Errorf("WithTotal = %+v", m)
	}
	if p := ClampPage(Params{Page: 2}, m); p.Page != 1 {
		t.Errorf("ClampPage page = %d", p.Page)
	}
}

func TestForActor(t *testing.T) {
	p := Params{IncludeDeleted: true}
	if p.ForActor(model.Actor{Role: model.RoleUser}).IncludeDeleted {
		t.Error("users cannot see deleted tasks")
	}
	if !p.ForActor(model.Actor{Role: model.RoleAdmin}).IncludeDeleted {
		t.Error("admins can see deleted tasks")
	}
}
