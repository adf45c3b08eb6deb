package optimistic

import (
	"strings"
	"testing"
	"time"

	"mini-task-manager/internal/model"
	"mini-task-manager/internal/querycache"
	"mini-task-manager/internal/taskquery"
)

var (
	alice = model.Actor{ID: "alice", Role: model.RoleUser}
	admin = model.Actor{ID: "admin", Role: model.RoleAdmin}
	base  = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
)

func task(id string, status model.Status, minute int) model.Task {
	at := base.Add(time.Duration(minute) * time.Minute)
	return model.Task{
		ID: id, Title: id, Status: status, Priority: model.PriorityMedium,
		OwnerID: "alice", CreatedByID: "alice", UpdatedByID: "alice",
		CreatedAt: at, UpdatedAt: at,
	}
}

func entry(p taskquery.Params, meta taskquery.Meta, tasks ...model.Task) querycache.ListEntry {
	p = p.Normalize()
	data := append([]model.Task{}, tasks...)
	return querycache.ListEntry{Key: p.Key(), Params: p, Page: taskquery.Page{Data: data, Meta: meta}}
}

func TestCreateOnlyTouchesMatchingViews(t *testing.T) {
	done := taskquery.Params{Status: model.StatusDone}
	e := entry(done, taskquery.NewMeta(1, 10, 3),
		task("c", model.StatusDone, 3), task("b", model.StatusDone, 2), task("a", model.StatusDone, 1))

	b := planCreate([]querycache.ListEntry{e}, alice, task("todo", model.StatusTodo, 10))
	if len(b.Lists) != 0 {
		t.Fatalf("todo task should not touch a done view: %+v", b.Lists)
	}

	b = planCreate([]querycache.ListEntry{e}, alice, task("new", model.StatusDone, 10))
	pg, ok := b.Lists[e.Key]
	if !ok {
		t.Fatal("done view not updated")
	}
	if pg.Meta.Total != 4 || pg.Meta.TotalPages != 1 {
		t.Fatalf("meta = %+v", pg.Meta)
	}
	if got := ids(pg); got != "new,c,b,a" {
		t.Fatalf("order = %s", got)
	}
	if ids(e.Page) != "c,b,a" {
		t.Fatal("plan modified the input entry")
	}
}

func TestCreateTruncatesFirstPageAndSkipsLaterPages(t *testing.T) {
	p1 := taskquery.Params{Limit: 2}
	p2 := taskquery.Params{Limit: 2, Page: 2}
	e1 := entry(p1, taskquery.NewMeta(1, 2, 3), task("c", model.StatusTodo, 3), task("b", model.StatusTodo, 2))
	e2 := entry(p2, taskquery.NewMeta(2, 2, 3), task("a", model.StatusTodo, 1))

	b := planCreate([]querycache.ListEntry{e1, e2}, alice, task("new", model.StatusTodo, 10))
	if got := ids(b.Lists[e1.Key]); got != "new,c" {
		t.Fatalf("first page = %s", got)
	}
	pg2 := b.Lists[e2.Key]
	if ids(pg2) != "a" || pg2.Meta.Total != 4 || pg2.Meta.TotalPages != 2 {
		t.Fatalf("second page = %s %+v", ids(pg2), pg2.Meta)
	}
}

func TestCreateAscendingSortPlacesByComparator(t *testing.T) {
	p := taskquery.Params{SortBy: taskquery.SortTitle, SortOrder: taskquery.Asc}
	e := entry(p, taskquery.NewMeta(1, 10, 2), task("a", model.StatusTodo, 1), task("c", model.StatusTodo, 2))
	b := planCreate([]querycache.ListEntry{e}, alice, task("b", model.StatusTodo, 3))
	if got := ids(b.Lists[e.Key]); got != "a,b,c" {
		t.Fatalf("order = %s", got)
	}
}

func TestUpdateLeavingFilterRemovesRow(t *testing.T) {
	todo := taskquery.Params{Status: model.StatusTodo}
	all := taskquery.Params{}
	x := task("x", model.StatusTodo, 1)
	eTodo := entry(todo, taskquery.NewMeta(1, 10, 1), x)
	eAll := entry(all, taskquery.NewMeta(1, 10, 1), x)

	next := x
	next.Status = model.StatusDone
	b := planUpdate([]querycache.ListEntry{eTodo, eAll}, alice, next)
	if pg := b.Lists[eTodo.Key]; len(pg.Data) != 0 || pg.Meta.Total != 0 {
		t.Fatalf("todo view = %+v", pg)
	}
	if pg := b.Lists[eAll.Key]; len(pg.Data) != 1 || pg.Data[0].Status != model.StatusDone || pg.Meta.Total != 1 {
		t.Fatalf("all view = %+v", pg)
	}
}

func TestDeleteOnlyRowOfLastPageClampsPage(t *testing.T) {
	p := taskquery.Params{Page: 2, Limit: 10}
	meta := taskquery.Meta{Page: 2, Limit: 10, Total: 11, TotalPages: 2}
	x := task("x", model.StatusTodo, 1)
	e := entry(p, meta, x)

	b := planDelete([]querycache.ListEntry{e}, alice, x.MarkDeleted("alice", base.Add(time.Hour)))
	pg := b.Lists[e.Key]
	if len(pg.Data) != 0 {
		t.Fatalf("data = %s", ids(pg))
	}
	want := taskquery.Meta{Page: 1, Limit: 10, Total: 10, TotalPages: 1}
	if pg.Meta != want {
		t.Fatalf("meta = %+v, want %+v", pg.Meta, want)
	}
	if got := taskquery.ClampPage(p, pg.Meta); got.Page != 1 {
		t.Fatalf("clamped page = %d", got.Page)
	}
}

func TestDeleteInViewIncludingDeleted(t *testing.T) {
	p := taskquery.Params{IncludeDeleted: true}
	x := task("x", model.StatusTodo, 1)
	e := entry(p, taskquery.NewMeta(1, 10, 1), x)
	deleted := x.MarkDeleted("admin", base.Add(time.Hour))

	b := planDelete([]querycache.ListEntry{e}, admin, deleted)
	pg := b.Lists[e.Key]
	if len(pg.Data) != 1 || !pg.Data[0].IsDeleted() || pg.Meta.Total != 1 {
		t.Fatalf("admin view = %+v", pg)
	}

	// a non-admin never actually gets deleted rows, whatever was asked
	b = planDelete([]querycache.ListEntry{e}, alice, deleted)
	if pg := b.Lists[e.Key]; len(pg.Data) != 0 || pg.Meta.Total != 0 {
		t.Fatalf("user view = %+v", pg)
	}
}

func TestRestoreInsertsOnFirstPageOnly(t *testing.T) {
	p1 := taskquery.Params{Limit: 1}
	p2 := taskquery.Params{Limit: 1, Page: 2}
	withDeleted := taskquery.Params{IncludeDeleted: true}
	old := task("old", model.StatusTodo, 1)
	x := task("x", model.StatusTodo, 5).MarkDeleted("admin", base.Add(time.Hour))

	e1 := entry(p1, taskquery.NewMeta(1, 1, 2), task("z", model.StatusTodo, 2))
	e2 := entry(p2, taskquery.NewMeta(2, 1, 2), old)
	eDel := entry(withDeleted, taskquery.NewMeta(1, 10, 3), x, task("z", model.StatusTodo, 2), old)

	restored := x.MarkRestored("admin", base.Add(2*time.Hour))
	b := planRestore([]querycache.ListEntry{e1, e2, eDel}, admin, restored)

	if pg := b.Lists[e1.Key]; ids(pg) != "x" || pg.Meta.Total != 3 {
		t.Fatalf("first page = %s %+v", ids(pg), pg.Meta)
	}
	if pg := b.Lists[e2.Key]; ids(pg) != "old" || pg.Meta.Total != 3 || pg.Meta.TotalPages != 3 {
		t.Fatalf("second page = %s %+v", ids(pg), pg.Meta)
	}
	if pg := b.Lists[eDel.Key]; pg.Meta.Total != 3 || pg.Data[0].IsDeleted() {
		t.Fatalf("deleted view = %+v", pg)
	}
}

func TestReplaceIsIdempotent(t *testing.T) {
	p := taskquery.Params{}
	temp := task(TempIDPrefix+"1", model.StatusTodo, 10)
	e := entry(p, taskquery.NewMeta(1, 10, 2), temp, task("a", model.StatusTodo, 1))

	server := temp
	server.ID = "real"
	server.CreatedAt = base.Add(11 * time.Minute)
	server.UpdatedAt = server.CreatedAt

	b := planReplace([]querycache.ListEntry{e}, alice, temp.ID, server)
	pg := b.Lists[e.Key]
	if ids(pg) != "real,a" || pg.Meta.Total != 2 {
		t.Fatalf("replaced = %s %+v", ids(pg), pg.Meta)
	}

	again := entry(p, pg.Meta, pg.Data...)
	if b := planReplace([]querycache.ListEntry{again}, alice, server.ID, server); len(b.Lists) != 0 {
		t.Fatalf("second reconcile changed entries: %+v", b.Lists)
	}
	if b := planReplace([]querycache.ListEntry{again}, alice, temp.ID, server); len(b.Lists) != 0 {
		t.Fatal("reconcile by a temp id no longer cached should do nothing")
	}
}

func TestReplaceDropsTempWhenRealRowPresent(t *testing.T) {
	temp := task(TempIDPrefix+"1", model.StatusTodo, 10)
	confirmed := task("real", model.StatusTodo, 10)
	e := entry(taskquery.Params{}, taskquery.NewMeta(1, 10, 1), temp, confirmed)

	b := planReplace([]querycache.ListEntry{e}, alice, temp.ID, confirmed)
	if got := ids(b.Lists[e.Key]); got != "real" {
		t.Fatalf("data = %s", got)
	}
}

func ids(pg taskquery.Page) string {
	out := make([]string, len(pg.Data))
	for i, t := range pg.Data {
		out[i] = t.ID
	}
	return strings.Join(out, ",")
}
