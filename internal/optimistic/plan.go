package optimistic

import (
	"mini-task-manager/internal/model"
	"mini-task-manager/internal/querycache"
	"mini-task-manager/internal/taskquery"
)

// The plan functions compute cache writes from a view of the cache. They
// never touch the store, so a plan is either applied in full or not at all.

func isFirstPage(e querycache.ListEntry) bool {
	return e.Params.Normalize().Page == 1
}

// insertIntoPage adds t to the entry as a new member of its view. The total
// always grows; the row itself only shows up when the entry is the first
// page, where it is sorted in and the page truncated to its limit. Later
// pages are left for the refetch to correct.
func insertIntoPage(e querycache.ListEntry, p taskquery.Params, t model.Task) taskquery.Page {
	pg := e.Page.Clone()
	pg.Meta = pg.Meta.WithTotal(pg.Meta.Total + 1)
	if !isFirstPage(e) {
		return pg
	}
	pg.Data = append(pg.Data, t.Clone())
	taskquery.Sort(pg.Data, p)
	if limit := p.Normalize().Limit; len(pg.Data) > limit {
		pg.Data = pg.Data[:limit]
	}
	return pg
}

func removeFromPage(pg taskquery.Page, i int) taskquery.Page {
	pg.Data = append(pg.Data[:i:i], pg.Data[i+1:]...)
	pg.Meta = pg.Meta.WithTotal(pg.Meta.Total - 1)
	return pg
}

func replaceInPage(pg taskquery.Page, i int, t model.Task, p taskquery.Params) taskquery.Page {
	pg.Data[i] = t.Clone()
	taskquery.Sort(pg.Data, p)
	return pg
}

func planCreate(entries []querycache.ListEntry, actor model.Actor, t model.Task) querycache.Batch {
	b := querycache.Batch{Lists: map[string]taskquery.Page{}}
	for _, e := range entries {
		p := e.Params.ForActor(actor)
		if !taskquery.Matches(t, p) {
			continue
		}
		b.Lists[e.Key] = insertIntoPage(e, p, t)
	}
	return b
}

// planUpdate writes next over the cached copy of the task in every entry
// that holds it, dropping it from views it no longer matches.
func planUpdate(entries []querycache.ListEntry, actor model.Actor, next model.Task) querycache.Batch {
	b := querycache.Batch{Lists: map[string]taskquery.Page{}}
	for _, e := range entries {
		i := e.Page.IndexOf(next.ID)
		if i < 0 {
			continue
		}
		p := e.Params.ForActor(actor)
		if taskquery.Matches(next, p) {
			b.Lists[e.Key] = replaceInPage(e.Page.Clone(), i, next, p)
		} else {
			b.Lists[e.Key] = removeFromPage(e.Page.Clone(), i)
		}
	}
	return b
}

// planDelete keeps the soft-deleted row in views that include deleted tasks
// and removes it elsewhere, shrinking the total and clamping the page.
func planDelete(entries []querycache.ListEntry, actor model.Actor, deleted model.Task) querycache.Batch {
	b := querycache.Batch{Lists: map[string]taskquery.Page{}}
	for _, e := range entries {
		i := e.Page.IndexOf(deleted.ID)
		if i < 0 {
			continue
		}
		p := e.Params.ForActor(actor)
		if p.IncludeDeleted {
			b.Lists[e.Key] = replaceInPage(e.Page.Clone(), i, deleted, p)
		} else {
			b.Lists[e.Key] = removeFromPage(e.Page.Clone(), i)
		}
	}
	return b
}

// planRestore updates the row where it is cached and treats it as a fresh
// insertion in views that hid it while it was deleted.
func planRestore(entries []querycache.ListEntry, actor model.Actor, restored model.Task) querycache.Batch {
	b := querycache.Batch{Lists: map[string]taskquery.Page{}}
	for _, e := range entries {
		p := e.Params.ForActor(actor)
		if i := e.Page.IndexOf(restored.ID); i >= 0 {
			if taskquery.Matches(restored, p) {
				b.Lists[e.Key] = replaceInPage(e.Page.Clone(), i, restored, p)
			} else {
				b.Lists[e.Key] = removeFromPage(e.Page.Clone(), i)
			}
			continue
		}
		if !p.IncludeDeleted && taskquery.Matches(restored, p) {
			b.Lists[e.Key] = insertIntoPage(e, p, restored)
		}
	}
	return b
}

// planReplace swaps the row with id fromID for the server's copy in every
// entry that holds it. Running it twice with the same task changes nothing.
func planReplace(entries []querycache.ListEntry, actor model.Actor, fromID string, server model.Task) querycache.Batch {
	b := querycache.Batch{Lists: map[string]taskquery.Page{}}
	for _, e := range entries {
		i := e.Page.IndexOf(fromID)
		if i < 0 {
			continue
		}
		p := e.Params.ForActor(actor)
		pg := e.Page.Clone()
		if fromID != server.ID && pg.IndexOf(server.ID) >= 0 {
			// a refetch already brought the real row in
			pg.Data = append(pg.Data[:i:i], pg.Data[i+1:]...)
		} else {
			pg = replaceInPage(pg, i, server, p)
		}
		if !pg.Equal(e.Page) {
			b.Lists[e.Key] = pg
		}
	}
	return b
}
