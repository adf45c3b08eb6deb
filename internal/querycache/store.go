// Package querycache holds cached task list pages and task details on the
// client. List entries are keyed by their canonical query parameters, so
// each filter, sort and page combination is cached and kept consistent on
// its own.
package querycache

import (
	"slices"
	"strings"
	"sync"
	"time"

	"mini-task-manager/internal/model"
	"mini-task-manager/internal/taskquery"
)

// ListEntry is a read-only copy of one cached list result.
type ListEntry struct {
	Key       string
	Params    taskquery.Params
	Page      taskquery.Page
	FetchedAt time.Time
	Stale     bool
}

type listEntry struct {
	params    taskquery.Params
	page      taskquery.Page
	fetchedAt time.Time
	stale     bool
}

type detailEntry struct {
	task      model.Task
	fetchedAt time.Time
	stale     bool
}

// Store is the cache. The zero value is not usable; call New.
type Store struct {
	mu      sync.Mutex
	lists   map[string]*listEntry
	details map[string]*detailEntry
	// gen is bumped per key whenever a fetch for that key must not land.
	gen  map[string]uint64
	subs map[int]func()
	next int
	now  func() time.Time
}

func New() *Store {
	return &Store{
		lists:   make(map[string]*listEntry),
		details: make(map[string]*detailEntry),
		gen:     make(map[string]uint64),
		subs:    make(map[int]func()),
		now:     time.Now,
	}
}

// List returns the cached page for p.
func (s *Store) List(p taskquery.Params) (ListEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := p.Key()
	e, ok := s.lists[key]
	if !ok {
		return ListEntry{}, false
	}
	return e.export(key), true
}

// Fresh returns the cached page for p only if it is not stale and younger
// than maxAge.
func (s *Store) Fresh(p taskquery.Params, maxAge time.Duration) (taskquery.Page, bool) {
	e, ok := s.List(p)
	if !ok || e.Stale || s.now().Sub(e.FetchedAt) >= maxAge {
		return taskquery.Page{}, false
	}
	return e.Page, true
}

// SetList stores a page fetched for p.
func (s *Store) SetList(p taskquery.Params, page taskquery.Page) {
	s.mu.Lock()
	s.setList(p.Key(), p, page)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) setList(key string, p taskquery.Params, page taskquery.Page) {
	s.lists[key] = &listEntry{params: p.Normalize(), page: page.Clone(), fetchedAt: s.now()}
}

// Lists returns every cached list entry ordered by key.
func (s *Store) Lists() []ListEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().Lists
}

func (s *Store) Detail(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.details[id]
	if !ok {
		return model.Task{}, false
	}
	return d.task.Clone(), true
}

// FreshDetail is Detail limited to entries that are not stale and younger
// than maxAge.
func (s *Store) FreshDetail(id string, maxAge time.Duration) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.details[id]
	if !ok || d.stale || s.now().Sub(d.fetchedAt) >= maxAge {
		return model.Task{}, false
	}
	return d.task.Clone(), true
}

func (s *Store) SetDetail(t model.Task) {
	s.mu.Lock()
	s.details[t.ID] = &detailEntry{task: t.Clone(), fetchedAt: s.now()}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) DropDetail(id string) {
	s.mu.Lock()
	delete(s.details, id)
	s.mu.Unlock()
	s.notify()
}

// Ticket identifies one in-flight list fetch.
type Ticket struct {
	key    string
	params taskquery.Params
	gen    uint64
}

func (t Ticket) Key() string { return t.key }

// BeginFetch registers a list fetch for p. The result is only stored if no
// cancellation happened in between.
func (s *Store) BeginFetch(p taskquery.Params) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := p.Key()
	g, ok := s.gen[key]
	if !ok {
		s.gen[key] = 0
	}
	return Ticket{key: key, params: p, gen: g}
}

// CompleteFetch stores the fetched page and reports whether it landed. A
// fetch superseded by CancelFetches or a later mutation is dropped.
func (s *Store) CompleteFetch(t Ticket, page taskquery.Page) bool {
	s.mu.Lock()
	if s.gen[t.key] != t.gen {
		s.mu.Unlock()
		return false
	}
	s.setList(t.key, t.params, page)
	s.mu.Unlock()
	s.notify()
	return true
}

// CancelFetches drops every in-flight list fetch.
func (s *Store) CancelFetches() {
	s.mu.Lock()
	s.cancelFetches()
	s.mu.Unlock()
}

func (s *Store) cancelFetches() {
	for key := range s.lists {
		s.gen[key]++
	}
	// keys still being fetched for the first time
	for key := range s.gen {
		if _, ok := s.lists[key]; !ok {
			s.gen[key]++
		}
	}
}

// Invalidate marks every entry stale and returns the stale list entries.
// Stale entries keep serving their data until refetched.
func (s *Store) Invalidate() []ListEntry {
	s.mu.Lock()
	for _, e := range s.lists {
		e.stale = true
	}
	for _, d := range s.details {
		d.stale = true
	}
	out := s.view().Lists
	s.mu.Unlock()
	s.notify()
	return out
}

// Clear empties the cache, cancelling in-flight fetches.
func (s *Store) Clear() {
	s.mu.Lock()
	s.cancelFetches()
	clear(s.lists)
	clear(s.details)
	s.mu.Unlock()
	s.notify()
}

// Subscribe registers fn to run after every change. fn runs without the
// store lock held.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (e *listEntry) export(key string) ListEntry {
	return ListEntry{Key: key, Params: e.params, Page: e.page.Clone(), FetchedAt: e.fetchedAt, Stale: e.stale}
}

// View is a consistent copy of the cache handed to a mutation plan.
type View struct {
	Lists   []ListEntry
	details map[string]model.Task
}

// Detail returns the cached detail for id in this view.
func (v View) Detail(id string) (model.Task, bool) {
	t, ok := v.details[id]
	return t, ok
}

func (s *Store) view() View {
	v := View{Lists: make([]ListEntry, 0, len(s.lists)), details: make(map[string]model.Task, len(s.details))}
	for key, e := range s.lists {
		v.Lists = append(v.Lists, e.export(key))
	}
	slices.SortFunc(v.Lists, func(a, b ListEntry) int { return strings.Compare(a.Key, b.Key) })
	for id, d := range s.details {
		v.details[id] = d.task.Clone()
	}
	return v
}

// Batch is a set of cache writes applied together.
type Batch struct {
	Lists       map[string]taskquery.Page
	Details     []model.Task
	DropDetails []string
}

func (b Batch) Empty() bool {
	return len(b.Lists) == 0 && len(b.Details) == 0 && len(b.DropDetails) == 0
}

// Snapshot holds the prior value of every entry a batch touched.
type Snapshot struct {
	lists   map[string]*listEntry
	details map[string]*detailEntry
}

// Keys lists the list keys the snapshot covers, sorted.
func (sn Snapshot) Keys() []string {
	keys := make([]string, 0, len(sn.lists))
	for k := range sn.lists {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Mutate cancels in-flight fetches, computes a batch from the current view
// and applies it, all under one lock. The returned snapshot restores every
// touched entry.
func (s *Store) Mutate(plan func(View) Batch) Snapshot {
	s.mu.Lock()
	s.cancelFetches()
	b := plan(s.view())
	snap := s.snapshot(b)
	s.apply(b)
	s.mu.Unlock()
	s.notify()
	return snap
}

func (s *Store) snapshot(b Batch) Snapshot {
	snap := Snapshot{lists: make(map[string]*listEntry), details: make(map[string]*detailEntry)}
	for key := range b.Lists {
		snap.lists[key] = copyList(s.lists[key])
	}
	for _, t := range b.Details {
		snap.details[t.ID] = copyDetail(s.details[t.ID])
	}
	for _, id := range b.DropDetails {
		snap.details[id] = copyDetail(s.details[id])
	}
	return snap
}

// apply writes pages into existing entries only. Fetch time and staleness
// are kept.
func (s *Store) apply(b Batch) {
	for key, page := range b.Lists {
		if e, ok := s.lists[key]; ok {
			e.page = page.Clone()
		}
	}
	for _, t := range b.Details {
		d, ok := s.details[t.ID]
		if !ok {
			d = &detailEntry{fetchedAt: s.now()}
			s.details[t.ID] = d
		}
		d.task = t.Clone()
	}
	for _, id := range b.DropDetails {
		delete(s.details, id)
	}
}

// Restore puts back every entry recorded in snap, removing entries that did
// not exist when it was taken. In-flight fetches are cancelled.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	s.cancelFetches()
	for key, e := range snap.lists {
		if e == nil {
			delete(s.lists, key)
			continue
		}
		s.lists[key] = copyList(e)
	}
	for id, d := range snap.details {
		if d == nil {
			delete(s.details, id)
			continue
		}
		s.details[id] = copyDetail(d)
	}
	s.mu.Unlock()
	s.notify()
}

func copyList(e *listEntry) *listEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.page = e.page.Clone()
	return &c
}

func copyDetail(d *detailEntry) *detailEntry {
	if d == nil {
		return nil
	}
	c := *d
	c.task = d.task.Clone()
	return &c
}
