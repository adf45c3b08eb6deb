// Package optimistic applies task writes to the client cache before the
// server confirms them. Every cached list view the write affects is updated
// at once; the server's answer then either replaces the provisional rows or
// rolls the affected entries back to their exact prior state. Either way
// all lists are invalidated and refetched in the background.
package optimistic

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mini-task-manager/internal/client"
	"mini-task-manager/internal/model"
	"mini-task-manager/internal/querycache"
	"mini-task-manager/internal/taskquery"
)

// API is the part of the task API the coordinator drives.
type API interface {
	ListTasks(ctx context.Context, p taskquery.Params) (taskquery.Page, error)
	GetTask(ctx context.Context, id string) (model.Task, error)
	CreateTask(ctx context.Context, in model.CreateTaskInput) (model.Task, error)
	UpdateTask(ctx context.Context, id string, in model.UpdateTaskInput) (model.Task, error)
	DeleteTask(ctx context.Context, id string) (model.Task, error)
	RestoreTask(ctx context.Context, id string) (model.Task, error)
}

const (
	DefaultStaleTime = 10 * time.Second

	// TempIDPrefix marks provisional ids. Server ids are bare UUIDs and
	// never carry it.
	TempIDPrefix = "optimistic-"
)

func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// Coordinator owns the optimistic step and reconciliation for one cache.
type Coordinator struct {
	api   API
	cache *querycache.Store
	log   *slog.Logger

	// StaleTime is how long a fetched list is served without refetching.
	StaleTime time.Duration
	// OnUnauthorized runs after any request fails with 401.
	OnUnauthorized func()

	now   func() time.Time
	newID func() string

	// mu serializes optimistic steps and settlement.
	mu     sync.Mutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func New(api API, cache *querycache.Store, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		api:       api,
		cache:     cache,
		log:       log,
		StaleTime: DefaultStaleTime,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID:     func() string { return TempIDPrefix + uuid.NewString() },
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (c *Coordinator) Cache() *querycache.Store {
	return c.cache
}

// Wait blocks until background refetches finish.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close cancels background refetches and waits for them.
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
}

type Kind int

const (
	KindCreate Kind = iota
	KindUpdate
	KindDelete
	KindRestore
)

func (k Kind) String() string {
	return [...]string{"create", "update", "delete", "restore"}[k]
}

// State is where a mutation is in its life: pending until the server
// answers, then confirmed or rolled back.
type State int

const (
	StatePending State = iota
	StateConfirmed
	StateRolledBack
)

func (s State) String() string {
	return [...]string{"pending", "confirmed", "rolled back"}[s]
}

// Mutation is one optimistic write awaiting the server.
type Mutation struct {
	c        *Coordinator
	kind     Kind
	actor    model.Actor
	targetID string
	key      string

	provisional model.Task
	applied     bool
	snap        querycache.Snapshot

	mu    sync.Mutex
	state State
	err   error
}

func (m *Mutation) Kind() Kind { return m.kind }

// TargetID is the task the mutation writes to. For a create it is the
// provisional id.
func (m *Mutation) TargetID() string { return m.targetID }

// IdempotencyKey is sent with the request so a retried write is recorded once.
func (m *Mutation) IdempotencyKey() string { return m.key }

// Provisional is the task as the optimistic step predicted it. It reports
// false when nothing cached held the target, so nothing was predicted.
func (m *Mutation) Provisional() (model.Task, bool) {
	return m.provisional.Clone(), m.applied
}

// AffectedKeys lists the cache keys the optimistic step wrote.
func (m *Mutation) AffectedKeys() []string {
	return m.snap.Keys()
}

func (m *Mutation) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err is the failure passed to Fail, if any.
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (c *Coordinator) begin(kind Kind, actor model.Actor, targetID string, plan func(querycache.View) (model.Task, bool, querycache.Batch)) *Mutation {
	m := &Mutation{c: c, kind: kind, actor: actor, targetID: targetID, key: uuid.NewString()}

	c.mu.Lock()
	defer c.mu.Unlock()
	m.snap = c.cache.Mutate(func(v querycache.View) querycache.Batch {
		t, ok, b := plan(v)
		m.provisional, m.applied = t, ok
		return b
	})
	c.log.Debug("optimistic write applied", "kind", kind.String(), "task", targetID, "entries", len(m.snap.Keys()))
	return m
}

// findTask returns the freshest cached copy of a task.
func findTask(v querycache.View, id string) (model.Task, bool) {
	var (
		found model.Task
		ok    bool
	)
	if d, has := v.Detail(id); has {
		found, ok = d, true
	}
	for _, e := range v.Lists {
		if i := e.Page.IndexOf(id); i >= 0 {
			if t := e.Page.Data[i]; !ok || t.UpdatedAt.After(found.UpdatedAt) {
				found, ok = t, true
			}
		}
	}
	return found, ok
}

// BeginCreate shows a provisional task, with a temporary id, in every
// cached view it belongs to.
func (c *Coordinator) BeginCreate(in model.CreateTaskInput, actor model.Actor) *Mutation {
	tempID := c.newID()
	in = in.Trimmed()
	return c.begin(KindCreate, actor, tempID, func(v querycache.View) (model.Task, bool, querycache.Batch) {
		t := in.NewTask(tempID, actor, c.now())
		return t, true, planCreate(v.Lists, actor, t)
	})
}

// BeginUpdate merges in into the cached task everywhere it is shown.
func (c *Coordinator) BeginUpdate(id string, in model.UpdateTaskInput, actor model.Actor) *Mutation {
	in = in.Trimmed()
	return c.begin(KindUpdate, actor, id, func(v querycache.View) (model.Task, bool, querycache.Batch) {
		base, ok := findTask(v, id)
		if !ok {
			return model.Task{}, false, querycache.Batch{}
		}
		next := in.Apply(base).Touch(actor.ID, c.now())
		b := planUpdate(v.Lists, actor, next)
		if _, has := v.Detail(id); has {
			b.Details = append(b.Details, next)
		}
		return next, true, b
	})
}

// BeginDelete soft-deletes the cached task. The detail entry is dropped
// since the server no longer serves it.
func (c *Coordinator) BeginDelete(id string, actor model.Actor) *Mutation {
	return c.begin(KindDelete, actor, id, func(v querycache.View) (model.Task, bool, querycache.Batch) {
		base, ok := findTask(v, id)
		if !ok {
			return model.Task{}, false, querycache.Batch{}
		}
		deleted := base.MarkDeleted(actor.ID, c.now())
		b := planDelete(v.Lists, actor, deleted)
		if _, has := v.Detail(id); has {
			b.DropDetails = append(b.DropDetails, id)
		}
		return deleted, true, b
	})
}

// BeginRestore clears the soft-delete markers on the cached task. A cached
// copy is only found when some view includes deleted tasks.
func (c *Coordinator) BeginRestore(id string, actor model.Actor) *Mutation {
	return c.begin(KindRestore, actor, id, func(v querycache.View) (model.Task, bool, querycache.Batch) {
		base, ok := findTask(v, id)
		if !ok {
			return model.Task{}, false, querycache.Batch{}
		}
		restored := base.MarkRestored(actor.ID, c.now())
		return restored, true, planRestore(v.Lists, actor, restored)
	})
}

func (m *Mutation) settle(next State, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StatePending {
		return ErrSettled
	}
	m.state = next
	m.err = err
	return nil
}

// Confirm replaces the provisional row with the server's task in every
// cached list and the detail cache, then schedules a refetch of all lists.
func (m *Mutation) Confirm(server model.Task) error {
	if err := m.settle(StateConfirmed, nil); err != nil {
		return err
	}
	c := m.c
	c.mu.Lock()
	c.cache.Mutate(func(v querycache.View) querycache.Batch {
		b := planReplace(v.Lists, m.actor, m.targetID, server)
		if m.kind == KindDelete {
			if _, has := v.Detail(server.ID); has {
				b.DropDetails = append(b.DropDetails, server.ID)
			}
		} else {
			b.Details = append(b.Details, server)
		}
		return b
	})
	c.mu.Unlock()

	c.log.Debug("optimistic write confirmed", "kind", m.kind.String(), "task", server.ID)
	c.reconcile()
	return nil
}

// Fail restores every entry the optimistic step touched, then schedules a
// refetch of all lists.
func (m *Mutation) Fail(err error) error {
	if serr := m.settle(StateRolledBack, err); serr != nil {
		return serr
	}
	c := m.c
	c.mu.Lock()
	c.cache.Restore(m.snap)
	c.mu.Unlock()

	c.log.Debug("optimistic write rolled back", "kind", m.kind.String(), "task", m.targetID, "failure", Classify(err).String())
	c.unauthorized(err)
	c.reconcile()
	return nil
}

// reconcile invalidates every list and refetches it in the background.
func (c *Coordinator) reconcile() {
	for _, e := range c.cache.Invalidate() {
		c.refetch(e.Params)
	}
}

// refetch fetches p in the background. The ticket is taken before
// returning so a later mutation can supersede it.
func (c *Coordinator) refetch(p taskquery.Params) {
	ticket := c.cache.BeginFetch(p)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		pg, err := c.api.ListTasks(c.ctx, p)
		if err != nil {
			c.log.Debug("background refetch failed", "key", ticket.Key(), "err", err)
			c.unauthorized(err)
			return
		}
		if !c.cache.CompleteFetch(ticket, pg) {
			c.log.Debug("background refetch superseded", "key", ticket.Key())
		}
	}()
}

func (c *Coordinator) unauthorized(err error) {
	if Classify(err) == FailureUnauthorized && c.OnUnauthorized != nil {
		c.OnUnauthorized()
	}
}

func (c *Coordinator) run(ctx context.Context, m *Mutation, call func(context.Context) (model.Task, error)) (model.Task, error) {
	t, err := call(client.WithIdempotencyKey(ctx, m.key))
	if err != nil {
		// m was begun above and nothing else can settle it
		if serr := m.Fail(err); serr != nil {
			c.log.Debug("settle failed mutation", "kind", m.kind.String(), "error", serr)
		}
		return model.Task{}, err
	}
	if serr := m.Confirm(t); serr != nil {
		c.log.Debug("settle confirmed mutation", "kind", m.kind.String(), "error", serr)
	}
	return t, nil
}

// Create creates a task optimistically and returns the server's copy.
func (c *Coordinator) Create(ctx context.Context, in model.CreateTaskInput, actor model.Actor) (model.Task, error) {
	m := c.BeginCreate(in, actor)
	return c.run(ctx, m, func(ctx context.Context) (model.Task, error) {
		return c.api.CreateTask(ctx, in)
	})
}

func (c *Coordinator) Update(ctx context.Context, id string, in model.UpdateTaskInput, actor model.Actor) (model.Task, error) {
	m := c.BeginUpdate(id, in, actor)
	return c.run(ctx, m, func(ctx context.Context) (model.Task, error) {
		return c.api.UpdateTask(ctx, id, in)
	})
}

func (c *Coordinator) Delete(ctx context.Context, id string, actor model.Actor) (model.Task, error) {
	m := c.BeginDelete(id, actor)
	return c.run(ctx, m, func(ctx context.Context) (model.Task, error) {
		return c.api.DeleteTask(ctx, id)
	})
}

func (c *Coordinator) Restore(ctx context.Context, id string, actor model.Actor) (model.Task, error) {
	m := c.BeginRestore(id, actor)
	return c.run(ctx, m, func(ctx context.Context) (model.Task, error) {
		return c.api.RestoreTask(ctx, id)
	})
}
