package optimistic

import (
	"context"

	"mini-task-manager/internal/model"
	"mini-task-manager/internal/taskquery"
)

// Query serves a list page from the cache while it is fresh, or fetches and
// caches it. When a next page exists it is prefetched in the background.
func (c *Coordinator) Query(ctx context.Context, p taskquery.Params) (taskquery.Page, error) {
	p = p.Normalize()
	if pg, ok := c.cache.Fresh(p, c.StaleTime); ok {
		c.prefetchNext(p, pg)
		return pg, nil
	}

	ticket := c.cache.BeginFetch(p)
	pg, err := c.api.ListTasks(ctx, p)
	if err != nil {
		c.unauthorized(err)
		return taskquery.Page{}, err
	}
	if !c.cache.CompleteFetch(ticket, pg) {
		// a mutation started meanwhile; its view of the cache wins
		e, ok := c.cache.List(p)
		if !ok {
			return taskquery.Page{}, ErrSuperseded
		}
		pg = e.Page
	}
	c.prefetchNext(p, pg)
	return pg, nil
}

func (c *Coordinator) prefetchNext(p taskquery.Params, pg taskquery.Page) {
	next := p.WithPage(p.Page + 1)
	if next.Page > pg.Meta.TotalPages {
		return
	}
	if _, ok := c.cache.Fresh(next, c.StaleTime); ok {
		return
	}
	c.refetch(next)
}

// Task returns one task, from the detail cache while fresh.
func (c *Coordinator) Task(ctx context.Context, id string) (model.Task, error) {
	if t, ok := c.cache.FreshDetail(id, c.StaleTime); ok {
		return t, nil
	}
	t, err := c.api.GetTask(ctx, id)
	if err != nil {
		if Classify(err) == FailureNotFound {
			c.cache.DropDetail(id)
		}
		c.unauthorized(err)
		return model.Task{}, err
	}
	c.cache.SetDetail(t)
	return t, nil
}
