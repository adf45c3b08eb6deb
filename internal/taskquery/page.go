package taskquery

import "mini-task-manager/internal/model"

// Meta is the pagination block of a list response.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// TotalPages is max(1, ceil(total/limit)).
func TotalPages(total, limit int) int {
	if limit < 1 || total <= 0 {
		return 1
	}
	return (total + limit - 1) / limit
}

// NewMeta derives totalPages from total. The page is reported as requested.
func NewMeta(page, limit, total int) Meta {
	return Meta{Page: page, Limit: limit, Total: total, TotalPages: TotalPages(total, limit)}
}

// WithTotal recomputes totalPages for a new total and clamps the page down
// when it no longer exists.
func (m Meta) WithTotal(total int) Meta {
	if total < 0 {
		total = 0
	}
	m.Total = total
	m.TotalPages = TotalPages(total, m.Limit)
	if m.Page > m.TotalPages {
		m.Page = m.TotalPages
	}
	return m
}

// Page is one list result: the visible tasks plus pagination metadata.
type Page struct {
	Data []model.Task `json:"data"`
	Meta Meta         `json:"meta"`
}

// Clone deep-copies the page.
func (pg Page) Clone() Page {
	out := Page{Meta: pg.Meta}
	if pg.Data != nil {
		out.Data = make([]model.Task, len(pg.Data))
		for i, t := range pg.Data {
			out.Data[i] = t.Clone()
		}
	}
	return out
}

// IndexOf returns the position of the task with the given id, or -1.
func (pg Page) IndexOf(id string) int {
	for i, t := range pg.Data {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Equal compares data and meta.
func (pg Page) Equal(o Page) bool {
	if pg.Meta != o.Meta || len(pg.Data) != len(o.Data) {
		return false
	}
	for i := range pg.Data {
		if !pg.Data[i].Equal(o.Data[i]) {
			return false
		}
	}
	return true
}

// HasNext reports whether a page after this one exists.
func (pg Page) HasNext() bool {
	return pg.Meta.Page < pg.Meta.TotalPages
}

// ClampPage moves p back onto the last existing page when m reports fewer
// pages than p asks for.
func ClampPage(p Params, m Meta) Params {
	if p.Page > m.TotalPages {
		p.Page = m.TotalPages
	}
	if p.Page < 1 {
		p.Page = 1
	}
	return p
}
