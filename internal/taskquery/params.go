// Package taskquery defines list query parameters and the rules every list
// view follows: which tasks match, how they sort, and how pages are counted.
// The server and the client cache share these rules so optimistic edits land
// where a refetch would put them.
package taskquery

import (
	"net/url"
	"strconv"
	"strings"

	"mini-task-manager/internal/model"
)

type SortField string

const (
	SortTitle     SortField = "title"
	SortDueDate   SortField = "dueDate"
	SortCreatedAt SortField = "createdAt"
	SortPriority  SortField = "priority"
	SortStatus    SortField = "status"
)

var SortFields = []SortField{SortCreatedAt, SortDueDate, SortTitle, SortPriority, SortStatus}

func (f SortField) IsValid() bool {
	switch f {
	case SortTitle, SortDueDate, SortCreatedAt, SortPriority, SortStatus:
		return true
	}
	return false
}

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

const (
	DefaultPage     = 1
	DefaultLimit    = 10
	MaxLimit        = 100
	MaxSearchLength = 200
)

// Params selects one page of one filtered, sorted view. Zero values mean
// "use the default" and are filled by Normalize.
type Params struct {
	Status         model.Status
	Priority       model.Priority
	Search         string
	SortBy         SortField
	SortOrder      SortOrder
	Page           int
	Limit          int
	IncludeDeleted bool
}

// Normalize fills defaults and trims the search term.
func (p Params) Normalize() Params {
	p.Search = strings.TrimSpace(p.Search)
	if p.SortBy == "" {
		p.SortBy = SortCreatedAt
	}
	if p.SortOrder == "" {
		p.SortOrder = Desc
	}
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// ForActor drops IncludeDeleted for anyone but an admin, matching what the
// server will actually return.
func (p Params) ForActor(a model.Actor) Params {
	if !a.IsAdmin() {
		p.IncludeDeleted = false
	}
	return p
}

func (p Params) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// WithPage returns p pointing at another page of the same view.
func (p Params) WithPage(page int) Params {
	p.Page = page
	return p
}

// Key is the canonical cache key. Parameter sets that mean the same thing
// produce the same key.
func (p Params) Key() string {
	return p.Normalize().Values().Encode()
}

// ViewKey identifies the view without its page, so all pages of one view
// share it.
func (p Params) ViewKey() string {
	v := p.Normalize().Values()
	v.Del("page")
	return v.Encode()
}

// Values encodes p as query parameters, omitting empty fields.
func (p Params) Values() url.Values {
	v := url.Values{}
	if p.Status != "" {
		v.Set("status", string(p.Status))
	}
	if p.Priority != "" {
		v.Set("priority", string(p.Priority))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.SortBy != "" {
		v.Set("sortBy", string(p.SortBy))
	}
	if p.SortOrder != "" {
		v.Set("sortOrder", string(p.SortOrder))
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.IncludeDeleted {
		v.Set("includeDeleted", "true")
	}
	return v
}

// Parse decodes and validates query parameters. The returned Params is
// normalized; on failure the field errors say what was wrong.
func Parse(v url.Values) (Params, model.FieldErrors) {
	var p Params
	fe := model.FieldErrors{}

	if s := v.Get("status"); s != "" {
		p.Status = model.Status(s)
		if !p.Status.IsValid() {
			fe.Add("status", "Invalid enum value. Expected 'todo' | 'doing' | 'done', received '"+s+"'")
		}
	}
	if s := v.Get("priority"); s != "" {
		p.Priority = model.Priority(s)
		if !p.Priority.IsValid() {
			fe.Add("priority", "Invalid enum value. Expected 'low' | 'medium' | 'high', received '"+s+"'")
		}
	}
	if v.Has("search") {
		p.Search = strings.TrimSpace(v.Get("search"))
		if len([]rune(p.Search)) > MaxSearchLength {
			fe.Add("search", "String must contain at most 200 character(s)")
		}
	}
	if s := v.Get("sortBy"); s != "" {
		p.SortBy = SortField(s)
		if !p.SortBy.IsValid() {
			fe.Add("sortBy", "Invalid enum value. Expected 'title' | 'dueDate' | 'createdAt' | 'priority' | 'status', received '"+s+"'")
		}
	}
	if s := v.Get("sortOrder"); s != "" {
		p.SortOrder = SortOrder(s)
		if p.SortOrder != Asc && p.SortOrder != Desc {
			fe.Add("sortOrder", "Invalid enum value. Expected 'asc' | 'desc', received '"+s+"'")
		}
	}
	if s := v.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		switch {
		case err != nil:
			fe.Add("page", "Expected integer, received '"+s+"'")
		case n < 1:
			fe.Add("page", "Number must be greater than or equal to 1")
		default:
			p.Page = n
		}
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		switch {
		case err != nil:
			fe.Add("limit", "Expected integer, received '"+s+"'")
		case n < 1:
			fe.Add("limit", "Number must be greater than or equal to 1")
		case n > MaxLimit:
			fe.Add("limit", "Number must be less than or equal to 100")
		default:
			p.Limit = n
		}
	}
	if s := v.Get("includeDeleted"); s != "" {
		switch s {
		case "true":
			p.IncludeDeleted = true
		case "false":
		default:
			fe.Add("includeDeleted", "Invalid enum value. Expected 'true' | 'false', received '"+s+"'")
		}
	}

	if fe.Any() {
		return Params{}, fe
	}
	return p.Normalize(), nil
}
