package services

import (
	"time"

	"expenses/internal/core"
)

// Sortable fields and directions accepted by the list operation. Anything
// else falls back to the documented default of date descending.
const (
	SortByDate        = "date"
	SortByDescription = "description"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// Date-range filters relative to now. Empty means unrestricted.
const (
	RangeWeek  = "week"
	RangeMonth = "month"
	RangeYear  = "year"
)

const (
	minPageSize = 10
	maxPageSize = 100
)

// ListParams are the raw listing knobs as supplied by the caller. Out-of-range
// values are clamped or defaulted, never rejected.
type ListParams struct {
	Page      int
	PageSize  int
	SortBy    string
	SortDir   string
	DateRange string
}

// ListQuery is the normalized form handed to the repository.
type ListQuery struct {
	Limit   int
	Offset  int
	SortBy  string
	SortDir string
	Since   time.Time // zero means no lower bound on date
}

// Page is one page of an owner's expenses plus the total matching count, so
// callers can tell when no further pages exist.
type Page struct {
	Items      []core.Expense
	TotalCount int
	PageNumber int
	PageSize   int
}

// HasMore reports whether pages beyond this one exist.
func (p Page) HasMore() bool {
	return p.PageNumber*p.PageSize < p.TotalCount
}

// normalize clamps paging, whitelists the sort combination and resolves the
// relative date range against now.
func (p ListParams) normalize(now time.Time) (page, pageSize int, q ListQuery) {
	page = p.Page
	if page < 1 {
		page = 1
	}
	pageSize = p.PageSize
	if pageSize < minPageSize {
		pageSize = minPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	sortBy, sortDir := p.SortBy, p.SortDir
	validBy := sortBy == SortByDate || sortBy == SortByDescription
	validDir := sortDir == SortAsc || sortDir == SortDesc
	if !validBy || !validDir {
		sortBy, sortDir = SortByDate, SortDesc
	}

	var since time.Time
	switch p.DateRange {
	case RangeWeek:
		since = now.AddDate(0, 0, -7)
	case RangeMonth:
		since = now.AddDate(0, -1, 0)
	case RangeYear:
		since = now.AddDate(-1, 0, 0)
	}

	q = ListQuery{
		Limit:   pageSize,
		Offset:  (page - 1) * pageSize,
		SortBy:  sortBy,
		SortDir: sortDir,
		Since:   since,
	}
	return page, pageSize, q
}
