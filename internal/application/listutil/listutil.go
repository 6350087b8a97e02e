// Package listutil parses list query parameters and computes page windows for
// the customer list, both for API-backed pages and the offline local cache.
package listutil

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultLimit is the default number of customers per page.
const DefaultLimit = 20

// LimitOptions are the allowed rows-per-page values.
var LimitOptions = []int{10, 20, 50, 100}

// ListParams carries page, limit and search parsed from a request.
type ListParams struct {
	Page   int    // 1-indexed page number
	Limit  int    // rows per page
	Search string // trimmed free-text query
}

// PageInfo carries pagination metadata for rendering.
type PageInfo struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// ParseListParams extracts page, limit and q from URL query values.
// PRE: none
// POST: Page >= 1; Limit is one of LimitOptions
func ParseListParams(q url.Values) ListParams {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if !isValidLimit(limit) {
		limit = DefaultLimit
	}
	return ListParams{Page: page, Limit: limit, Search: strings.TrimSpace(q.Get("q"))}
}

// NewPageInfo computes pagination metadata.
// PRE: total >= 0
// POST: TotalPages >= 1; Page clamped to [1, TotalPages]
func NewPageInfo(page, limit, total int) PageInfo {
	if limit < 1 {
		limit = DefaultLimit
	}
	if total < 0 {
		total = 0
	}
	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return PageInfo{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// Offset returns the index of the first row on the current page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.Limit
}

// End returns the exclusive end index of the current page.
// POST: Returns min(Offset+Limit, Total)
func (p PageInfo) End() int {
	end := p.Offset() + p.Limit
	if end > p.Total {
		end = p.Total
	}
	return end
}

// PageNumbers returns at most 5 page numbers centered on the current page.
func (p PageInfo) PageNumbers() []int {
	const maxButtons = 5
	start := p.Page - maxButtons/2
	if start < 1 {
		start = 1
	}
	end := start + maxButtons - 1
	if end > p.TotalPages {
		end = p.TotalPages
		start = end - maxButtons + 1
		if start < 1 {
			start = 1
		}
	}
	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

// ShowPagination reports whether pager controls are needed.
func (p PageInfo) ShowPagination() bool {
	return p.TotalPages > 1
}

func isValidLimit(n int) bool {
	for _, opt := range LimitOptions {
		if n == opt {
			return true
		}
	}
	return false
}
