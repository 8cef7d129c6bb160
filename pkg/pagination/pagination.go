package pagination

import (
	"net/url"
	"strconv"

	"github.com/mobby57/memoLib-sub019/pkg/query"
)

// PageRequest selects one page, with an optional search term and sort order.
type PageRequest struct {
	Page     int
	PageSize int
	Search   *string
	Sort     []query.SortField
}

// Normalize forces Page to at least 1 and PageSize into [1, cfg.MaxPageSize],
// substituting cfg.DefaultPageSize when unset.
func (r *PageRequest) Normalize(cfg Config) {
	r.Page = max(r.Page, 1)
	if r.PageSize < 1 {
		r.PageSize = cfg.DefaultPageSize
	}
	r.PageSize = min(r.PageSize, cfg.MaxPageSize)
}

// Offset is the number of rows before the page.
func (r *PageRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// PageRequestFromQuery reads page, page_size, search and sort. Unparseable
// numbers fall back to the normalized defaults.
func PageRequestFromQuery(values url.Values, cfg Config) PageRequest {
	var req PageRequest
	req.Page, _ = strconv.Atoi(values.Get("page"))
	req.PageSize, _ = strconv.Atoi(values.Get("page_size"))
	if s := values.Get("search"); s != "" {
		req.Search = &s
	}
	req.Sort = query.ParseSortFields(values.Get("sort"))
	req.Normalize(cfg)
	return req
}

// PageResult is the JSON envelope for a page of T.
type PageResult[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewPageResult wraps data, reporting at least one page and never a nil Data.
func NewPageResult[T any](data []T, total, page, pageSize int) PageResult[T] {
	res := PageResult[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: 1,
	}
	if res.Data == nil {
		res.Data = []T{}
	}
	if pageSize > 0 && total > pageSize {
		res.TotalPages = (total + pageSize - 1) / pageSize
	}
	return res
}

// Slice cuts req's page out of items for stores that page in memory.
func Slice[T any](items []T, req PageRequest) []T {
	start := req.Offset()
	if start >= len(items) {
		return []T{}
	}
	return items[start:min(start+req.PageSize, len(items))]
}
