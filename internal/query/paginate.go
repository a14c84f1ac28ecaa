package query

import (
	"context"
	"fmt"
	"math"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Window is the (skip, take) pair of a page.
type Window struct {
	Skip int
	Take int
}

// Window derives skip/take from a 1-based page index. A size below 1 is
// the whole source: skip 0, take -1. A skip past math.MaxInt saturates,
// which no count can reach.
func (p Pagination) Window() Window {
	if p.PageSize < 1 {
		return Window{Skip: 0, Take: -1}
	}
	index := max(p.PageIndex, 1) - 1
	if index > math.MaxInt/p.PageSize {
		return Window{Skip: math.MaxInt, Take: p.PageSize}
	}
	return Window{Skip: index * p.PageSize, Take: p.PageSize}
}

// Clamp replaces an invalid index with 1 and an invalid size with def, and
// caps the size at limit. Result-only fields are cleared.
func (p Pagination) Clamp(def, limit int) Pagination {
	out := Pagination{PageIndex: p.PageIndex, PageSize: p.PageSize}
	if out.PageIndex < 1 {
		out.PageIndex = 1
	}
	if out.PageSize < 1 {
		out.PageSize = def
	}
	if limit > 0 && out.PageSize > limit {
		out.PageSize = limit
	}
	return out
}

// PageCount is ceil(total/size), 0 for an empty source.
func PageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Paginate counts src, checks the requested page against the count and
// fetches it. The count has to finish first: whether to fetch at all depends
// on it. p must already be clamped; a PageSize below 1 returns every row as
// page 1.
func Paginate[T any](ctx context.Context, src Source[T], p Pagination) (PagedResult[T], error) {
	if err := ctx.Err(); err != nil {
		return PagedResult[T]{}, sourceError(ctx, "count", err)
	}

	w := p.Window()
	total, err := src.Count(ctx)
	if err != nil {
		return PagedResult[T]{}, sourceError(ctx, "count", err)
	}
	if total > 0 && w.Skip >= total {
		return PagedResult[T]{}, &Error{
			Kind:    PageIndexOutOfRange,
			Message: fmt.Sprintf("page %d is out of range: %d rows at %d per page", p.PageIndex, total, p.PageSize),
		}
	}

	data := []T{}
	if total > 0 {
		data, err = src.Fetch(ctx, w.Skip, w.Take)
		if err != nil {
			return PagedResult[T]{}, sourceError(ctx, "fetch", err)
		}
		if data == nil {
			data = []T{}
		}
	}

	size := p.PageSize
	if w.Take < 0 {
		size = max(total, 1)
	}
	return PagedResult[T]{
		Data: data,
		Pagination: Pagination{
			PageIndex: p.PageIndex,
			PageSize:  size,
			TotalRow:  total,
			PageCount: PageCount(total, size),
		},
	}, nil
}
