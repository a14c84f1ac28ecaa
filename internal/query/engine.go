package query

import (
	"context"
	"strings"
)

// Options tunes an Engine. Zero values pick the package defaults.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	// AppendOrder keeps the source's existing ordering as the primary key and
	// chains request sort keys after it. By default requests replace it.
	AppendOrder bool
}

// Engine runs Requests against sources of T. It holds no per-request state
// and is safe for concurrent use.
type Engine[T any] struct {
	schema *Schema[T]
	opts   Options
}

func New[T any](schema *Schema[T], opts Options) *Engine[T] {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = DefaultPageSize
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = MaxPageSize
	}
	if opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = opts.MaxPageSize
	}
	return &Engine[T]{schema: schema, opts: opts}
}

func (e *Engine[T]) Schema() *Schema[T] {
	return e.schema
}

// Apply composes search, scope, filter and ordering onto src without
// executing anything. scope criteria are ANDed ahead of the caller's filter.
func (e *Engine[T]) Apply(src Source[T], req Request, scope ...Criterion) (Source[T], error) {
	if len(scope) > 0 {
		p, err := BuildPredicate(e.schema, scope...)
		if err != nil {
			return nil, err
		}
		src = src.Where(Clause[T]{Match: p, Criteria: scope})
	}

	if term := req.SearchTerm; strings.TrimSpace(term) != "" {
		src = src.Where(Clause[T]{Match: SearchPredicate(e.schema, term), Search: term})
	}

	if !req.Filter.Empty() {
		p, criteria, err := Filter(e.schema, req.Filter)
		if err != nil {
			return nil, err
		}
		src = src.Where(Clause[T]{Match: p, Criteria: criteria})
	}

	if len(req.Orders) > 0 {
		var err error
		src, err = ApplyOrder(src, e.schema, req.Orders, !e.opts.AppendOrder)
		if err != nil {
			return nil, err
		}
	}
	return src, nil
}

// Page returns the clamped pagination for a request. Absent pagination is
// one page holding every row; an invalid index or size falls back to page 1
// at the default size.
func (e *Engine[T]) Page(p *Pagination) Pagination {
	if p == nil {
		return Pagination{PageIndex: 1}
	}
	return p.Clamp(e.opts.DefaultPageSize, e.opts.MaxPageSize)
}

// List applies req to src and materializes one page.
func (e *Engine[T]) List(ctx context.Context, src Source[T], req Request, scope ...Criterion) (PagedResult[T], error) {
	q, err := e.Apply(src, req, scope...)
	if err != nil {
		return PagedResult[T]{}, err
	}
	return Paginate(ctx, q, e.Page(req.Pagination))
}
