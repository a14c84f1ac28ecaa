package query

import (
	"context"
	"fmt"
	"slices"
)

// Clause is one filtering step applied to a Source. Match is always set;
// Search or Criteria carry the same condition in descriptor form for sources
// that translate it instead of evaluating Match.
type Clause[T any] struct {
	Match    Predicate[T]
	Search   string
	Criteria []Criterion
}

// Source is a lazily evaluated data set. Where and OrderBy return a new
// Source without touching the data; only Count and Fetch do I/O.
type Source[T any] interface {
	// Where narrows the source; successive clauses are ANDed.
	Where(c Clause[T]) Source[T]
	// OrderBy replaces the current ordering when replace is set, otherwise
	// appends k as the next tie-breaker.
	OrderBy(k SortKey[T], replace bool) Source[T]
	Count(ctx context.Context) (int, error)
	Fetch(ctx context.Context, skip, take int) ([]T, error)
}

// SliceSource is an in-memory Source over a slice. Items keep their slice
// order unless sorted; sorting is stable.
type SliceSource[T any] struct {
	items []T
	preds []Predicate[T]
	keys  []SortKey[T]
}

func FromSlice[T any](items []T) *SliceSource[T] {
	return &SliceSource[T]{items: items}
}

func (s *SliceSource[T]) clone() *SliceSource[T] {
	return &SliceSource[T]{
		items: s.items,
		preds: slices.Clone(s.preds),
		keys:  slices.Clone(s.keys),
	}
}

func (s *SliceSource[T]) Where(c Clause[T]) Source[T] {
	n := s.clone()
	if c.Match != nil {
		n.preds = append(n.preds, c.Match)
	}
	return n
}

func (s *SliceSource[T]) OrderBy(k SortKey[T], replace bool) Source[T] {
	n := s.clone()
	if replace {
		n.keys = nil
	}
	n.keys = append(n.keys, k)
	return n
}

func (s *SliceSource[T]) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := 0
	for _, item := range s.items {
		if s.matches(item) {
			n++
		}
	}
	return n, nil
}

func (s *SliceSource[T]) Fetch(ctx context.Context, skip, take int) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if skip < 0 {
		return nil, fmt.Errorf("fetch: negative skip %d", skip)
	}
	var rows []T
	for _, item := range s.items {
		if s.matches(item) {
			rows = append(rows, item)
		}
	}
	if len(s.keys) > 0 {
		slices.SortStableFunc(rows, Chain(s.keys))
	}
	if skip >= len(rows) {
		return []T{}, nil
	}
	rows = rows[skip:]
	if take >= 0 && take < len(rows) {
		rows = rows[:take]
	}
	return rows, nil
}

func (s *SliceSource[T]) matches(item T) bool {
	for _, p := range s.preds {
		if !p(item) {
			return false
		}
	}
	return true
}
