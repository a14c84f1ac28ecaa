package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"finance-backend/internal/query"
)

// ScanFunc maps one selected row onto T.
type ScanFunc[T any] func(r *Row) T

// Table is a query.Source backed by one SQL table. Where and OrderBy only
// record clauses; Count and Fetch render and run them.
type Table[T any] struct {
	q       Querier
	dialect Dialect
	name    string
	key     string
	schema  *query.Schema[T]
	scan    ScanFunc[T]
	columns []string
	log     logrus.FieldLogger

	clauses []query.Clause[T]
	keys    []query.SortKey[T]
	err     error
}

// NewTable selects every schema column of name and breaks ordering ties on
// key, so pages are deterministic.
func NewTable[T any](q Querier, dialect Dialect, name, key string, schema *query.Schema[T], scan ScanFunc[T]) *Table[T] {
	return &Table[T]{
		q:       q,
		dialect: dialect,
		name:    name,
		key:     key,
		schema:  schema,
		scan:    scan,
		columns: schema.Columns(),
		log:     logrus.StandardLogger(),
	}
}

// WithLogger sets the logger that receives rendered SQL at debug level.
func (t *Table[T]) WithLogger(l logrus.FieldLogger) *Table[T] {
	n := t.clone()
	n.log = l
	return n
}

func (t *Table[T]) Name() string { return t.name }

func (t *Table[T]) clone() *Table[T] {
	n := *t
	n.clauses = slices.Clone(t.clauses)
	n.keys = slices.Clone(t.keys)
	return &n
}

// Where records a clause. Clauses that only carry an in-memory predicate
// cannot be rendered and fail on Count or Fetch.
func (t *Table[T]) Where(c query.Clause[T]) query.Source[T] {
	n := t.clone()
	if len(c.Criteria) == 0 && strings.TrimSpace(c.Search) == "" {
		if c.Match != nil && n.err == nil {
			n.err = errors.New("clause has no SQL form")
		}
		return n
	}
	n.clauses = append(n.clauses, c)
	return n
}

func (t *Table[T]) OrderBy(k query.SortKey[T], replace bool) query.Source[T] {
	n := t.clone()
	if replace {
		n.keys = nil
	}
	n.keys = append(n.keys, k)
	return n
}

func (t *Table[T]) Count(ctx context.Context) (int, error) {
	if t.err != nil {
		return 0, t.err
	}
	pb := t.dialect.NewParamBuilder()
	where, err := t.where(pb)
	if err != nil {
		return 0, err
	}

	sqlStr := fmt.Sprintf("SELECT COUNT(*) AS n FROM %s%s", t.name, where)
	t.logSQL("count", sqlStr, pb)
	var n int64
	err = Each(ctx, t.q, t.dialect, sqlStr, pb.Params(), func(r *Row) error {
		n = r.Int64("n")
		return r.Err()
	})
	if err != nil {
		return 0, fmt.Errorf("%s: count: %w", t.name, err)
	}
	return int(n), nil
}

func (t *Table[T]) Fetch(ctx context.Context, skip, take int) ([]T, error) {
	if t.err != nil {
		return nil, t.err
	}
	if skip < 0 {
		return nil, fmt.Errorf("%s: negative skip %d", t.name, skip)
	}
	pb := t.dialect.NewParamBuilder()
	where, err := t.where(pb)
	if err != nil {
		return nil, err
	}

	sqlStr := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s %s",
		strings.Join(t.columns, ", "), t.name, where, t.orderBy(), t.dialect.LimitOffset(pb, skip, take))
	t.logSQL("fetch", sqlStr, pb)
	out := []T{}
	err = Each(ctx, t.q, t.dialect, sqlStr, pb.Params(), func(r *Row) error {
		item := t.scan(r)
		if err := r.Err(); err != nil {
			return err
		}
		out = append(out, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.name, err)
	}
	return out, nil
}

// where renders every clause, ANDed, with a leading " WHERE ".
func (t *Table[T]) where(pb *ParamBuilder) (string, error) {
	if len(t.clauses) == 0 {
		return "", nil
	}
	c := &compiler[T]{schema: t.schema, dialect: t.dialect, pb: pb}
	parts := make([]string, 0, len(t.clauses))
	for _, cl := range t.clauses {
		if len(cl.Criteria) > 0 {
			expr, err := c.criteria(cl.Criteria)
			if err != nil {
				return "", err
			}
			parts = append(parts, expr)
			continue
		}
		parts = append(parts, c.search(cl.Search))
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

// orderBy renders the sort keys with nulls first on ascending keys, the
// same order the in-memory comparators produce, then the tie-break key.
func (t *Table[T]) orderBy() string {
	parts := make([]string, 0, len(t.keys)+1)
	keyed := false
	for _, k := range t.keys {
		col := k.Field.Column()
		if col == t.key {
			keyed = true
		}
		if k.Direction == query.Descending {
			parts = append(parts, col+" DESC NULLS LAST")
		} else {
			parts = append(parts, col+" ASC NULLS FIRST")
		}
	}
	if !keyed {
		parts = append(parts, t.key+" ASC")
	}
	return strings.Join(parts, ", ")
}

func (t *Table[T]) logSQL(stage, sqlStr string, pb *ParamBuilder) {
	t.log.WithFields(logrus.Fields{
		"table":  t.name,
		"stage":  stage,
		"sql":    sqlStr,
		"params": pb.Count(),
	}).Debug("query")
}

var _ query.Source[struct{}] = (*Table[struct{}])(nil)
