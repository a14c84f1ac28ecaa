package store

import (
	"fmt"
	"strings"

	"finance-backend/internal/query"
)

// compiler renders normalized criteria of one schema into a WHERE fragment.
// The SQL mirrors the in-memory predicates, null handling included: negative
// operators on nullable columns match NULL.
type compiler[T any] struct {
	schema  *query.Schema[T]
	dialect Dialect
	pb      *ParamBuilder
}

// criteria folds left to right exactly like query.BuildPredicate:
// [A, B(and), C(or)] renders as ((A AND B) OR C).
func (c *compiler[T]) criteria(list []query.Criterion) (string, error) {
	if len(list) == 0 {
		return "1=1", nil
	}
	var acc string
	for i, cr := range list {
		expr, err := c.criterion(cr)
		if err != nil {
			return "", err
		}
		if i == 0 {
			acc = expr
			continue
		}
		op := "AND"
		if cr.Logic == query.Or {
			op = "OR"
		}
		acc = fmt.Sprintf("(%s %s %s)", acc, op, expr)
	}
	return acc, nil
}

func (c *compiler[T]) criterion(cr query.Criterion) (string, error) {
	f, err := c.schema.Field(cr.Field)
	if err != nil {
		return "", err
	}
	if !query.Supports(f.Kind(), cr.Operator) {
		return "", &query.Error{
			Kind:    query.UnsupportedOperator,
			Field:   f.Name(),
			Message: fmt.Sprintf("operator %s is not supported for %s field %s", cr.Operator, f.Kind(), f.Name()),
		}
	}

	switch cr.Operator {
	case query.IsNull:
		return f.Column() + " IS NULL", nil
	case query.IsNotNull:
		return f.Column() + " IS NOT NULL", nil
	}

	switch f.Kind() {
	case query.KindEnum:
		return c.enum(f, cr)
	case query.KindCollection:
		return c.collection(f, cr)
	default:
		return c.scalar(f, cr)
	}
}

func (c *compiler[T]) scalar(f query.Field[T], cr query.Criterion) (string, error) {
	col := f.Column()
	switch cr.Operator {
	case query.IsEmpty:
		return col + " = ''", nil
	case query.IsNotEmpty:
		return orNull(f, col+" <> ''"), nil
	case query.IsNullOrWhiteSpace:
		return fmt.Sprintf("(%s IS NULL OR %s = '')", col, c.dialect.TrimExpr(col)), nil
	case query.IsNotNullOrWhiteSpace:
		return c.dialect.TrimExpr(col) + " <> ''", nil
	case query.StartsWith:
		return c.dialect.TextMatchExpr(col, c.pb, MatchPrefix, cr.Value()), nil
	case query.EndsWith:
		return c.dialect.TextMatchExpr(col, c.pb, MatchSuffix, cr.Value()), nil
	case query.Contains, query.NotContains:
		if f.Kind() != query.KindString {
			return c.membership(f, cr.Values(), cr.Operator == query.Contains)
		}
		parts := make([]string, len(cr.Values()))
		for i, term := range cr.Values() {
			parts[i] = c.dialect.TextMatchExpr(col, c.pb, MatchSubstring, term)
		}
		matched := "(" + strings.Join(parts, " OR ") + ")"
		if cr.Operator == query.Contains {
			return matched, nil
		}
		return orNull(f, "NOT "+matched), nil
	case query.In, query.NotIn:
		return c.membership(f, cr.Values(), cr.Operator == query.In)
	case query.Between:
		from, to := cr.Range()
		lo, err := c.param(f, from)
		if err != nil {
			return "", err
		}
		hi, err := c.param(f, to)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", col, c.pb.Add(lo), c.pb.Add(hi)), nil
	}

	v, err := c.param(f, cr.Value())
	if err != nil {
		return "", err
	}
	ph := c.pb.Add(v)
	switch cr.Operator {
	case query.Equal:
		return col + " = " + ph, nil
	case query.NotEqual:
		return orNull(f, col+" <> "+ph), nil
	case query.GreaterThan:
		return col + " > " + ph, nil
	case query.GreaterThanOrEqual:
		return col + " >= " + ph, nil
	case query.LessThan:
		return col + " < " + ph, nil
	case query.LessThanOrEqual:
		return col + " <= " + ph, nil
	}
	return "", fmt.Errorf("no SQL for operator %s", cr.Operator)
}

func (c *compiler[T]) membership(f query.Field[T], raw []string, in bool) (string, error) {
	values := make([]any, 0, len(raw))
	for _, r := range raw {
		v, err := c.param(f, r)
		if err != nil {
			return "", err
		}
		values = append(values, v)
	}
	if in {
		return c.dialect.InExpr(f.Column(), c.pb, values), nil
	}
	return orNull(f, c.dialect.NotInExpr(f.Column(), c.pb, values)), nil
}

// enum treats In/Contains as query.FlagSet does: a shared bit with the ORed
// mask, or the zero value when a candidate is zero.
func (c *compiler[T]) enum(f query.Field[T], cr query.Criterion) (string, error) {
	col := f.Column()
	switch cr.Operator {
	case query.In, query.Contains, query.NotIn, query.NotContains:
		var set query.FlagSet
		for _, r := range cr.Values() {
			v, err := f.Parse(r)
			if err != nil {
				return "", err
			}
			set = set.Add(v.(int64))
		}
		var tests []string
		if set.Zero {
			tests = append(tests, col+" = 0")
		}
		if set.Mask != 0 {
			tests = append(tests, fmt.Sprintf("(%s & %s) <> 0", col, c.pb.Add(set.Mask)))
		}
		test := strings.Join(tests, " OR ")
		if len(tests) > 1 {
			test = "(" + test + ")"
		}
		if cr.Operator == query.In || cr.Operator == query.Contains {
			return test, nil
		}
		return orNull(f, "NOT ("+test+")"), nil
	}
	// Equality and ordering compare the raw integer, same as scalars.
	return c.scalar(f, cr)
}

func (c *compiler[T]) collection(f query.Field[T], cr query.Criterion) (string, error) {
	col := f.Column()
	length := c.dialect.ArrayLengthExpr(col)
	switch cr.Operator {
	case query.IsEmpty:
		return fmt.Sprintf("(%s IS NOT NULL AND %s = 0)", col, length), nil
	case query.IsNotEmpty:
		return fmt.Sprintf("(%s IS NULL OR %s > 0)", col, length), nil
	}

	parts := make([]string, 0, len(cr.Values()))
	for _, r := range cr.Values() {
		v, err := f.Parse(r)
		if err != nil {
			return "", err
		}
		parts = append(parts, c.dialect.ArrayContainsExpr(col, c.pb, c.dialect.Param(v)))
	}
	if cr.Operator == query.In || cr.Operator == query.Contains {
		return "(" + strings.Join(parts, " OR ") + ")", nil
	}
	// NotIn excludes only rows holding every candidate.
	return fmt.Sprintf("(%s IS NULL OR NOT (%s))", col, strings.Join(parts, " AND ")), nil
}

// search ORs a case-insensitive substring test over every text column. The
// term is folded like query.SearchPredicate folds it; columns go through
// the dialect's FoldExpr.
func (c *compiler[T]) search(term string) string {
	fields := c.schema.TextFields()
	if len(fields) == 0 {
		return "1=0"
	}
	ph := c.pb.Add("%" + escapeLike(query.Fold(strings.TrimSpace(term))) + "%")
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, c.dialect.FoldExpr(f.Column()), ph)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func (c *compiler[T]) param(f query.Field[T], raw string) (any, error) {
	v, err := f.Parse(raw)
	if err != nil {
		return nil, err
	}
	return c.dialect.Param(v), nil
}

func orNull[T any](f query.Field[T], expr string) string {
	if !f.Nullable() {
		return expr
	}
	return fmt.Sprintf("(%s IS NULL OR %s)", f.Column(), expr)
}
