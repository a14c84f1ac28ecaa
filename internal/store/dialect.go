package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"finance-backend/internal/query"
)

// Dialect is everything the store needs to know about one database: DDL
// types, how operators render, and how values cross the driver boundary.
type Dialect interface {
	Name() string       // "postgres" or "sqlite"
	DriverName() string // database/sql driver: "pgx" or "sqlite"

	NewParamBuilder() *ParamBuilder
	ColumnType(kind query.FieldKind) string

	// Columns lists the columns a table has; none means no such table.
	Columns(ctx context.Context, q Querier, table string) ([]string, error)

	// InExpr and NotInExpr expand values into one placeholder each. An
	// empty list renders as a constant false (IN) or true (NOT IN).
	InExpr(field string, pb *ParamBuilder, values []any) string
	NotInExpr(field string, pb *ParamBuilder, values []any) string

	// ArrayContainsExpr holds when the collection column has value as an
	// element; ArrayLengthExpr counts its elements.
	ArrayContainsExpr(col string, pb *ParamBuilder, value any) string
	ArrayLengthExpr(col string) string

	// TextMatchExpr is a case-sensitive prefix, suffix or substring test.
	TextMatchExpr(col string, pb *ParamBuilder, mode TextMatch, value string) string
	TrimExpr(col string) string

	// FoldExpr case-folds a text column for search.
	FoldExpr(col string) string

	// ArrayParam and ScanArray move collection columns in and out of the
	// driver. A NULL column scans as nil.
	ArrayParam(values []string) any
	ScanArray(src any) ([]string, error)

	// Param converts a parsed field value into the driver's parameter form.
	Param(v any) any

	// LimitOffset renders the paging tail of a SELECT. take < 0 means no limit.
	LimitOffset(pb *ParamBuilder, skip, take int) string

	// MapError wraps statement cancellation as context.Canceled and passes
	// other errors through.
	MapError(err error) error
}

// TextMatch selects the kind of TextMatchExpr.
type TextMatch int

const (
	MatchPrefix TextMatch = iota
	MatchSuffix
	MatchSubstring
)

// NewDialect returns the dialect for a configured driver; anything but
// "sqlite" is PostgreSQL.
func NewDialect(driver string) Dialect {
	if driver == "sqlite" {
		return &SQLiteDialect{}
	}
	return &PostgresDialect{}
}

// ParamBuilder collects statement arguments and numbers their placeholders
// with the dialect prefix: $1 for PostgreSQL, ?1 for SQLite. Numbered
// SQLite placeholders may be repeated.
type ParamBuilder struct {
	prefix string
	params []any
}

// Add appends v and returns its placeholder.
func (p *ParamBuilder) Add(v any) string {
	p.params = append(p.params, v)
	return p.prefix + strconv.Itoa(len(p.params))
}

func (p *ParamBuilder) Params() []any { return p.params }
func (p *ParamBuilder) Count() int    { return len(p.params) }

// columnNames collects the "name" column of a catalogue query.
func columnNames(ctx context.Context, q Querier, dialect Dialect, sqlStr, table string) ([]string, error) {
	var names []string
	err := Each(ctx, q, dialect, sqlStr, []any{table}, func(r *Row) error {
		names = append(names, r.String("name"))
		return r.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	return names, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike escapes LIKE wildcards with a backslash; pair it with ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
