package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"finance-backend/internal/query"
)

// pgQueryCanceled is SQLSTATE query_canceled, raised when the server aborts a
// statement because its context was cancelled or a statement_timeout fired.
const pgQueryCanceled = "57014"

// PostgresDialect implements Dialect for PostgreSQL via pgx.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) NewParamBuilder() *ParamBuilder {
	return &ParamBuilder{prefix: "$"}
}

func (d *PostgresDialect) ColumnType(kind query.FieldKind) string {
	switch kind {
	case query.KindInt32:
		return "INTEGER"
	case query.KindInt64, query.KindEnum, query.KindDuration:
		return "BIGINT"
	case query.KindBool:
		return "BOOLEAN"
	case query.KindUUID:
		return "UUID"
	case query.KindTime, query.KindTimeOffset:
		return "TIMESTAMPTZ"
	case query.KindFloat32:
		return "REAL"
	case query.KindFloat64:
		return "DOUBLE PRECISION"
	case query.KindDecimal:
		return "NUMERIC"
	case query.KindCollection:
		return "TEXT[]"
	default:
		return "TEXT"
	}
}

func (d *PostgresDialect) Columns(ctx context.Context, q Querier, table string) ([]string, error) {
	return columnNames(ctx, q, d,
		`SELECT column_name AS name FROM information_schema.columns
		  WHERE table_schema = current_schema() AND table_name = $1`, table)
}

func (d *PostgresDialect) InExpr(field string, pb *ParamBuilder, values []any) string {
	return listExpr(field, "IN", "1=0", pb, values)
}

func (d *PostgresDialect) NotInExpr(field string, pb *ParamBuilder, values []any) string {
	return listExpr(field, "NOT IN", "1=1", pb, values)
}

func (d *PostgresDialect) ArrayContainsExpr(col string, pb *ParamBuilder, value any) string {
	return fmt.Sprintf("%s = ANY(%s)", pb.Add(value), col)
}

func (d *PostgresDialect) ArrayLengthExpr(col string) string {
	return fmt.Sprintf("cardinality(%s)", col)
}

func (d *PostgresDialect) TextMatchExpr(col string, pb *ParamBuilder, mode TextMatch, value string) string {
	pattern := escapeLike(value)
	switch mode {
	case MatchPrefix:
		pattern += "%"
	case MatchSuffix:
		pattern = "%" + pattern
	default:
		pattern = "%" + pattern + "%"
	}
	return fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, col, pb.Add(pattern))
}

func (d *PostgresDialect) TrimExpr(col string) string {
	return fmt.Sprintf(`btrim(%s, E' \t\n\r')`, col)
}

// FoldExpr lowercases; LOWER does simple case mapping only, so a term whose
// folding changes length (ß against SS) will not match.
func (d *PostgresDialect) FoldExpr(col string) string {
	return fmt.Sprintf("LOWER(%s)", col)
}

func (d *PostgresDialect) ArrayParam(values []string) any {
	if values == nil {
		return []string{}
	}
	return values
}

// ScanArray accepts what pgx hands database/sql for a TEXT[] column: the
// array literal as text, or an already decoded slice.
func (d *PostgresDialect) ScanArray(src any) ([]string, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []byte:
		return parseArrayLiteral(string(v))
	case string:
		return parseArrayLiteral(v)
	}
	return nil, fmt.Errorf("scan array: unsupported type %T", src)
}

// parseArrayLiteral reads a one-dimensional array literal such as
// {plain,"with, comma","esc\"aped",NULL}. NULL elements become "".
func parseArrayLiteral(s string) ([]string, error) {
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, fmt.Errorf("scan array: malformed literal %q", s)
	}
	body := s[1 : len(s)-1]
	out := []string{}
	if body == "" {
		return out, nil
	}

	var (
		elem    strings.Builder
		quoted  bool
		inQuote bool
	)
	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case inQuote && ch == '\\' && i+1 < len(body):
			i++
			elem.WriteByte(body[i])
		case ch == '"':
			inQuote = !inQuote
			quoted = true
		case ch == ',' && !inQuote:
			out = append(out, arrayElement(elem.String(), quoted))
			elem.Reset()
			quoted = false
		default:
			elem.WriteByte(ch)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("scan array: unterminated quote in %q", s)
	}
	return append(out, arrayElement(elem.String(), quoted)), nil
}

func arrayElement(raw string, quoted bool) string {
	if !quoted && strings.EqualFold(raw, "NULL") {
		return ""
	}
	return raw
}

// Param passes most values through to pgx; durations are stored as
// nanosecond BIGINTs.
func (d *PostgresDialect) Param(v any) any {
	if dur, ok := v.(time.Duration); ok {
		return int64(dur)
	}
	return v
}

func (d *PostgresDialect) LimitOffset(pb *ParamBuilder, skip, take int) string {
	if take < 0 {
		return "OFFSET " + pb.Add(skip)
	}
	return fmt.Sprintf("LIMIT %s OFFSET %s", pb.Add(take), pb.Add(skip))
}

func (d *PostgresDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgQueryCanceled {
		return fmt.Errorf("%w: %w", context.Canceled, err)
	}
	return err
}

// listExpr expands values into "field IN (p1, p2, ...)". An empty list
// renders as the constant empty.
func listExpr(field, op, empty string, pb *ParamBuilder, values []any) string {
	if len(values) == 0 {
		return empty
	}
	phs := make([]string, len(values))
	for i, v := range values {
		phs[i] = pb.Add(v)
	}
	return fmt.Sprintf("%s %s (%s)", field, op, strings.Join(phs, ", "))
}
