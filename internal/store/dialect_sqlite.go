package store

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"modernc.org/sqlite"

	"finance-backend/internal/query"
)

// sqliteTimeLayout is fixed-width UTC so text comparison orders like time.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteDialect implements Dialect for SQLite via modernc.org/sqlite.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string       { return "sqlite" }
func (d *SQLiteDialect) DriverName() string { return "sqlite" }

func (d *SQLiteDialect) NewParamBuilder() *ParamBuilder {
	return &ParamBuilder{prefix: "?"}
}

func (d *SQLiteDialect) ColumnType(kind query.FieldKind) string {
	switch kind {
	case query.KindInt32, query.KindInt64, query.KindBool, query.KindEnum, query.KindDuration:
		return "INTEGER"
	case query.KindFloat32, query.KindFloat64:
		return "REAL"
	case query.KindDecimal:
		return "NUMERIC"
	default:
		// uuid, time and JSON-encoded collections are stored as text
		return "TEXT"
	}
}

func (d *SQLiteDialect) Columns(ctx context.Context, q Querier, table string) ([]string, error) {
	return columnNames(ctx, q, d, "SELECT name FROM pragma_table_info(?1)", table)
}

func (d *SQLiteDialect) InExpr(field string, pb *ParamBuilder, values []any) string {
	return listExpr(field, "IN", "1=0", pb, values)
}

func (d *SQLiteDialect) NotInExpr(field string, pb *ParamBuilder, values []any) string {
	return listExpr(field, "NOT IN", "1=1", pb, values)
}

func (d *SQLiteDialect) ArrayContainsExpr(col string, pb *ParamBuilder, value any) string {
	return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value = %s)", col, pb.Add(value))
}

func (d *SQLiteDialect) ArrayLengthExpr(col string) string {
	return fmt.Sprintf("json_array_length(%s)", col)
}

// TextMatchExpr avoids LIKE, which is case-insensitive for ASCII in SQLite.
// ?NNN placeholders may be repeated, so the value is bound once.
func (d *SQLiteDialect) TextMatchExpr(col string, pb *ParamBuilder, mode TextMatch, value string) string {
	ph := pb.Add(value)
	switch mode {
	case MatchPrefix:
		return fmt.Sprintf("substr(%s, 1, length(%s)) = %s", col, ph, ph)
	case MatchSuffix:
		return fmt.Sprintf("substr(%s, -length(%s)) = %s", col, ph, ph)
	default:
		return fmt.Sprintf("instr(%s, %s) > 0", col, ph)
	}
}

func (d *SQLiteDialect) TrimExpr(col string) string {
	return fmt.Sprintf("trim(%s, ' ' || char(9) || char(10) || char(13))", col)
}

// FoldExpr calls casefold, registered with the driver below, since SQLite's
// own lower() only maps ASCII.
func (d *SQLiteDialect) FoldExpr(col string) string {
	return fmt.Sprintf("casefold(%s)", col)
}

func init() {
	sqlite.MustRegisterDeterministicScalarFunction("casefold", 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return query.Fold(v), nil
		case []byte:
			return query.Fold(string(v)), nil
		}
		return args[0], nil
	})
}

func (d *SQLiteDialect) ArrayParam(values []string) any {
	if values == nil {
		return "[]"
	}
	b, _ := json.Marshal(values)
	return string(b)
}

func (d *SQLiteDialect) ScanArray(src any) ([]string, error) {
	if src == nil {
		return nil, nil
	}
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return nil, fmt.Errorf("scan array: unsupported type %T", src)
	}
	s = strings.TrimSpace(s)
	if s == "" || s == "[]" {
		return []string{}, nil
	}
	var result []string
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		return nil, fmt.Errorf("scan array: %w", err)
	}
	return result, nil
}

// Param maps values onto SQLite storage classes.
func (d *SQLiteDialect) Param(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(sqliteTimeLayout)
	case time.Duration:
		return int64(val)
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case uuid.UUID:
		return val.String()
	case decimal.Decimal:
		return val.InexactFloat64()
	default:
		return v
	}
}

func (d *SQLiteDialect) LimitOffset(pb *ParamBuilder, skip, take int) string {
	return fmt.Sprintf("LIMIT %s OFFSET %s", pb.Add(take), pb.Add(skip))
}

func (d *SQLiteDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "interrupted") {
		return fmt.Errorf("%w: %w", context.Canceled, err)
	}
	return err
}
