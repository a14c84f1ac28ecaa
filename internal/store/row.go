package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Row reads typed values out of one result row of Each. The first conversion
// failure sticks: later getters return zero values and Err reports it.
type Row struct {
	values  map[string]any
	dialect Dialect
	err     error
}

func NewRow(values map[string]any, dialect Dialect) *Row {
	return &Row{values: values, dialect: dialect}
}

// Err returns the first conversion error.
func (r *Row) Err() error {
	return r.err
}

func (r *Row) fail(col string, v any, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("column %s: cannot read %T as %s", col, v, want)
	}
}

func (r *Row) get(col string) (any, bool) {
	if r.err != nil {
		return nil, false
	}
	v, ok := r.values[col]
	if !ok {
		r.err = fmt.Errorf("column %s: not selected", col)
		return nil, false
	}
	return v, v != nil
}

func (r *Row) String(col string) string {
	s, _ := r.stringValue(col)
	return s
}

func (r *Row) NullString(col string) *string {
	if s, ok := r.stringValue(col); ok {
		return &s
	}
	return nil
}

func (r *Row) stringValue(col string) (string, bool) {
	v, ok := r.get(col)
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case []byte:
		return string(val), true
	}
	r.fail(col, v, "string")
	return "", false
}

func (r *Row) Int64(col string) int64 {
	n, _ := r.intValue(col)
	return n
}

func (r *Row) NullInt64(col string) *int64 {
	if n, ok := r.intValue(col); ok {
		return &n
	}
	return nil
}

func (r *Row) Int32(col string) int32 {
	return int32(r.Int64(col))
}

func (r *Row) NullInt32(col string) *int32 {
	if n, ok := r.intValue(col); ok {
		v := int32(n)
		return &v
	}
	return nil
}

func (r *Row) intValue(col string) (int64, bool) {
	v, ok := r.get(col)
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int32:
		return int64(val), true
	case int:
		return int64(val), true
	case float64:
		return int64(val), true
	case string:
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n, true
		}
	}
	r.fail(col, v, "integer")
	return 0, false
}

func (r *Row) Float64(col string) float64 {
	f, _ := r.floatValue(col)
	return f
}

func (r *Row) NullFloat32(col string) *float32 {
	if f, ok := r.floatValue(col); ok {
		v := float32(f)
		return &v
	}
	return nil
}

func (r *Row) floatValue(col string) (float64, bool) {
	v, ok := r.get(col)
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f, true
		}
	}
	r.fail(col, v, "float")
	return 0, false
}

// Bool accepts native booleans and SQLite's 0/1 integers.
func (r *Row) Bool(col string) bool {
	v, ok := r.get(col)
	if !ok {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	}
	r.fail(col, v, "bool")
	return false
}

func (r *Row) Decimal(col string) decimal.Decimal {
	d, _ := r.decimalValue(col)
	return d
}

func (r *Row) NullDecimal(col string) *decimal.Decimal {
	if d, ok := r.decimalValue(col); ok {
		return &d
	}
	return nil
}

func (r *Row) decimalValue(col string) (decimal.Decimal, bool) {
	v, ok := r.get(col)
	if !ok {
		return decimal.Zero, false
	}
	switch val := v.(type) {
	case string:
		if d, err := decimal.NewFromString(val); err == nil {
			return d, true
		}
	case float64:
		return decimal.NewFromFloat(val), true
	case int64:
		return decimal.NewFromInt(val), true
	}
	r.fail(col, v, "decimal")
	return decimal.Zero, false
}

func (r *Row) UUID(col string) uuid.UUID {
	v, ok := r.get(col)
	if !ok {
		return uuid.Nil
	}
	switch val := v.(type) {
	case string:
		if len(val) == 16 {
			return uuid.UUID([]byte(val))
		}
		if id, err := uuid.Parse(val); err == nil {
			return id
		}
	case [16]byte:
		return uuid.UUID(val)
	}
	r.fail(col, v, "uuid")
	return uuid.Nil
}

// timeLayouts covers the text forms SQLite hands back.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (r *Row) Time(col string) time.Time {
	t, _ := r.timeValue(col)
	return t
}

func (r *Row) NullTime(col string) *time.Time {
	if t, ok := r.timeValue(col); ok {
		return &t
	}
	return nil
}

func (r *Row) timeValue(col string) (time.Time, bool) {
	v, ok := r.get(col)
	if !ok {
		return time.Time{}, false
	}
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, val); err == nil {
				return t, true
			}
		}
	}
	r.fail(col, v, "time")
	return time.Time{}, false
}

// NullDuration reads a nanosecond BIGINT.
func (r *Row) NullDuration(col string) *time.Duration {
	if n, ok := r.intValue(col); ok {
		d := time.Duration(n)
		return &d
	}
	return nil
}

// Strings decodes an array column; NULL stays nil.
func (r *Row) Strings(col string) []string {
	v, ok := r.get(col)
	if !ok {
		return nil
	}
	out, err := r.dialect.ScanArray(v)
	if err != nil {
		if r.err == nil {
			r.err = fmt.Errorf("column %s: %w", col, err)
		}
		return nil
	}
	return out
}
