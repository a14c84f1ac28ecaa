package query

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FieldKind is the closed set of property types the engine can filter and
// sort on.
type FieldKind int

const (
	KindString FieldKind = iota
	KindInt32
	KindInt64
	KindBool
	KindUUID
	KindDuration
	KindTime
	KindTimeOffset
	KindFloat32
	KindFloat64
	KindDecimal
	KindEnum
	KindCollection
)

var kindNames = [...]string{
	KindString:     "string",
	KindInt32:      "int32",
	KindInt64:      "int64",
	KindBool:       "bool",
	KindUUID:       "uuid",
	KindDuration:   "duration",
	KindTime:       "datetime",
	KindTimeOffset: "datetimeoffset",
	KindFloat32:    "float32",
	KindFloat64:    "float64",
	KindDecimal:    "decimal",
	KindEnum:       "enum",
	KindCollection: "collection",
}

func (k FieldKind) String() string {
	if k < KindString || k > KindCollection {
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
	return kindNames[k]
}

// Field describes one queryable property of T. The set of implementations is
// closed: fields are built with the constructors in this package.
type Field[T any] interface {
	// Name is the public name used by descriptors.
	Name() string
	// Column is the storage column, the snake_case form of Name.
	Column() string
	Kind() FieldKind
	Nullable() bool
	// Parse converts a raw descriptor value into the field's native type
	// (the element type for collections, the flag mask for enums).
	Parse(raw string) (any, error)

	predicate(c Criterion) (Predicate[T], error)
	compare(a, b T) int
	text(t T) (string, bool)
}

type fieldInfo struct {
	name     string
	column   string
	kind     FieldKind
	nullable bool
}

func newInfo(name string, kind FieldKind, nullable bool) fieldInfo {
	return fieldInfo{name: name, column: columnName(name), kind: kind, nullable: nullable}
}

func (f fieldInfo) Name() string    { return f.name }
func (f fieldInfo) Column() string  { return f.column }
func (f fieldInfo) Kind() FieldKind { return f.kind }
func (f fieldInfo) Nullable() bool  { return f.nullable }

// scalar is every non-enum, non-collection field.
type scalar[T, V any] struct {
	fieldInfo
	get   func(T) (V, bool)
	codec codec[V]
}

func (f *scalar[T, V]) Parse(raw string) (any, error) {
	return f.parse(raw)
}

func (f *scalar[T, V]) parse(raw string) (V, error) {
	v, err := f.codec.parse(raw)
	if err != nil {
		var zero V
		return zero, parseError(f.name, raw, err)
	}
	return v, nil
}

func (f *scalar[T, V]) text(t T) (string, bool) {
	if f.codec.text == nil {
		return "", false
	}
	v, ok := f.get(t)
	if !ok {
		return "", false
	}
	return f.codec.text(v), true
}

func (f *scalar[T, V]) compare(a, b T) int {
	va, okA := f.get(a)
	vb, okB := f.get(b)
	if c, done := compareNulls(okA, okB); done {
		return c
	}
	return f.codec.compare(va, vb)
}

// compareNulls orders absent values first. done is false when both are present.
func compareNulls(okA, okB bool) (c int, done bool) {
	switch {
	case okA && okB:
		return 0, false
	case !okA && !okB:
		return 0, true
	case !okA:
		return -1, true
	default:
		return 1, true
	}
}

func newScalar[T, V any](name string, kind FieldKind, c codec[V], get func(T) V) Field[T] {
	return &scalar[T, V]{
		fieldInfo: newInfo(name, kind, false),
		get:       func(t T) (V, bool) { return get(t), true },
		codec:     c,
	}
}

func newNullable[T, V any](name string, kind FieldKind, c codec[V], get func(T) *V) Field[T] {
	return &scalar[T, V]{
		fieldInfo: newInfo(name, kind, true),
		get: func(t T) (V, bool) {
			if p := get(t); p != nil {
				return *p, true
			}
			var zero V
			return zero, false
		},
		codec: c,
	}
}

func StringField[T any](name string, get func(T) string) Field[T] {
	return newScalar(name, KindString, stringCodec, get)
}

func NullableStringField[T any](name string, get func(T) *string) Field[T] {
	return newNullable(name, KindString, stringCodec, get)
}

func Int32Field[T any](name string, get func(T) int32) Field[T] {
	return newScalar(name, KindInt32, int32Codec, get)
}

func NullableInt32Field[T any](name string, get func(T) *int32) Field[T] {
	return newNullable(name, KindInt32, int32Codec, get)
}

func Int64Field[T any](name string, get func(T) int64) Field[T] {
	return newScalar(name, KindInt64, int64Codec, get)
}

func NullableInt64Field[T any](name string, get func(T) *int64) Field[T] {
	return newNullable(name, KindInt64, int64Codec, get)
}

func BoolField[T any](name string, get func(T) bool) Field[T] {
	return newScalar(name, KindBool, boolCodec, get)
}

func NullableBoolField[T any](name string, get func(T) *bool) Field[T] {
	return newNullable(name, KindBool, boolCodec, get)
}

func UUIDField[T any](name string, get func(T) uuid.UUID) Field[T] {
	return newScalar(name, KindUUID, uuidCodec, get)
}

func NullableUUIDField[T any](name string, get func(T) *uuid.UUID) Field[T] {
	return newNullable(name, KindUUID, uuidCodec, get)
}

func DurationField[T any](name string, get func(T) time.Duration) Field[T] {
	return newScalar(name, KindDuration, durationCodec, get)
}

func NullableDurationField[T any](name string, get func(T) *time.Duration) Field[T] {
	return newNullable(name, KindDuration, durationCodec, get)
}

// TimeField is a date/time; descriptor values without an offset are UTC.
func TimeField[T any](name string, get func(T) time.Time) Field[T] {
	return newScalar(name, KindTime, timeCodec, get)
}

func NullableTimeField[T any](name string, get func(T) *time.Time) Field[T] {
	return newNullable(name, KindTime, timeCodec, get)
}

// TimeOffsetField is a date/time whose descriptor values must carry an
// explicit offset (RFC 3339).
func TimeOffsetField[T any](name string, get func(T) time.Time) Field[T] {
	return newScalar(name, KindTimeOffset, timeOffsetCodec, get)
}

func NullableTimeOffsetField[T any](name string, get func(T) *time.Time) Field[T] {
	return newNullable(name, KindTimeOffset, timeOffsetCodec, get)
}

func Float32Field[T any](name string, get func(T) float32) Field[T] {
	return newScalar(name, KindFloat32, float32Codec, get)
}

func NullableFloat32Field[T any](name string, get func(T) *float32) Field[T] {
	return newNullable(name, KindFloat32, float32Codec, get)
}

func Float64Field[T any](name string, get func(T) float64) Field[T] {
	return newScalar(name, KindFloat64, float64Codec, get)
}

func NullableFloat64Field[T any](name string, get func(T) *float64) Field[T] {
	return newNullable(name, KindFloat64, float64Codec, get)
}

func DecimalField[T any](name string, get func(T) decimal.Decimal) Field[T] {
	return newScalar(name, KindDecimal, decimalCodec, get)
}

func NullableDecimalField[T any](name string, get func(T) *decimal.Decimal) Field[T] {
	return newNullable(name, KindDecimal, decimalCodec, get)
}

// Schema is the set of queryable fields of T, looked up case-insensitively
// by name or by column.
type Schema[T any] struct {
	fields []Field[T]
	index  map[string]Field[T]
}

// NewSchema panics on duplicate names; schemas are declared once at startup.
func NewSchema[T any](fields ...Field[T]) *Schema[T] {
	s := &Schema[T]{fields: fields, index: make(map[string]Field[T], len(fields)*2)}
	for _, f := range fields {
		name := strings.ToLower(f.Name())
		if _, dup := s.index[name]; dup {
			panic(fmt.Sprintf("query: duplicate field %q", f.Name()))
		}
		s.index[name] = f
		if col := strings.ToLower(f.Column()); col != name {
			s.index[col] = f
		}
	}
	return s
}

// Field resolves a descriptor field name.
func (s *Schema[T]) Field(name string) (Field[T], error) {
	f, ok := s.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, unknownField(name)
	}
	return f, nil
}

// Fields returns all fields in declaration order.
func (s *Schema[T]) Fields() []Field[T] {
	return s.fields
}

// TextFields returns the string-kind fields, the targets of free-text search.
func (s *Schema[T]) TextFields() []Field[T] {
	var out []Field[T]
	for _, f := range s.fields {
		if f.Kind() == KindString {
			out = append(out, f)
		}
	}
	return out
}

// Columns returns the storage column of every field.
func (s *Schema[T]) Columns() []string {
	cols := make([]string, len(s.fields))
	for i, f := range s.fields {
		cols[i] = f.Column()
	}
	return cols
}

// columnName converts "bookedAt" to "booked_at" and "accountID" to "account_id".
func columnName(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
