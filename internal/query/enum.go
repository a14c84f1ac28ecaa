package query

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Flag is the underlying integer of an enumerated field.
type Flag interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// enumField compares through the underlying integer. In/Contains and
// NotIn/NotContains are flag tests, not value-set membership: a value
// matches when it shares a bit with any candidate.
type enumField[T any, E Flag] struct {
	fieldInfo
	get   func(T) (E, bool)
	names map[string]int64
}

// EnumField declares a flag-style enum. names maps symbolic names to values
// so descriptors may send "Read", "read|write" or "3".
func EnumField[T any, E Flag](name string, get func(T) E, names map[string]E) Field[T] {
	return &enumField[T, E]{
		fieldInfo: newInfo(name, KindEnum, false),
		get:       func(t T) (E, bool) { return get(t), true },
		names:     lowerNames(names),
	}
}

func NullableEnumField[T any, E Flag](name string, get func(T) *E, names map[string]E) Field[T] {
	return &enumField[T, E]{
		fieldInfo: newInfo(name, KindEnum, true),
		get: func(t T) (E, bool) {
			if p := get(t); p != nil {
				return *p, true
			}
			return 0, false
		},
		names: lowerNames(names),
	}
}

func lowerNames[E Flag](names map[string]E) map[string]int64 {
	out := make(map[string]int64, len(names))
	for k, v := range names {
		out[strings.ToLower(k)] = int64(v)
	}
	return out
}

func (f *enumField[T, E]) Parse(raw string) (any, error) {
	return f.parse(raw)
}

// parse accepts an integer, a flag name or names joined by "|".
func (f *enumField[T, E]) parse(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	var mask int64
	for _, part := range strings.Split(s, "|") {
		v, ok := f.names[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return 0, parseError(f.name, raw, fmt.Errorf("unknown flag %q", part))
		}
		mask |= v
	}
	return mask, nil
}

func (f *enumField[T, E]) value(t T) (int64, bool) {
	v, ok := f.get(t)
	return int64(v), ok
}

func (f *enumField[T, E]) text(T) (string, bool) { return "", false }

func (f *enumField[T, E]) compare(a, b T) int {
	va, okA := f.value(a)
	vb, okB := f.value(b)
	if c, done := compareNulls(okA, okB); done {
		return c
	}
	return cmp.Compare(va, vb)
}

func (f *enumField[T, E]) predicate(c Criterion) (Predicate[T], error) {
	if !Supports(KindEnum, c.Operator) {
		return nil, unsupported(f.name, KindEnum, c.Operator)
	}

	switch c.Operator {
	case IsNull:
		return func(t T) bool { _, ok := f.value(t); return !ok }, nil
	case IsNotNull:
		return func(t T) bool { _, ok := f.value(t); return ok }, nil
	case In, Contains, NotIn, NotContains:
		set, err := f.flags(c.Values())
		if err != nil {
			return nil, err
		}
		if c.Operator == In || c.Operator == Contains {
			return f.match(set.Matches, false), nil
		}
		return f.match(func(v int64) bool { return !set.Matches(v) }, true), nil
	case Between:
		from, to := c.Range()
		lo, err := f.parse(from)
		if err != nil {
			return nil, err
		}
		hi, err := f.parse(to)
		if err != nil {
			return nil, err
		}
		return f.match(func(v int64) bool { return v >= lo && v <= hi }, false), nil
	}

	want, err := f.parse(c.Value())
	if err != nil {
		return nil, err
	}
	switch c.Operator {
	case Equal:
		return f.match(func(v int64) bool { return v == want }, false), nil
	case NotEqual:
		return f.match(func(v int64) bool { return v != want }, true), nil
	case GreaterThan:
		return f.match(func(v int64) bool { return v > want }, false), nil
	case GreaterThanOrEqual:
		return f.match(func(v int64) bool { return v >= want }, false), nil
	case LessThan:
		return f.match(func(v int64) bool { return v < want }, false), nil
	case LessThanOrEqual:
		return f.match(func(v int64) bool { return v <= want }, false), nil
	}
	return nil, unsupported(f.name, KindEnum, c.Operator)
}

func (f *enumField[T, E]) flags(raw []string) (FlagSet, error) {
	var set FlagSet
	for _, r := range raw {
		v, err := f.parse(r)
		if err != nil {
			return FlagSet{}, err
		}
		set = set.Add(v)
	}
	return set, nil
}

func (f *enumField[T, E]) match(test func(int64) bool, onNull bool) Predicate[T] {
	return func(t T) bool {
		v, ok := f.value(t)
		if !ok {
			return onNull
		}
		return test(v)
	}
}

// FlagSet holds the candidates of an enum In/Contains: their ORed bits,
// and whether the zero value was named. Zero has no bits, so it is tracked
// apart from the mask.
type FlagSet struct {
	Mask int64
	Zero bool
}

func (s FlagSet) Add(v int64) FlagSet {
	if v == 0 {
		s.Zero = true
	}
	s.Mask |= v
	return s
}

// Matches reports whether v is zero and zero was named, or shares a bit
// with the mask.
func (s FlagSet) Matches(v int64) bool {
	return (s.Zero && v == 0) || v&s.Mask != 0
}
