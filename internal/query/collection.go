package query

import (
	"cmp"
	"fmt"
	"slices"
)

// collectionField is a property holding a list of values, e.g. tags.
type collectionField[T any, E comparable] struct {
	fieldInfo
	get   func(T) []E
	parse func(string) (E, error)
}

// CollectionField declares a list-valued field. parse converts a raw
// candidate into the element type.
func CollectionField[T any, E comparable](name string, get func(T) []E, parse func(string) (E, error)) Field[T] {
	return &collectionField[T, E]{
		fieldInfo: newInfo(name, KindCollection, true),
		get:       get,
		parse:     parse,
	}
}

// StringsField is a CollectionField of strings.
func StringsField[T any](name string, get func(T) []string) Field[T] {
	return CollectionField(name, get, func(s string) (string, error) { return s, nil })
}

func (f *collectionField[T, E]) Parse(raw string) (any, error) {
	v, err := f.parse(raw)
	if err != nil {
		return nil, parseError(f.name, raw, err)
	}
	return v, nil
}

func (f *collectionField[T, E]) text(T) (string, bool) { return "", false }

// compare has no natural order for lists; it falls back to the formatted value.
func (f *collectionField[T, E]) compare(a, b T) int {
	return cmp.Compare(fmt.Sprint(f.get(a)), fmt.Sprint(f.get(b)))
}

func (f *collectionField[T, E]) predicate(c Criterion) (Predicate[T], error) {
	if !Supports(KindCollection, c.Operator) {
		return nil, unsupported(f.name, KindCollection, c.Operator)
	}

	switch c.Operator {
	case IsNull:
		return func(t T) bool { return f.get(t) == nil }, nil
	case IsNotNull:
		return func(t T) bool { return f.get(t) != nil }, nil
	case IsEmpty:
		return func(t T) bool { l := f.get(t); return l != nil && len(l) == 0 }, nil
	case IsNotEmpty:
		return func(t T) bool { l := f.get(t); return l == nil || len(l) > 0 }, nil
	}

	candidates := make([]E, 0, len(c.Values()))
	for _, r := range c.Values() {
		v, err := f.parse(r)
		if err != nil {
			return nil, parseError(f.name, r, err)
		}
		candidates = append(candidates, v)
	}

	switch c.Operator {
	case In, Contains:
		return func(t T) bool { return ContainsAny(f.get(t), candidates) }, nil
	default:
		// NotIn excludes only values holding every candidate.
		return func(t T) bool { return !ContainsAll(f.get(t), candidates) }, nil
	}
}

// ContainsAny reports whether list holds at least one candidate.
func ContainsAny[E comparable](list, candidates []E) bool {
	for _, c := range candidates {
		if slices.Contains(list, c) {
			return true
		}
	}
	return false
}

// ContainsAll reports whether list holds every candidate.
func ContainsAll[E comparable](list, candidates []E) bool {
	for _, c := range candidates {
		if !slices.Contains(list, c) {
			return false
		}
	}
	return true
}
