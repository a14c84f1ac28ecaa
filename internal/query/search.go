package query

import (
	"strings"

	"golang.org/x/text/cases"
)

// SearchPredicate matches entities where any textual field contains term,
// ignoring case. A blank term matches everything; absent values never match.
func SearchPredicate[T any](s *Schema[T], term string) Predicate[T] {
	term = strings.TrimSpace(term)
	if term == "" {
		return All[T]()
	}
	needle := Fold(term)
	fields := s.TextFields()
	return func(t T) bool {
		for _, f := range fields {
			v, ok := f.text(t)
			if ok && strings.Contains(Fold(v), needle) {
				return true
			}
		}
		return false
	}
}

// Fold applies Unicode case folding, the comparison form of free-text
// search. A Caser keeps state, so each call gets its own.
func Fold(s string) string {
	return cases.Fold().String(s)
}
