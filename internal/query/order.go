package query

// Comparator orders two entities: negative when a sorts first.
type Comparator[T any] func(a, b T) int

// SortKey is a resolved SortDescriptor.
type SortKey[T any] struct {
	Field     Field[T]
	Direction Direction
}

// Compare applies the field's typed comparison, reversed for descending keys.
func (k SortKey[T]) Compare(a, b T) int {
	c := k.Field.compare(a, b)
	if k.Direction == Descending {
		return -c
	}
	return c
}

// Chain combines keys into one comparator; later keys break ties of earlier ones.
func Chain[T any](keys []SortKey[T]) Comparator[T] {
	return func(a, b T) int {
		for _, k := range keys {
			if c := k.Compare(a, b); c != 0 {
				return c
			}
		}
		return 0
	}
}

// SortKeys resolves descriptors against the schema. Unknown fields fail
// with UnknownField.
func SortKeys[T any](s *Schema[T], orders []SortDescriptor) ([]SortKey[T], error) {
	keys := make([]SortKey[T], 0, len(orders))
	for _, o := range orders {
		f, err := s.Field(o.Field)
		if err != nil {
			return nil, err
		}
		if o.Direction != Ascending && o.Direction != Descending {
			return nil, newError(UnsupportedOperator, o.Field, "unknown sort direction %d", int(o.Direction))
		}
		keys = append(keys, SortKey[T]{Field: f, Direction: o.Direction})
	}
	return keys, nil
}

// ApplyOrder sorts src by the descriptors. The first key replaces the
// source's existing ordering when replaceOrder is set and is appended to it
// otherwise; every later key is chained after the previous one.
func ApplyOrder[T any](src Source[T], s *Schema[T], orders []SortDescriptor, replaceOrder bool) (Source[T], error) {
	keys, err := SortKeys(s, orders)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		src = src.OrderBy(k, i == 0 && replaceOrder)
	}
	return src, nil
}
