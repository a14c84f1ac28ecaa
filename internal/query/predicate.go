package query

// Predicate decides whether one entity belongs to a filtered result.
type Predicate[T any] func(T) bool

// All matches every entity.
func All[T any]() Predicate[T] {
	return func(T) bool { return true }
}

func (p Predicate[T]) And(q Predicate[T]) Predicate[T] {
	return func(t T) bool { return p(t) && q(t) }
}

func (p Predicate[T]) Or(q Predicate[T]) Predicate[T] {
	return func(t T) bool { return p(t) || q(t) }
}

func (p Predicate[T]) Not() Predicate[T] {
	return func(t T) bool { return !p(t) }
}

// Combine joins acc and next with the given logic; LogicUnset means AND.
func (p Predicate[T]) Combine(logic Logic, next Predicate[T]) Predicate[T] {
	if logic == Or {
		return p.Or(next)
	}
	return p.And(next)
}

// BuildPredicate folds criteria left to right. The first criterion seeds the
// accumulator and every later one is joined using its own Logic, so
// [A, B(and), C(or)] evaluates as (A && B) || C. No criteria match everything.
func BuildPredicate[T any](s *Schema[T], criteria ...Criterion) (Predicate[T], error) {
	if len(criteria) == 0 {
		return All[T](), nil
	}

	var acc Predicate[T]
	for i, c := range criteria {
		p, err := criterionPredicate(s, c)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			acc = p
			continue
		}
		acc = acc.Combine(c.Logic, p)
	}
	return acc, nil
}

func criterionPredicate[T any](s *Schema[T], c Criterion) (Predicate[T], error) {
	f, err := s.Field(c.Field)
	if err != nil {
		return nil, err
	}
	return f.predicate(c)
}

// Filter normalizes a FilterRequest and builds its predicate.
func Filter[T any](s *Schema[T], req *FilterRequest) (Predicate[T], []Criterion, error) {
	criteria, err := NormalizeAll(req)
	if err != nil {
		return nil, nil, err
	}
	p, err := BuildPredicate(s, criteria...)
	if err != nil {
		return nil, nil, err
	}
	return p, criteria, nil
}
