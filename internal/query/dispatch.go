package query

import "strings"

// Supports reports whether a field kind can serve an operator. Every kind is
// matched explicitly so adding a kind without deciding its capabilities
// falls through to false.
func Supports(kind FieldKind, op Operator) bool {
	if !op.Valid() {
		return false
	}
	fam := op.family()
	switch kind {
	case KindString:
		return true
	case KindInt32, KindInt64, KindFloat32, KindFloat64, KindDecimal,
		KindDuration, KindTime, KindTimeOffset, KindEnum:
		return fam == familyEquality || fam == familyOrdering || fam == familyMembership || fam == familyNull
	case KindBool, KindUUID:
		return fam == familyEquality || fam == familyMembership || fam == familyNull
	case KindCollection:
		return fam == familyMembership || fam == familyNull || op == IsEmpty || op == IsNotEmpty
	}
	return false
}

// predicate builds the typed comparison for a scalar field.
func (f *scalar[T, V]) predicate(c Criterion) (Predicate[T], error) {
	if !Supports(f.kind, c.Operator) {
		return nil, unsupported(f.name, f.kind, c.Operator)
	}

	switch c.Operator {
	case IsNull:
		return func(t T) bool { _, ok := f.get(t); return !ok }, nil
	case IsNotNull:
		return func(t T) bool { _, ok := f.get(t); return ok }, nil
	case IsEmpty:
		return f.match(func(v V) bool { return f.codec.text(v) == "" }, false), nil
	case IsNotEmpty:
		return f.match(func(v V) bool { return f.codec.text(v) != "" }, true), nil
	case IsNullOrWhiteSpace:
		return f.match(func(v V) bool { return strings.TrimSpace(f.codec.text(v)) == "" }, true), nil
	case IsNotNullOrWhiteSpace:
		return f.match(func(v V) bool { return strings.TrimSpace(f.codec.text(v)) != "" }, false), nil
	case StartsWith:
		prefix := c.Value()
		return f.match(func(v V) bool { return strings.HasPrefix(f.codec.text(v), prefix) }, false), nil
	case EndsWith:
		suffix := c.Value()
		return f.match(func(v V) bool { return strings.HasSuffix(f.codec.text(v), suffix) }, false), nil
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
		return f.match(func(v V) bool {
			return f.codec.compare(v, lo) >= 0 && f.codec.compare(v, hi) <= 0
		}, false), nil
	case Contains, NotContains:
		if f.kind == KindString {
			terms := c.Values()
			m := func(v V) bool {
				s := f.codec.text(v)
				for _, term := range terms {
					if strings.Contains(s, term) {
						return true
					}
				}
				return false
			}
			if c.Operator == Contains {
				return f.match(m, false), nil
			}
			return f.match(func(v V) bool { return !m(v) }, true), nil
		}
		return f.membership(c.Values(), c.Operator == Contains)
	case In, NotIn:
		return f.membership(c.Values(), c.Operator == In)
	}

	v, err := f.parse(c.Value())
	if err != nil {
		return nil, err
	}
	cmp := f.codec.compare
	switch c.Operator {
	case Equal:
		return f.match(func(x V) bool { return f.codec.equal(x, v) }, false), nil
	case NotEqual:
		return f.match(func(x V) bool { return !f.codec.equal(x, v) }, true), nil
	case GreaterThan:
		return f.match(func(x V) bool { return cmp(x, v) > 0 }, false), nil
	case GreaterThanOrEqual:
		return f.match(func(x V) bool { return cmp(x, v) >= 0 }, false), nil
	case LessThan:
		return f.match(func(x V) bool { return cmp(x, v) < 0 }, false), nil
	case LessThanOrEqual:
		return f.match(func(x V) bool { return cmp(x, v) <= 0 }, false), nil
	}
	return nil, unsupported(f.name, f.kind, c.Operator)
}

// match lifts a test on the value into a predicate on T; onNull is the
// result for an absent value.
func (f *scalar[T, V]) match(test func(V) bool, onNull bool) Predicate[T] {
	return func(t T) bool {
		v, ok := f.get(t)
		if !ok {
			return onNull
		}
		return test(v)
	}
}

// membership ORs per-value equality for In, and ANDs per-value inequality
// for NotIn.
func (f *scalar[T, V]) membership(raw []string, in bool) (Predicate[T], error) {
	set := make([]V, 0, len(raw))
	for _, r := range raw {
		v, err := f.parse(r)
		if err != nil {
			return nil, err
		}
		set = append(set, v)
	}
	if in {
		return f.match(func(x V) bool {
			for _, v := range set {
				if f.codec.equal(x, v) {
					return true
				}
			}
			return false
		}, false), nil
	}
	return f.match(func(x V) bool {
		for _, v := range set {
			if f.codec.equal(x, v) {
				return false
			}
		}
		return true
	}, true), nil
}
