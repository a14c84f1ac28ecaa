package query

import "strings"

// Criterion is a FilterDescriptor whose values have been checked against the
// operator's arity. Only Normalize produces one; the value shape depends on
// the operator family.
type Criterion struct {
	Field    string
	Operator Operator
	Logic    Logic

	value string
	rng   [2]string
	list  []string
}

// Value returns the single operand of a one-value operator.
func (c Criterion) Value() string { return c.value }

// Range returns the (from, to) operands of Between.
func (c Criterion) Range() (from, to string) { return c.rng[0], c.rng[1] }

// Values returns the operand list of Contains, NotContains, In and NotIn.
func (c Criterion) Values() []string { return c.list }

// Normalize validates a descriptor's value count against its operator and
// reshapes the values. Blank values are dropped before counting.
func Normalize(d FilterDescriptor) (Criterion, error) {
	if !d.Operator.Valid() {
		return Criterion{}, newError(UnsupportedOperator, d.Field, "unknown operator %s", d.Operator)
	}

	values := make([]string, 0, len(d.Values))
	for _, v := range d.Values {
		if strings.TrimSpace(v) != "" {
			values = append(values, v)
		}
	}

	c := Criterion{Field: d.Field, Operator: d.Operator, Logic: d.Logic}
	switch d.Operator.arity() {
	case arityNone:
		if len(values) != 0 {
			return Criterion{}, arityError(d, "no values", len(values))
		}
	case arityOne:
		if len(values) != 1 {
			return Criterion{}, arityError(d, "exactly one value", len(values))
		}
		c.value = values[0]
	case arityTwo:
		if len(values) != 2 {
			return Criterion{}, arityError(d, "exactly two values", len(values))
		}
		c.rng = [2]string{values[0], values[1]}
	case arityAtLeastOne:
		if len(values) == 0 {
			return Criterion{}, arityError(d, "at least one value", 0)
		}
		c.list = values
	}
	return c, nil
}

// NormalizeAll normalizes every descriptor of a request in order. Descriptors
// without their own logic inherit the request's, which defaults to AND.
func NormalizeAll(req *FilterRequest) ([]Criterion, error) {
	if req.Empty() {
		return nil, nil
	}
	def := req.Logic
	if def == LogicUnset {
		def = And
	}
	out := make([]Criterion, 0, len(req.Details))
	for _, d := range req.Details {
		if d.Logic == LogicUnset {
			d.Logic = def
		}
		c, err := Normalize(d)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func arityError(d FilterDescriptor, want string, got int) *Error {
	return newError(InvalidFilterArity, d.Field, "operator %s on field %s requires %s, got %d", d.Operator, d.Field, want, got)
}
