package query

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Operator is the comparison a FilterDescriptor applies to its field.
type Operator int

const (
	Equal Operator = iota
	NotEqual
	StartsWith
	EndsWith
	GreaterThan
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
	Between
	Contains
	NotContains
	In
	NotIn
	IsNull
	IsNotNull
	IsEmpty
	IsNotEmpty
	IsNullOrWhiteSpace
	IsNotNullOrWhiteSpace
)

var operatorNames = [...]string{
	Equal:                 "Equal",
	NotEqual:              "NotEqual",
	StartsWith:            "StartsWith",
	EndsWith:              "EndsWith",
	GreaterThan:           "GreaterThan",
	GreaterThanOrEqual:    "GreaterThanOrEqual",
	LessThan:              "LessThan",
	LessThanOrEqual:       "LessThanOrEqual",
	Between:               "Between",
	Contains:              "Contains",
	NotContains:           "NotContains",
	In:                    "In",
	NotIn:                 "NotIn",
	IsNull:                "IsNull",
	IsNotNull:             "IsNotNull",
	IsEmpty:               "IsEmpty",
	IsNotEmpty:            "IsNotEmpty",
	IsNullOrWhiteSpace:    "IsNullOrWhiteSpace",
	IsNotNullOrWhiteSpace: "IsNotNullOrWhiteSpace",
}

// Valid reports whether o is one of the declared operators.
func (o Operator) Valid() bool {
	return o >= Equal && o <= IsNotNullOrWhiteSpace
}

func (o Operator) String() string {
	if !o.Valid() {
		return fmt.Sprintf("Operator(%d)", int(o))
	}
	return operatorNames[o]
}

// ParseOperator resolves an operator by name, case-insensitively.
func ParseOperator(s string) (Operator, error) {
	for i, name := range operatorNames {
		if strings.EqualFold(name, s) {
			return Operator(i), nil
		}
	}
	return 0, newError(UnsupportedOperator, "", "unknown operator %q", s)
}

func (o Operator) MarshalJSON() ([]byte, error) {
	if !o.Valid() {
		return nil, newError(UnsupportedOperator, "", "unknown operator %d", int(o))
	}
	return json.Marshal(o.String())
}

// UnmarshalJSON accepts either the operator name or its ordinal.
func (o *Operator) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		op, err := ParseOperator(name)
		if err != nil {
			return err
		}
		*o = op
		return nil
	}
	n, err := strconv.Atoi(string(b))
	if err != nil || !Operator(n).Valid() {
		return newError(UnsupportedOperator, "", "unknown operator %s", string(b))
	}
	*o = Operator(n)
	return nil
}

type arity int

const (
	arityNone arity = iota
	arityOne
	arityTwo
	arityAtLeastOne
)

func (o Operator) arity() arity {
	switch o {
	case Between:
		return arityTwo
	case Contains, NotContains, In, NotIn:
		return arityAtLeastOne
	case IsNull, IsNotNull, IsEmpty, IsNotEmpty, IsNullOrWhiteSpace, IsNotNullOrWhiteSpace:
		return arityNone
	default:
		return arityOne
	}
}

// family groups operators by the capability a field kind needs to serve them.
type family int

const (
	familyEquality family = iota
	familyOrdering
	familyAffix
	familyMembership
	familyNull
	familyEmptiness
)

func (o Operator) family() family {
	switch o {
	case Equal, NotEqual:
		return familyEquality
	case GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual, Between:
		return familyOrdering
	case StartsWith, EndsWith:
		return familyAffix
	case Contains, NotContains, In, NotIn:
		return familyMembership
	case IsNull, IsNotNull:
		return familyNull
	default:
		return familyEmptiness
	}
}

// Logic combines a criterion with the criteria before it.
type Logic int

const (
	// LogicUnset inherits the enclosing FilterRequest's logic.
	LogicUnset Logic = iota
	And
	Or
)

func (l Logic) String() string {
	switch l {
	case And:
		return "AND"
	case Or:
		return "OR"
	default:
		return ""
	}
}

func (l Logic) MarshalJSON() ([]byte, error) {
	if l == LogicUnset {
		return []byte("null"), nil
	}
	return json.Marshal(l.String())
}

func (l *Logic) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*l = LogicUnset
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// numeric form: 0 = AND, 1 = OR
		n, nerr := strconv.Atoi(string(b))
		if nerr != nil || n < 0 || n > 1 {
			return newError(UnsupportedOperator, "", "unknown logical operator %s", string(b))
		}
		*l = And + Logic(n)
		return nil
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AND", "":
		*l = And
	case "OR":
		*l = Or
	default:
		return newError(UnsupportedOperator, "", "unknown logical operator %q", s)
	}
	return nil
}

// Direction is the sort order of a SortDescriptor.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Direction) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		n, nerr := strconv.Atoi(string(b))
		if nerr != nil || n < 0 || n > 1 {
			return newError(UnsupportedOperator, "", "unknown sort direction %s", string(b))
		}
		*d = Direction(n)
		return nil
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ASC", "ASCENDING", "":
		*d = Ascending
	case "DESC", "DESCENDING":
		*d = Descending
	default:
		return newError(UnsupportedOperator, "", "unknown sort direction %q", s)
	}
	return nil
}
