package query

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies engine failures. The values double as API error codes.
type Kind string

const (
	InvalidFilterArity  Kind = "INVALID_FILTER_ARITY"
	UnsupportedOperator Kind = "UNSUPPORTED_OPERATOR"
	ValueParseError     Kind = "VALUE_PARSE_ERROR"
	UnknownField        Kind = "UNKNOWN_FIELD"
	PageIndexOutOfRange Kind = "PAGE_INDEX_OUT_OF_RANGE"
	Cancelled           Kind = "CANCELLED"
)

// Error is returned for every deterministic engine failure. None of them are
// worth retrying with the same input.
type Error struct {
	Kind    Kind   `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrUnknownField) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidFilterArity  = &Error{Kind: InvalidFilterArity, Message: "invalid filter arity"}
	ErrUnsupportedOperator = &Error{Kind: UnsupportedOperator, Message: "unsupported operator"}
	ErrValueParse          = &Error{Kind: ValueParseError, Message: "value parse error"}
	ErrUnknownField        = &Error{Kind: UnknownField, Message: "unknown field"}
	ErrPageIndexOutOfRange = &Error{Kind: PageIndexOutOfRange, Message: "page index out of range"}
	ErrCancelled           = &Error{Kind: Cancelled, Message: "cancelled"}
)

func newError(kind Kind, field string, format string, args ...any) *Error {
	return &Error{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

func unknownField(name string) *Error {
	return newError(UnknownField, name, "unknown field: %s", name)
}

func unsupported(field string, kind FieldKind, op Operator) *Error {
	return newError(UnsupportedOperator, field, "operator %s is not supported for %s field %s", op, kind, field)
}

func parseError(field, raw string, err error) *Error {
	return &Error{
		Kind:    ValueParseError,
		Field:   field,
		Message: fmt.Sprintf("invalid value %q for field %s", raw, field),
		Err:     err,
	}
}

// sourceError classifies a data source failure. Context cancellation and
// deadline expiry become Cancelled, everything else is wrapped as-is.
func sourceError(ctx context.Context, stage string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: Cancelled, Message: fmt.Sprintf("%s cancelled", stage), Err: err}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &Error{Kind: Cancelled, Message: fmt.Sprintf("%s cancelled", stage), Err: errors.Join(ctxErr, err)}
	}
	return fmt.Errorf("%s: %w", stage, err)
}

// KindOf returns the Kind of err, or "" when err is not an engine error.
func KindOf(err error) Kind {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return ""
}
