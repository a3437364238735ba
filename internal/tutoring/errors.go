package tutoring

import (
	"errors"
	"fmt"
)

// Store sentinels. Implementations wrap or return these directly.
var (
	ErrNoRows    = errors.New("no rows")
	ErrDuplicate = errors.New("duplicate record")
)

// Kind classifies a domain failure for transport mapping.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	}
	return "unknown"
}

// FieldError is used to indicate an error with a specific input field.
type FieldError struct {
	Field string
	Error string
}

// Error is returned by Service operations for expected failures.
type Error struct {
	Kind   Kind
	Msg    string
	Fields []FieldError
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// NewValidationError builds a validation failure with optional field details.
func NewValidationError(msg string, flds ...FieldError) error {
	return &Error{Kind: KindValidation, Msg: msg, Fields: flds}
}

func notFound(what string) error {
	return newError(KindNotFound, "%s not found", what)
}

func conflict(format string, args ...any) error {
	return newError(KindConflict, format, args...)
}

func invalidState(format string, args ...any) error {
	return newError(KindInvalidState, format, args...)
}

// KindOf returns the Kind of err, or 0 if it is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool     { return KindOf(err) == KindConflict }
func IsValidation(err error) bool   { return KindOf(err) == KindValidation }
func IsInvalidState(err error) bool { return KindOf(err) == KindInvalidState }
