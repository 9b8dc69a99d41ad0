package tracker

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Service either wraps one of these
// or is an unexpected internal failure.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Error carries a kind, a client-facing message and optional per-field
// validation messages.
type Error struct {
	Kind   error
	Msg    string
	Fields map[string]string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

func validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFound(what string) error {
	return &Error{Kind: ErrNotFound, Msg: what + " not found"}
}

func forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Msg: msg}
}

func unauthorized(msg string) error {
	return &Error{Kind: ErrUnauthorized, Msg: msg}
}

func conflict(msg string) error {
	return &Error{Kind: ErrConflict, Msg: msg}
}
