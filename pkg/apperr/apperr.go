// Package apperr carries the error taxonomy shared by every service.
// Handlers classify failures once here instead of mapping them ad hoc at
// each endpoint.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Validation: malformed input, rejected synchronously.
	Validation Kind = iota
	// NotFound: entity missing. Inside async handlers this is
	// logged-and-skipped rather than surfaced.
	NotFound
	// Conflict: unique-constraint violation, e.g. a reference collision.
	Conflict
	// TransientInfra: broker/mailbox/peer unreachable. Logged as warning
	// and retried next cycle, never fatal.
	TransientInfra
	// Processing: a handler failed mid-event; the message is nacked and
	// redelivered, so the handler must be idempotent.
	Processing
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: Validation, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: NotFound, Msg: fmt.Sprintf(format, args...)}
}

// KindOf classifies any error; unclassified errors count as Processing.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Processing
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
