// Package apperr carries tagged error kinds across the service boundary so
// handlers can map domain failures to HTTP statuses without string matching.
package apperr

import "errors"

// Kind classifies an application error.
type Kind int

const (
	// Internal is the default for unclassified failures (persistence, bugs).
	Internal Kind = iota
	// NotFound means the referenced entity does not exist.
	NotFound
	// Unauthorized means the caller identity could not be resolved.
	Unauthorized
	// Forbidden means the caller lacks the required privilege.
	Forbidden
	// Conflict means an invariant rejected the request (duplicate, full).
	Conflict
	// InvalidState means the operation ran outside its valid window or
	// against a record in the wrong status.
	InvalidState
)

// Error is an application error with a kind and message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap annotates err with a kind and message. Returns nil if err is nil.
func Wrap(kind Kind, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or Internal for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
