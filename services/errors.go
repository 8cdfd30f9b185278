package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a workflow failure so the transport can map it.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindState
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every service operation for
// caller-visible failures. Anything else is an internal error.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so errors.Is(err, ErrConflict)
// works for any conflict regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Kind sentinels for errors.Is.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrAuthorization  = &Error{Kind: KindAuthorization}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrState          = &Error{Kind: KindState}

	// ErrAlreadyReviewed is the conflict for a second review of the same
	// manuscript by the same reviewer.
	ErrAlreadyReviewed = &Error{Kind: KindConflict, Message: "you have already reviewed this manuscript"}
)

func validationError(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func authenticationError(msg string) error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

func authorizationError(msg string) error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func notFoundError(what string) error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func conflictError(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

func stateError(format string, args ...any) error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or 0 for internal errors.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
