// Package apperr defines the error taxonomy surfaced by the HTTP layer.
//
// Every expected failure is an *Error carrying a Kind; the kind alone decides
// the HTTP status and the machine-readable code.  Anything that is not an
// *Error is treated as an unexpected, non-operational failure.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	Internal Kind = iota
	AuthenticationRequired
	AuthenticationExpired
	AccessDenied
	NotFound
	InvalidState
	ValidationFailed
	InvalidSignature
	Conflict
)

var kindInfo = map[Kind]struct {
	status int
	code   string
}{
	Internal:               {http.StatusInternalServerError, "INTERNAL"},
	AuthenticationRequired: {http.StatusUnauthorized, "AUTHENTICATION_REQUIRED"},
	AuthenticationExpired:  {http.StatusUnauthorized, "AUTHENTICATION_EXPIRED"},
	AccessDenied:           {http.StatusForbidden, "ACCESS_DENIED"},
	NotFound:               {http.StatusNotFound, "NOT_FOUND"},
	InvalidState:           {http.StatusBadRequest, "INVALID_STATE"},
	ValidationFailed:       {http.StatusBadRequest, "VALIDATION_FAILED"},
	InvalidSignature:       {http.StatusBadRequest, "INVALID_SIGNATURE"},
	Conflict:               {http.StatusConflict, "CONFLICT"},
}

// Status returns the HTTP status for k.
func (k Kind) Status() int { return kindInfo[k].status }

// Code returns the stable string clients switch on.
func (k Kind) Code() string { return kindInfo[k].code }

func (k Kind) String() string { return k.Code() }

// FieldError is one entry of a ValidationFailed detail list.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is an operational error: its message is safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so callers can write
// errors.Is(err, apperr.New(apperr.NotFound, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Operational reports whether the message may be returned verbatim.
func (e *Error) Operational() bool { return e.Kind != Internal }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Unauthenticated(msg string) *Error { return New(AuthenticationRequired, msg) }
func Expired(msg string) *Error         { return New(AuthenticationExpired, msg) }
func Forbidden(msg string) *Error       { return New(AccessDenied, msg) }
func NotFoundf(format string, a ...any) *Error {
	return New(NotFound, fmt.Sprintf(format, a...))
}
func BadState(msg string) *Error { return New(InvalidState, msg) }

func Validation(msg string, fields ...FieldError) *Error {
	return &Error{Kind: ValidationFailed, Message: msg, Fields: fields}
}

// KindOf returns the kind of the first *Error in err's chain, Internal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
