package adapter

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redbco/wings/pkg/dbcapabilities"
)

// Standard adapter errors
var (
	// ErrBackendNotFound is returned when no backend is registered for a database type
	ErrBackendNotFound = errors.New("backend not found")

	// ErrInvalidConfiguration is returned when a backend configuration is invalid
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// Kind is a member of the error taxonomy every operation reports through.
type Kind string

const (
	KindNotFound      Kind = "NotFound"
	KindBadRequest    Kind = "BadRequest"
	KindForbidden     Kind = "Forbidden"
	KindUnavailable   Kind = "Unavailable"
	KindUnprocessable Kind = "Unprocessable"
	KindGeneral       Kind = "GeneralError"
)

var kindStatus = map[Kind]int{
	KindNotFound:      http.StatusNotFound,
	KindBadRequest:    http.StatusBadRequest,
	KindForbidden:     http.StatusForbidden,
	KindUnavailable:   http.StatusServiceUnavailable,
	KindUnprocessable: http.StatusUnprocessableEntity,
	KindGeneral:       http.StatusInternalServerError,
}

// Status returns the HTTP status code conventionally used for the kind.
func (k Kind) Status() int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Kinds returns every taxonomy member.
func Kinds() []Kind {
	return []Kind{KindNotFound, KindBadRequest, KindForbidden, KindUnavailable, KindUnprocessable, KindGeneral}
}

// Error is a classified adapter error. Message is the original message and
// Cause the raw error it was built from, if any.
type Error struct {
	Kind         Kind
	Message      string
	Code         string
	DatabaseType dbcapabilities.DatabaseID
	Cause        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind, so the sentinels below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Status returns the HTTP status code for the error's kind.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// Sentinels for errors.Is checks against a kind.
var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrBadRequest    = &Error{Kind: KindBadRequest}
	ErrForbidden     = &Error{Kind: KindForbidden}
	ErrUnavailable   = &Error{Kind: KindUnavailable}
	ErrUnprocessable = &Error{Kind: KindUnprocessable}
	ErrGeneral       = &Error{Kind: KindGeneral}
)

// NewError creates an Error of the given kind.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewNotFound creates a NotFound error.
func NewNotFound(format string, args ...interface{}) *Error {
	return NewError(KindNotFound, format, args...)
}

// NewBadRequest creates a BadRequest error.
func NewBadRequest(format string, args ...interface{}) *Error {
	return NewError(KindBadRequest, format, args...)
}

// NewForbidden creates a Forbidden error.
func NewForbidden(format string, args ...interface{}) *Error {
	return NewError(KindForbidden, format, args...)
}

// NewUnavailable creates an Unavailable error.
func NewUnavailable(format string, args ...interface{}) *Error {
	return NewError(KindUnavailable, format, args...)
}

// NewUnprocessable creates an Unprocessable error.
func NewUnprocessable(format string, args ...interface{}) *Error {
	return NewError(KindUnprocessable, format, args...)
}

// NewGeneralError creates a GeneralError.
func NewGeneralError(format string, args ...interface{}) *Error {
	return NewError(KindGeneral, format, args...)
}

// KindOf returns the taxonomy kind of err. Unclassified errors report
// KindGeneral and a nil error reports the empty kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindGeneral
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsBadRequest reports whether err is a BadRequest error.
func IsBadRequest(err error) bool {
	return KindOf(err) == KindBadRequest
}
