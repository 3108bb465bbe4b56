// Package apperr defines the error kinds shared by the progress core, the
// services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for HTTP status mapping.
type Kind string

const (
	Internal         Kind = "internal"
	NotFound         Kind = "not_found"
	AccessDenied     Kind = "access_denied"
	Validation       Kind = "validation"
	ExternalService  Kind = "external_service"
	ExecutionTimeout Kind = "execution_timeout"
	AlreadyTerminal  Kind = "already_terminal"
	Conflict         Kind = "conflict"
	Unauthorized     Kind = "unauthorized"
)

// Error carries a Kind, a user-facing message, an optional machine code and
// the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Code    string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithCode returns a copy of e carrying a machine-readable code.
func (e *Error) WithCode(code string) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

// KindOf reports the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether a client may retry the same request unchanged.
func Retryable(err error) bool {
	switch KindOf(err) {
	case ExternalService, ExecutionTimeout, Conflict:
		return true
	}
	return false
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case NotFound:
		return http.StatusNotFound
	case AccessDenied:
		return http.StatusForbidden
	case Validation:
		return http.StatusBadRequest
	case ExternalService:
		return http.StatusBadGateway
	case ExecutionTimeout:
		return http.StatusGatewayTimeout
	case AlreadyTerminal, Conflict:
		return http.StatusConflict
	case Unauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

func Validationf(format string, args ...interface{}) *Error {
	return New(Validation, fmt.Sprintf(format, args...))
}
