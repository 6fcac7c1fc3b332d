// Package apperr defines the error taxonomy returned by every handler and the
// JSON envelope it is rendered into.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeTimeout      = "REQUEST_TIMEOUT"
	CodeInternal     = "INTERNAL_ERROR"
)

// Error is a classified application error. Two errors are equal under
// errors.Is when their codes match.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Wrap returns a copy of e carrying cause for logs. The cause is never sent
// to the client.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

// WithMessage returns a copy of e with a more specific client message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// WithDetails returns a copy of e carrying structured details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func newError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func Unauthorized(code, message string) *Error {
	return newError(http.StatusUnauthorized, code, message)
}

func Forbidden(code, message string) *Error {
	return newError(http.StatusForbidden, code, message)
}

func NotFound(code, message string) *Error {
	return newError(http.StatusNotFound, code, message)
}

func Validation(code, message string) *Error {
	return newError(http.StatusBadRequest, code, message)
}

func Conflict(code, message string) *Error {
	return newError(http.StatusConflict, code, message)
}

func Unavailable(code, message string) *Error {
	return newError(http.StatusServiceUnavailable, code, message)
}

// Timeout marks work abandoned at the request deadline.
func Timeout(code, message string) *Error {
	return newError(http.StatusGatewayTimeout, code, message)
}

// Internal classifies an unexpected failure. The cause is kept for logging.
func Internal(cause error) *Error {
	return newError(http.StatusInternalServerError, CodeInternal, "internal server error").Wrap(cause)
}

var (
	ErrUnauthorized = Unauthorized(CodeUnauthorized, "authentication required")
	ErrForbidden    = Forbidden(CodeForbidden, "you do not have access to this resource")
	ErrNotFound     = NotFound(CodeNotFound, "resource not found")
	ErrValidation   = Validation(CodeValidation, "invalid request")
	ErrConflict     = Conflict(CodeConflict, "conflicting state")
)

// Invalid is shorthand for a validation error with a specific message.
func Invalid(format string, args ...any) *Error {
	return ErrValidation.WithMessage(format, args...)
}

// From classifies any error. Unclassified errors become Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// codeForStatus maps bare HTTP statuses (echo's own errors) onto the taxonomy.
func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	case http.StatusGatewayTimeout:
		return CodeTimeout
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge,
		http.StatusUnsupportedMediaType, http.StatusMethodNotAllowed:
		return CodeValidation
	}
	if status >= 500 {
		return CodeInternal
	}
	return CodeValidation
}
