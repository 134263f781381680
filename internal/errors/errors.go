// Package errors defines the typed error taxonomy returned by mealdesk
// services. Handlers map these onto HTTP status codes; anything that is not a
// ServiceError is treated as an internal failure.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a service error.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInvalidState Code = "invalid_state"
	CodeForbidden    Code = "forbidden"
	CodeBadInput     Code = "bad_input"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal"
)

// ServiceError is a business-rule or validation failure with a stable code
// callers can branch on.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.cause }

// Is matches service errors by code so callers can use errors.Is with the
// package sentinels below.
func (e *ServiceError) Is(target error) bool {
	var se *ServiceError
	if errors.As(target, &se) {
		return se.Code == e.Code
	}
	return false
}

// WithDetails attaches a key/value pair for diagnostics and returns the error.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound     = &ServiceError{Code: CodeNotFound}
	ErrConflict     = &ServiceError{Code: CodeConflict}
	ErrInvalidState = &ServiceError{Code: CodeInvalidState}
	ErrForbidden    = &ServiceError{Code: CodeForbidden}
	ErrBadInput     = &ServiceError{Code: CodeBadInput}
	ErrUnauthorized = &ServiceError{Code: CodeUnauthorized}
	ErrInternal     = &ServiceError{Code: CodeInternal}
)

// NotFound reports a missing meal, canteen, order, user or setting.
func NotFound(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...), HTTPStatus: http.StatusNotFound}
}

// Conflict reports a duplicate, e.g. a second order for the same day.
func Conflict(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Code: CodeConflict, Message: fmt.Sprintf(format, args...), HTTPStatus: http.StatusConflict}
}

// InvalidState reports an operation against an inactive meal or canteen.
func InvalidState(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Code: CodeInvalidState, Message: fmt.Sprintf(format, args...), HTTPStatus: http.StatusBadRequest}
}

// Forbidden reports a permission or cutoff violation.
func Forbidden(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Code: CodeForbidden, Message: fmt.Sprintf(format, args...), HTTPStatus: http.StatusForbidden}
}

// BadInput reports malformed request data such as an unparsable date.
func BadInput(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Code: CodeBadInput, Message: fmt.Sprintf(format, args...), HTTPStatus: http.StatusBadRequest}
}

// Unauthorized reports a missing or invalid credential.
func Unauthorized(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: fmt.Sprintf(format, args...), HTTPStatus: http.StatusUnauthorized}
}

// Internal wraps an infrastructure failure (storage unavailability and the
// like) that must not leak implementation detail to callers.
func Internal(cause error) *ServiceError {
	return &ServiceError{
		Code:       CodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		cause:      cause,
	}
}

// HTTPStatus resolves a status code for any error.
func HTTPStatus(err error) int {
	var se *ServiceError
	if errors.As(err, &se) && se.HTTPStatus != 0 {
		return se.HTTPStatus
	}
	return http.StatusInternalServerError
}
