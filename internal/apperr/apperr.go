// Package apperr defines the typed error taxonomy every handler and service
// returns, and the HTTP status each one externalizes as.
package apperr

import (
	"net/http"

	"github.com/pkg/errors"
)

// Code is a machine-readable wire error code (spec §7).
type Code string

const (
	CodeInvalidSignature  Code = "INVALID_SIGNATURE"
	CodeTokenExpired      Code = "TOKEN_EXPIRED"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeValidationError   Code = "VALIDATION_ERROR"
	CodeInvalidLocation   Code = "INVALID_LOCATION"
	CodeBadRequest        Code = "BAD_REQUEST"
	CodeTooFar            Code = "TOO_FAR"
	CodeSpeedViolation    Code = "SPEED_VIOLATION"
	CodeCooldown          Code = "COOLDOWN"
	CodeForbidden         Code = "FORBIDDEN"
	CodeTitanNotFound     Code = "TITAN_NOT_FOUND"
	CodeAlreadyCaptured   Code = "ALREADY_CAPTURED"
	CodeTitanExpired      Code = "TITAN_EXPIRED"
	CodePlayerNotFound    Code = "PLAYER_NOT_FOUND"
	CodeNotFound          Code = "NOT_FOUND"
	CodeDatabaseError     Code = "DATABASE_ERROR"
	CodeCacheError        Code = "CACHE_ERROR"
	CodeInternalError     Code = "INTERNAL_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeRateLimited        Code = "RATE_LIMITED"
)

var statusByCode = map[Code]int{
	CodeInvalidSignature:  http.StatusUnauthorized,
	CodeTokenExpired:      http.StatusUnauthorized,
	CodeUnauthorized:      http.StatusUnauthorized,
	CodeValidationError:   http.StatusBadRequest,
	CodeInvalidLocation:   http.StatusBadRequest,
	CodeBadRequest:        http.StatusBadRequest,
	CodeTooFar:            http.StatusForbidden,
	CodeSpeedViolation:    http.StatusForbidden,
	CodeCooldown:          http.StatusForbidden,
	CodeForbidden:         http.StatusForbidden,
	CodeTitanNotFound:     http.StatusNotFound,
	CodePlayerNotFound:    http.StatusNotFound,
	CodeNotFound:          http.StatusNotFound,
	CodeAlreadyCaptured:   http.StatusConflict,
	CodeTitanExpired:      http.StatusGone,
	CodeDatabaseError:     http.StatusInternalServerError,
	CodeCacheError:        http.StatusInternalServerError,
	CodeInternalError:     http.StatusInternalServerError,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
	CodeRateLimited:        http.StatusTooManyRequests,
}

// Error is the typed application error every service layer returns instead
// of a bare error, so handlers never have to guess at a status code.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status this error externalizes as.
func (e *Error) Status() int {
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New builds a typed error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a typed code to an underlying cause, preserving it for
// errors.Is/errors.As and for internal logging while keeping the externalized
// message generic for infrastructure-class codes.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: errors.WithStack(cause)}
}

// Database wraps an infrastructure-layer failure as a DATABASE_ERROR, never
// leaking driver detail to the client.
func Database(cause error) *Error {
	return Wrap(CodeDatabaseError, "a database error occurred", cause)
}

// Cache wraps an infrastructure-layer failure as a CACHE_ERROR.
func Cache(cause error) *Error {
	return Wrap(CodeCacheError, "a cache error occurred", cause)
}

// Internal wraps an unexpected failure as INTERNAL_ERROR.
func Internal(cause error) *Error {
	return Wrap(CodeInternalError, "an internal error occurred", cause)
}

// As reports whether err (or something it wraps) is an *Error, returning it.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
