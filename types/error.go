package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across swarmchat.
type ErrorCode string

const (
	// ErrInvalidTurn marks a malformed or roster-mismatched turn coming
	// back from the generation service. Policy: drop, log, continue.
	ErrInvalidTurn ErrorCode = "INVALID_TURN"

	// ErrInvalidState marks an operation attempted against a poll or
	// conversation that is not in the required state (voting twice,
	// sending after closure). Policy: reject the call, no partial mutation.
	ErrInvalidState ErrorCode = "INVALID_STATE"

	// ErrServiceUnavailable marks a generation boundary failure. Policy:
	// treated as an empty response, the cycle ends gracefully.
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// ErrCapacityExceeded marks a roster, conversation or message limit
	// hit. Policy: reject before any state is mutated.
	ErrCapacityExceeded ErrorCode = "CAPACITY_EXCEEDED"

	// ErrNotFound marks a lookup miss (conversation, message, poll).
	ErrNotFound ErrorCode = "NOT_FOUND"
)

// Error represents a structured error with code, message, and cause.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// GetErrorCode extracts the error code from an error, unwrapping as needed.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
