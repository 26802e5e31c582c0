package vehicledb

import (
	"errors"
	"fmt"
)

// Error codes
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeStoreFailure = "STORE_FAILURE"
)

// Error is a data-access failure with a stable, matchable code.
// Callers map codes to status codes instead of string matching.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new error with the given code
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates a new error with the given code wrapping a cause
func WrapError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// ErrorCode extracts the code from an error chain. Errors that carry
// no code report STORE_FAILURE, the catch-all for backend faults.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeStoreFailure
}

func hasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsUnauthorized checks for a missing, invalid, or expired session
func IsUnauthorized(err error) bool {
	return hasCode(err, ErrCodeUnauthorized)
}

// IsValidation checks for a malformed input payload
func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsConflict checks for a uniqueness violation on create
func IsConflict(err error) bool {
	return hasCode(err, ErrCodeConflict)
}

// IsNotFound checks for a missing vehicle, session, or history record
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsStoreFailure checks for a transport or transactional backend failure
func IsStoreFailure(err error) bool {
	return hasCode(err, ErrCodeStoreFailure)
}
