// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters, configuration and order requests
//   - Order lifecycle errors (200-299): Ledger invariants, missing broker records, archive conflicts
//   - Admission errors (300-399): Missing prices, exhausted capital
//   - Reconciliation errors (400-499): Trip table construction anomalies
//   - Data errors (500-599): Data source and writer failures
//
// Codes are either fatal or recoverable. Fatal codes (invariant violations, duplicate
// order ids in the transaction feed, archive conflicts, broker order failures) must stop
// the run. Every other code describes an anomaly that is logged and then skipped.
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvariantViolation, "entry already recorded")
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeOrderFailed, "failed to submit order", originalErr)
//
//	// Decide whether to stop the run
//	if errors.IsFatal(err) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Fatal reports whether the error must stop the affected run.
func (e *Error) Fatal() bool {
	return fatalCodes[e.Code]
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsFatal reports whether err carries a fatal code anywhere in its chain.
// Errors that are not *Error values are treated as fatal since nothing is known about them.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var e *Error
	if !errors.As(err, &e) {
		return true
	}

	for err != nil {
		if coded, ok := err.(*Error); ok && coded.Fatal() {
			return true
		}

		err = errors.Unwrap(err)
	}

	return false
}
