// Package domainerrors provides the coded error type used across service
// boundaries. Services wrap store sentinel errors into coded errors; the
// HTTP layer maps codes to statuses. Codes are stable API, messages are not.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers and the transport layer.
type Code string

const (
	CodeValidation         Code = "validation_error"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeRateLimited        Code = "rate_limited"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/errors.As inspection.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return New(code, message)
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or any error in its chain carries the code.
func HasCode(err error, code Code) bool {
	var coded *Error
	for errors.As(err, &coded) {
		if coded.Code == code {
			return true
		}
		err = coded.cause
		coded = nil
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error carries none. Nil errors report an empty code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost coded message, or the raw error text for
// uncoded errors.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Message
	}
	return err.Error()
}
