// Package errors provides coded application errors shared by the service,
// repository and transport layers.
package errors

import (
	"errors"
	"fmt"
)

// Code classifies an AppError for transport mapping.
type Code string

const (
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeConflict     Code = "CONFLICT"
	ErrCodeUnauthorized Code = "UNAUTHORIZED"
	ErrCodeForbidden    Code = "FORBIDDEN"
	ErrCodeInternal     Code = "INTERNAL"
)

// AppError is an error carrying a Code and an optional field name.
type AppError struct {
	Code    Code
	Message string
	Field   string
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError with the given code.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// InvalidInput reports a rejected request field.
func InvalidInput(field, message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Field: field, Message: message}
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s %s not found", resource, id)}
}

// Forbidden reports an authenticated caller acting outside its role.
func Forbidden(message string) *AppError {
	return &AppError{Code: ErrCodeForbidden, Message: message}
}

// CodeOf returns the code of the first AppError in err's chain, or
// ErrCodeInternal.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// Is and As re-export the standard helpers so callers need one import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
