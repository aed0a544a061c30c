package types

import (
	"errors"
	"fmt"
)

// Code classifies node errors.
type Code string

const (
	CodeSyntax             Code = "syntax_error"
	CodeDuplicateLabel     Code = "duplicate_label"
	CodeUnknownComponent   Code = "unknown_component"
	CodeInvalidComponent   Code = "invalid_component"
	CodeConstructionFailed Code = "construction_failed"
	CodeRequestTimeout     Code = "request_timeout"
	CodeUnspecified        Code = "unspecified"
)

// Sentinels for errors.Is matching by code.
var (
	ErrSyntax             = &Error{Code: CodeSyntax}
	ErrDuplicateLabel     = &Error{Code: CodeDuplicateLabel}
	ErrUnknownComponent   = &Error{Code: CodeUnknownComponent}
	ErrInvalidComponent   = &Error{Code: CodeInvalidComponent}
	ErrConstructionFailed = &Error{Code: CodeConstructionFailed}
	ErrRequestTimeout     = &Error{Code: CodeRequestTimeout}
	ErrUnspecified        = &Error{Code: CodeUnspecified}
)

// Error is an error with a node error code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Errorf builds a coded error. A %w verb in format is preserved for
// unwrapping.
func Errorf(code Code, format string, args ...any) *Error {
	wrapped := fmt.Errorf(format, args...)
	return &Error{
		Code:    code,
		Message: wrapped.Error(),
		Err:     errors.Unwrap(wrapped),
	}
}

// Wrap attaches a code to err. A nil err yields nil.
func Wrap(code Code, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: err.Error(), Err: err}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeUnspecified.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnspecified
}
