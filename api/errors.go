// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for mediabuf.

package api

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidHandle
	ErrCodeInvalidParameter
	ErrCodeInvalidConfig
	ErrCodeNotAvailable
	ErrCodeNotLocked
	ErrCodeNotSupported
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidHandle:
		return "invalid handle"
	case ErrCodeInvalidParameter:
		return "invalid parameter"
	case ErrCodeInvalidConfig:
		return "invalid configuration"
	case ErrCodeNotAvailable:
		return "not available"
	case ErrCodeNotLocked:
		return "buffer not locked"
	case ErrCodeNotSupported:
		return "not supported"
	default:
		return "internal error"
	}
}

// Common errors used across the library. Compare with errors.Is; any *Error
// carrying the same code matches.
var (
	ErrInvalidHandle    = NewError(ErrCodeInvalidHandle, "invalid handle")
	ErrInvalidParameter = NewError(ErrCodeInvalidParameter, "invalid parameter")
	ErrInvalidConfig    = NewError(ErrCodeInvalidConfig, "invalid configuration")
	ErrNotAvailable     = NewError(ErrCodeNotAvailable, "not available")
	ErrNotLocked        = NewError(ErrCodeNotLocked, "buffer not locked")
	ErrNotSupported     = NewError(ErrCodeNotSupported, "operation not supported")
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithContext returns a copy of the error carrying an extra context value.
// Sentinels are never mutated.
func (e *Error) WithContext(key string, value any) *Error {
	ctx := make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &Error{Code: e.Code, Message: e.Message, Context: ctx}
}

// CodeOf extracts the ErrorCode of err, ErrCodeInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}
