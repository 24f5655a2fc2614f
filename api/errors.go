// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-aio.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrPoolDisabled    = errors.New("buffer pool is disabled")
	ErrPoolExhausted   = errors.New("buffer pool exhausted")
	ErrBufferReleased  = errors.New("buffer already released")
	ErrContentTooLarge = errors.New("content too large")
	ErrSessionClosed   = errors.New("session is closed")
	ErrWriteVetoed     = errors.New("write vetoed by filter")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotSupported    = errors.New("operation not supported")
	ErrNotFound        = errors.New("resource not found")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeContentTooLarge
	ErrCodeInputFailure
	ErrCodeOutputFailure
	ErrCodeDecodeFailure
	ErrCodeProcessFailure
	ErrCodeNotSupported
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Wrap attaches a cause to the error.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// ContentTooLarge builds the error reported when a frame exceeds the
// configured maximum content length.
func ContentTooLarge(size, limit int) *Error {
	return NewError(ErrCodeContentTooLarge, "frame exceeds max content length").
		Wrap(ErrContentTooLarge).
		WithContext("size", size).
		WithContext("max", limit)
}

// ContentSize extracts the offending size from a ContentTooLarge error.
func ContentSize(err error) (int, bool) {
	var e *Error
	if !errors.As(err, &e) || e.Code != ErrCodeContentTooLarge {
		return 0, false
	}
	size, ok := e.Context["size"].(int)
	return size, ok
}
