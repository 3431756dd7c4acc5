// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-coll.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrInvalidTopology = errors.New("invalid topology")
	ErrMisaligned      = errors.New("payload size not aligned")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrVerification    = errors.New("verification mismatch")
	ErrRegionAlloc     = errors.New("region allocation failed")
	ErrNotSupported    = errors.New("operation not supported")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeConfig
	ErrCodeAlignment
	ErrCodeVerification
	ErrCodeResource
	ErrCodeNotSupported
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeConfig:
		return "config"
	case ErrCodeAlignment:
		return "alignment"
	case ErrCodeVerification:
		return "verification"
	case ErrCodeResource:
		return "resource"
	case ErrCodeNotSupported:
		return "not-supported"
	default:
		return "internal"
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap exposes the sentinel the error was built from.
func (e *Error) Unwrap() error { return e.cause }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
		cause:   sentinelFor(code),
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

// Wrap replaces the sentinel cause.
func (e *Error) Wrap(cause error) *Error {
	e.cause = cause
	return e
}

func sentinelFor(code ErrorCode) error {
	switch code {
	case ErrCodeConfig:
		return ErrInvalidTopology
	case ErrCodeAlignment:
		return ErrMisaligned
	case ErrCodeVerification:
		return ErrVerification
	case ErrCodeResource:
		return ErrRegionAlloc
	case ErrCodeNotSupported:
		return ErrNotSupported
	default:
		return nil
	}
}

// CodeOf extracts the ErrorCode from err, or ErrCodeInternal.
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
