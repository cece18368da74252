// Package errors provides structured error types for wheelfix.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the relocation engine
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes fall into a few families:
//   - Planning failures, raised before any file is touched
//     (BASENAME_COLLISION, LIBRARY_NOT_FOUND)
//   - Inspection failures while reading binaries (INSPECTION_ERROR)
//   - Pre-existing state that must not be merged (TARGET_EXISTS)
//   - I/O failures while mutating the working tree (COPY_FAILED, REWRITE_FAILED, ...)
//
// # Usage
//
//	err := errors.New(errors.ErrCodeLibraryNotFound, "library %q does not exist", lib)
//	if errors.IsPlanningError(err) {
//	    // nothing was modified
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeCopyFailed, origErr, "copy %s", lib)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Planning errors
	ErrCodeBasenameCollision Code = "BASENAME_COLLISION"
	ErrCodeLibraryNotFound   Code = "LIBRARY_NOT_FOUND"

	// Inspection errors
	ErrCodeInspection Code = "INSPECTION_ERROR"

	// Pre-existing state
	ErrCodeTargetExists Code = "TARGET_EXISTS"

	// I/O errors
	ErrCodeCopyFailed    Code = "COPY_FAILED"
	ErrCodeRewriteFailed Code = "REWRITE_FAILED"
	ErrCodeArchive       Code = "ARCHIVE_ERROR"
	ErrCodeIO            Code = "IO_ERROR"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeFileNotFound  Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsPlanningError reports whether err is a basename collision or a missing
// library. When raised while planning, no file has been modified yet.
func IsPlanningError(err error) bool {
	switch GetCode(err) {
	case ErrCodeBasenameCollision, ErrCodeLibraryNotFound:
		return true
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix, followed
// by the cause if there is one. For other errors, returns the error string.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
