// Package errors provides structured error types for the analysis engine.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the engine and CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes map onto the engine's failure taxonomy:
//   - MALFORMED_*/TRUNCATED_*: local-recoverable parse failures (skip the
//     offending entry, attach a warning, continue)
//   - INVALID_ARCHIVE, ANALYSIS_TIMEOUT: archive-fatal, batch-continuing
//   - INVALID_PATH, EMPTY_ROOT_SET: run-fatal conditions that abort the
//     whole invocation
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMalformedClassFile, "bad magic 0x%08X", magic)
//	if errors.Is(err, errors.ErrCodeMalformedClassFile) {
//	    // Skip entry, record warning
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidArchive, zipErr, "open %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different failure categories.
const (
	// Local-recoverable parse failures
	ErrCodeMalformedClassFile Code = "MALFORMED_CLASS_FILE"
	ErrCodeTruncatedClassFile Code = "TRUNCATED_CLASS_FILE"
	ErrCodeMalformedManifest  Code = "MALFORMED_MANIFEST"

	// Archive-fatal, batch-continuing failures
	ErrCodeInvalidArchive  Code = "INVALID_ARCHIVE"
	ErrCodeAnalysisTimeout Code = "ANALYSIS_TIMEOUT"

	// Graph construction failures
	ErrCodeDuplicateCoordinate Code = "DUPLICATE_COORDINATE"
	ErrCodeUnknownCoordinate   Code = "UNKNOWN_COORDINATE"
	ErrCodeSelfLoop            Code = "SELF_LOOP"

	// Resolution exclusion reasons surfaced as bundling decisions
	ErrCodeDepthLimitExceeded Code = "DEPTH_LIMIT_EXCEEDED"
	ErrCodePlatformMismatch   Code = "PLATFORM_MISMATCH"

	// Run-fatal conditions
	ErrCodeInvalidPath  Code = "INVALID_PATH"
	ErrCodeEmptyRootSet Code = "EMPTY_ROOT_SET"
	ErrCodeNoValidRoots Code = "NO_VALID_ROOTS"

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
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// RunFatal reports whether err aborts the whole analysis invocation.
// Only missing/unreadable root paths and an empty or fully invalid root
// set qualify; every other failure degrades to a report warning.
func RunFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidPath, ErrCodeEmptyRootSet, ErrCodeNoValidRoots:
		return true
	}
	return false
}
