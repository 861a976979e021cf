// Package errs defines the coded errors produced while building a module graph.
//
// Codes split into three groups:
//   - fatal before any I/O: ILLEGAL_CONFIGURATION
//   - recovered per file or per specifier: NOT_READABLE, PARSE_ERROR,
//     UNRESOLVED_LOCAL_SPECIFIER, OUT_OF_SCOPE_SPECIFIER, DYNAMIC_SPECIFIER
//   - fatal for a build pass: BUILD_FAILURE
//
// Usage:
//
//	err := errs.New(errs.CodeIllegalConfiguration, "`includeBaseDir` requires an entrypoint")
//	if errs.Is(err, errs.CodeIllegalConfiguration) {
//	    // abort before touching the file system
//	}
package errs

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeIllegalConfiguration Code = "ILLEGAL_CONFIGURATION"
	CodeNotReadable          Code = "NOT_READABLE"
	CodeParseError           Code = "PARSE_ERROR"
	CodeUnresolvedLocal      Code = "UNRESOLVED_LOCAL_SPECIFIER"
	CodeOutOfScope           Code = "OUT_OF_SCOPE_SPECIFIER"
	CodeDynamicSpecifier     Code = "DYNAMIC_SPECIFIER" // non-literal import() or require()
	CodeBuildFailure         Code = "BUILD_FAILURE"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

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

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an Error with the given code wrapping cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether any *Error in err's tree carries code. Joined errors
// are searched too.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok && e.Code == code {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return Is(u.Unwrap(), code)
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if Is(inner, code) {
				return true
			}
		}
	}
	return false
}

// GetCode returns the code of the outermost *Error in err's chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Recoverable reports whether err is a per-file or per-specifier error that
// must not abort a build pass.
func Recoverable(err error) bool {
	switch GetCode(err) {
	case CodeNotReadable, CodeParseError, CodeUnresolvedLocal, CodeOutOfScope, CodeDynamicSpecifier:
		return true
	default:
		return false
	}
}
