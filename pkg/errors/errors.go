// Package errors defines the coded errors mesflow surfaces to callers.
//
// Only run-level failures become errors: a missing required column, an
// unreadable source, an invalid configuration. Row- and field-level defects
// are recovered inside the pipeline and reported through run statistics.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code identifies a failure class for programmatic handling.
type Code string

const (
	// Input errors (1xx)
	CodeFileNotFound  Code = "E101"
	CodeInvalidFormat Code = "E103"
	CodeMissingColumn Code = "E104"
	CodeSource        Code = "E106"
	CodeInvalidConfig Code = "E107"

	// Processing errors (2xx)
	CodeQueryFailed Code = "E202"

	// System errors (4xx)
	CodeContextCanceled Code = "E401"

	CodeUnknown Code = "E999"
)

// Error is the base error type for mesflow.
type Error struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Code, e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%v", k, e.Context[k])
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext attaches a key/value pair and returns e.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates an Error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap wraps err with a code and message. Wrap(nil, ...) returns nil.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// FileNotFound reports an input path that does not exist.
func FileNotFound(path string) *Error {
	return New(CodeFileNotFound, "file not found").WithContext("path", path)
}

// MissingColumn reports a required column absent from the header.
// This is the one fatal configuration error of a pipeline run.
func MissingColumn(column string, available []string) *Error {
	return New(CodeMissingColumn, fmt.Sprintf("required column %q not found", column)).
		WithContext("column", column).
		WithContext("available", available)
}

// InvalidConfig reports a configuration value that cannot be used.
func InvalidConfig(field string, err error) *Error {
	return Wrap(err, CodeInvalidConfig, "invalid configuration").WithContext("field", field)
}

// IsCode reports whether err carries code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the code from err, or CodeUnknown.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// MissingColumnName returns the column named by a missing-column error.
func MissingColumnName(err error) (string, bool) {
	var e *Error
	if !errors.As(err, &e) || e.Code != CodeMissingColumn {
		return "", false
	}
	col, ok := e.Context["column"].(string)
	return col, ok
}
