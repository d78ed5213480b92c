package engine

import (
	"errors"
	"fmt"

	"github.com/auton8n-git/auton8n/pkg/workflow"
)

// ErrorClass represents the classification of an error for reporting and
// exit-code decisions.
type ErrorClass string

const (
	// ErrorClassParse indicates a record that cannot be read as a workflow.
	// The record is reported as corrupted; the batch continues.
	ErrorClassParse ErrorClass = "parse"

	// ErrorClassIO indicates a read or write failure of the record store.
	ErrorClassIO ErrorClass = "io"

	// ErrorClassConfig indicates unusable configuration or reference tables.
	// These are fatal at startup.
	ErrorClassConfig ErrorClass = "config"

	// ErrorClassInternal indicates a bug or an unexpected state.
	ErrorClassInternal ErrorClass = "internal"
)

// Error represents a classified error with context.
type Error struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Ref is the record reference that caused the error, if applicable.
	Ref string `json:"ref,omitempty"`

	// Operation is the operation being performed when the error occurred.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Ref != "" && e.Operation != "" {
		return fmt.Sprintf("[%s] %s (ref=%s, operation=%s): %s",
			e.Class, e.Message, e.Ref, e.Operation, e.unwrapMessage())
	}
	if e.Ref != "" {
		return fmt.Sprintf("[%s] %s (ref=%s): %s",
			e.Class, e.Message, e.Ref, e.unwrapMessage())
	}
	return fmt.Sprintf("[%s] %s: %s", e.Class, e.Message, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewParseError creates a new parse error.
func NewParseError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassParse,
		Message: message,
		Code:    ErrCodeInvalidDocument,
		Err:     err,
	}
}

// NewIOError creates a new I/O error.
func NewIOError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassIO,
		Message: message,
		Err:     err,
	}
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassConfig,
		Message: message,
		Err:     err,
	}
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassInternal,
		Message: message,
		Code:    ErrCodeInternal,
		Err:     err,
	}
}

// WithRef adds record context to an error.
func (e *Error) WithRef(ref string) *Error {
	e.Ref = ref
	return e
}

// WithOperation adds operation context to an error.
func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation
	return e
}

// WithCode adds an error code to an error.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ClassifyLoadError wraps a record store load failure. Parse failures become
// parse-class errors; everything else is an I/O error.
func ClassifyLoadError(ref string, err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	if workflow.IsParseError(err) {
		return NewParseError("workflow cannot be parsed", err).
			WithRef(ref).
			WithOperation(OpLoad)
	}
	return NewIOError("workflow cannot be read", err).
		WithRef(ref).
		WithOperation(OpLoad).
		WithCode(ErrCodeReadFailed)
}

// IsParse returns true if the error is classified as a parse error or wraps
// a workflow parse error.
func IsParse(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassParse
	}
	return workflow.IsParseError(err)
}

// IsIO returns true if the error is classified as an I/O error.
func IsIO(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassIO
	}
	return false
}

// IsConfig returns true if the error is classified as a configuration error.
func IsConfig(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassConfig
	}
	return false
}

// IsInternal returns true if the error is classified as internal.
func IsInternal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassInternal
	}
	return false
}

// Operations recorded on errors.
const (
	OpLoad      = "load"
	OpSave      = "save"
	OpAnalyze   = "analyze"
	OpListStore = "list"
)

// Common error codes.
const (
	ErrCodeInvalidDocument = "INVALID_DOCUMENT"
	ErrCodeReadFailed      = "READ_FAILED"
	ErrCodeWriteFailed     = "WRITE_FAILED"
	ErrCodeInvalidTables   = "INVALID_TABLES"
	ErrCodeInvalidConfig   = "INVALID_CONFIG"
	ErrCodeCancelled       = "CANCELLED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)
