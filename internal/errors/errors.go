package errors

import (
	"fmt"
)

// SopError is the structured error type for sopindex.
// It carries enough context for error handling, logging, and operator
// presentation.
type SopError struct {
	// Code is the unique error code (e.g., "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the operator.
	Suggestion string
}

// Error implements the error interface.
func (e *SopError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SopError) Unwrap() error {
	return e.Cause
}

// Is matches SopErrors by code so errors.Is() works across instances.
func (e *SopError) Is(target error) bool {
	if t, ok := target.(*SopError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *SopError) WithDetail(key, value string) *SopError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the operator.
// Returns the error for method chaining.
func (e *SopError) WithSuggestion(suggestion string) *SopError {
	e.Suggestion = suggestion
	return e
}

// New creates a new SopError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SopError {
	return &SopError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SopError from an existing error.
// The error's message becomes the SopError message.
func Wrap(code string, err error) *SopError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *SopError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *SopError {
	return New(ErrCodeFileNotFound, message, cause)
}

// StoreError creates an index-store availability error.
// Store errors are retryable.
func StoreError(message string, cause error) *SopError {
	return New(ErrCodeStoreUnavailable, message, cause)
}

// NetworkError creates a network-related error.
// Network errors are typically retryable.
func NetworkError(message string, cause error) *SopError {
	return New(ErrCodeNetworkTimeout, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *SopError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *SopError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a SopError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := err.(*SopError); ok {
		return se.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := err.(*SopError); ok {
		return se.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a SopError.
// Returns empty string if not a SopError.
func GetCode(err error) string {
	if se, ok := err.(*SopError); ok {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from a SopError.
// Returns empty string if not a SopError.
func GetCategory(err error) Category {
	if se, ok := err.(*SopError); ok {
		return se.Category
	}
	return ""
}
