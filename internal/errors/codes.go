// Package errors defines the coded error type shared by the resolution pipeline.
package errors

import (
	"fmt"
)

// ErrorCode represents a specific failure class of a resolution call.
type ErrorCode string

const (
	// ErrCodeMalformedInput indicates tagger output that violates the token grammar.
	ErrCodeMalformedInput ErrorCode = "MALFORMED_INPUT"
	// ErrCodeInvalidArgument indicates invalid caller input such as a bad reference instant.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeInvalidField indicates a token attribute with an out-of-range or unparsable value.
	ErrCodeInvalidField ErrorCode = "INVALID_FIELD"
	// ErrCodeInsufficientFields indicates a token that lacks the fields its resolver needs.
	ErrCodeInsufficientFields ErrorCode = "INSUFFICIENT_FIELDS"
	// ErrCodeInvalidDate indicates a field combination that does not name a calendar date.
	ErrCodeInvalidDate ErrorCode = "INVALID_DATE"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
)

// TimeError represents a structured error raised while resolving temporal tokens.
type TimeError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *TimeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *TimeError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *TimeError) WithContext(key string, value interface{}) *TimeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code.
func (e *TimeError) GetCode() ErrorCode {
	return e.Code
}

// MalformedInput creates a structural tagger-output error.
func MalformedInput(msg string) *TimeError {
	return &TimeError{Code: ErrCodeMalformedInput, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *TimeError {
	return &TimeError{Code: ErrCodeInvalidArgument, Message: msg}
}

// InvalidField creates an error for a single bad token attribute.
func InvalidField(field, value string) *TimeError {
	return &TimeError{
		Code:    ErrCodeInvalidField,
		Message: fmt.Sprintf("invalid value %q for field %s", value, field),
	}
}

// InsufficientFields creates an error for a token that cannot be resolved from its fields.
func InsufficientFields(msg string) *TimeError {
	return &TimeError{Code: ErrCodeInsufficientFields, Message: msg}
}

// InvalidDate creates an error for fields that do not form a calendar date.
func InvalidDate(msg string) *TimeError {
	return &TimeError{Code: ErrCodeInvalidDate, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *TimeError {
	return &TimeError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *TimeError {
	return &TimeError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if timeErr, ok := err.(*TimeError); ok {
		return timeErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a TimeError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if timeErr, ok := err.(*TimeError); ok {
		return timeErr.Code
	}
	return defaultCode
}
