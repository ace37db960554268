package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatRestricted    ErrorCategory = "restricted"    // Non-content page, never retried
	ErrCatCommunication ErrorCategory = "communication" // Agent unreachable
	ErrCatExtraction    ErrorCategory = "extraction"    // Agent reported failure
	ErrCatValidation    ErrorCategory = "validation"    // Invalid input
	ErrCatUpstream      ErrorCategory = "upstream"      // Analysis capability or service failure
	ErrCatTimeout       ErrorCategory = "timeout"       // Deadline exceeded, never retried
	ErrCatInternal      ErrorCategory = "internal"      // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// ErrRestrictedPage creates an error for browser-internal pages.
func ErrRestrictedPage(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatRestricted,
		Code:      CodeRestrictedPage,
		Message:   message,
		Retryable: false,
	}
}

// ErrCommunication creates an agent-unreachable error.
func ErrCommunication(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatCommunication,
		Code:      CodeAgentUnreachable,
		Message:   message,
		Retryable: false,
	}
}

// ErrExtraction creates an extraction failure error.
func ErrExtraction(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExtraction,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrUpstream creates an upstream failure error. The analysis capability has
// unspecified failure modes, so upstream failures are retryable.
func ErrUpstream(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatUpstream,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error. Timeouts are terminal: the call already
// consumed the full deadline.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// UserMessage returns the message a user should see for an error. Domain
// errors carry their own message; anything else falls back to a generic one.
func UserMessage(err error) string {
	var domErr *DomainError
	if errors.As(err, &domErr) && domErr.Message != "" {
		return domErr.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return "analysis failed, please try again"
}

// Predefined error codes
const (
	CodeRestrictedPage   = "RESTRICTED_PAGE"
	CodeAgentUnreachable = "AGENT_UNREACHABLE"
	CodePageUnreadable   = "PAGE_UNREADABLE"
	CodeFetchFailed      = "FETCH_FAILED"
	CodeEmptyText        = "EMPTY_TEXT"
	CodeBadURL           = "BAD_URL"
	CodeAnalysisFailed   = "ANALYSIS_FAILED"
	CodeBadResponse      = "BAD_RESPONSE"
	CodeServiceDown      = "SERVICE_UNAVAILABLE"
)
