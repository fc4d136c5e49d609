package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input
	ErrCatExecution  ErrorCategory = "execution"  // Agent runtime failure
	ErrCatTimeout    ErrorCategory = "timeout"    // Operation timed out
	ErrCatRateLimit  ErrorCategory = "rate_limit" // Completion API rate limited
	ErrCatState      ErrorCategory = "state"      // State corruption/conflict
	ErrCatStorage    ErrorCategory = "storage"    // Durable store unreachable/failed
	ErrCatConfig     ErrorCategory = "config"     // Configuration error, fatal before any agent runs
	ErrCatNetwork    ErrorCategory = "network"    // Network connectivity
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatConflict   ErrorCategory = "conflict"   // Concurrent claim on the same analysis
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]any
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

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{Category: ErrCatValidation, Code: code, Message: message}
}

// ErrExecution creates a retryable agent execution error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{Category: ErrCatExecution, Code: code, Message: message, Retryable: true}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{Category: ErrCatTimeout, Code: "TIMEOUT", Message: message, Retryable: true}
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string) *DomainError {
	return &DomainError{Category: ErrCatRateLimit, Code: "RATE_LIMITED", Message: message, Retryable: true}
}

// ErrState creates a state error.
func ErrState(code, message string) *DomainError {
	return &DomainError{Category: ErrCatState, Code: code, Message: message}
}

// ErrStorage creates a storage error. Storage errors abort the current run
// and are never treated as agent failures.
func ErrStorage(message string) *DomainError {
	return &DomainError{Category: ErrCatStorage, Code: "STORAGE_FAILED", Message: message}
}

// ErrConfig creates a configuration error, surfaced before any agent runs.
func ErrConfig(code, message string) *DomainError {
	return &DomainError{Category: ErrCatConfig, Code: code, Message: message}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category: ErrCatNotFound,
		Code:     "NOT_FOUND",
		Message:  fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrConflict creates a conflict error for a rejected concurrent claim.
func ErrConflict(message string) *DomainError {
	return &DomainError{Category: ErrCatConflict, Code: "CLAIM_REJECTED", Message: message}
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

// Predefined error codes
const (
	CodeAnalysisNotFound    = "ANALYSIS_NOT_FOUND"
	CodeDealNotFound        = "DEAL_NOT_FOUND"
	CodeNoCheckpoint        = "NO_CHECKPOINT"
	CodeInvalidState        = "INVALID_STATE"
	CodeDependencyCycle     = "DEPENDENCY_CYCLE"
	CodeUnknownAgent        = "UNKNOWN_AGENT"
	CodeUnknownSector       = "UNKNOWN_SECTOR_CONFIGURATION"
	CodeAgentFailed         = "AGENT_FAILED"
	CodeCompletionMalformed = "COMPLETION_MALFORMED"
	CodeInvalidConfig       = "INVALID_CONFIG"
	CodeNoAgents            = "NO_AGENTS"
	CodeCostCeiling         = "COST_CEILING_EXCEEDED"
)
