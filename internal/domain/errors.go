package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so the sentinel vars
// below double as class checks: errors.Is(err, ErrQuotaExhausted) holds for
// every per-call error built with the QUOTA_EXHAUSTED code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"

	// Pipeline failure classes
	ErrCodeNetwork            = "NETWORK_ERROR"
	ErrCodeQuotaExhausted     = "QUOTA_EXHAUSTED"
	ErrCodeContentUnavailable = "CONTENT_UNAVAILABLE"
	ErrCodeTokenLimit         = "TOKEN_LIMIT_EXCEEDED"
	ErrCodeBudgetExceeded     = "BUDGET_EXCEEDED"
	ErrCodeIndexUnavailable   = "INDEX_UNAVAILABLE"
	ErrCodeAdapterUnhealthy   = "ADAPTER_UNHEALTHY"
)

// Validation errors
var (
	ErrInvalidPlatform      = NewDomainError(ErrCodeValidation, "invalid platform")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query text cannot be empty")
	ErrBatchLengthMismatch  = NewDomainError(ErrCodeValidation, "records and vectors must have the same length")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrContentNotFound = NewDomainError(ErrCodeNotFound, "content item not found")
	ErrAdapterNotFound = NewDomainError(ErrCodeNotFound, "no adapter registered for platform")
)

// Pipeline errors
var (
	ErrQuotaExhausted     = NewDomainError(ErrCodeQuotaExhausted, "provider quota exhausted")
	ErrContentUnavailable = NewDomainError(ErrCodeContentUnavailable, "content deleted, private, or restricted")
	ErrTokenLimitExceeded = NewDomainError(ErrCodeTokenLimit, "text exceeds provider token limit")
	ErrBudgetExceeded     = NewDomainError(ErrCodeBudgetExceeded, "session cost budget exceeded")
	ErrIndexUnavailable   = NewDomainError(ErrCodeIndexUnavailable, "vector index unavailable")
	ErrAdapterUnhealthy   = NewDomainError(ErrCodeAdapterUnhealthy, "adapter refusing work after repeated failures")
)

// Authorization errors
var (
	ErrInvalidAPIToken = NewDomainError(ErrCodeUnauthorized, "invalid api token")
)
