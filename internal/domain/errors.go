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

// Is matches domain errors by code and message so that a wrapped sentinel
// created with NewDomainErrorWithCause still satisfies errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
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

// Wrap returns a copy of a sentinel error carrying the given cause.
func Wrap(sentinel *DomainError, err error) *DomainError {
	return NewDomainErrorWithCause(sentinel.Code, sentinel.Message, err)
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
)

// Validation errors
var (
	ErrInvalidCatalog       = NewDomainError(ErrCodeValidation, "catalog must be a JSON object keyed by course code")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrTokenBudgetTooSmall  = NewDomainError(ErrCodeValidation, "token budget cannot fit the prompt frame")
	ErrInvalidEmbeddingData = NewDomainError(ErrCodeValidation, "embedding store data is malformed")
)

// Not found errors
var (
	ErrCatalogNotFound        = NewDomainError(ErrCodeNotFound, "course catalog file not found")
	ErrEmbeddingStoreNotFound = NewDomainError(ErrCodeNotFound, "embedding store not found")
)

// Upstream errors
var (
	ErrQueryEmbeddingFailed = NewDomainError(ErrCodeUpstream, "failed to embed query")
	ErrEmptyCompletion      = NewDomainError(ErrCodeUpstream, "generation service returned no choices")
)
