package shared

import "fmt"

// Error codes of the ledger error taxonomy
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeInvalidState  = "INVALID_STATE"
	CodeConflict      = "CONCURRENCY_CONFLICT"
	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeInvalidFormat = "INVALID_FORMAT"
	CodeInvalidValue  = "INVALID_VALUE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code,
// so errors.Is(err, shared.ErrNotFound) matches any not-found error.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// IsRetryable returns true if the caller may re-read state and retry the whole operation
func (e *DomainError) IsRetryable() bool {
	return e.Code == CodeConflict
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError reports malformed or out-of-range input
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError reports a missing tenancy, payment or receipt
func NewNotFoundError(format string, args ...any) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf(format, args...))
}

// NewInvalidStateError reports an operation that is illegal for the current lifecycle state
func NewInvalidStateError(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvalidState, fmt.Sprintf(format, args...))
}

// NewConflictError reports a concurrent-write collision
func NewConflictError(format string, args ...any) *DomainError {
	return NewDomainError(CodeConflict, fmt.Sprintf(format, args...))
}

// NewFormatError reports a value that could not be parsed
func NewFormatError(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvalidFormat, fmt.Sprintf(format, args...))
}

// NewValueError reports a well-formed value outside its allowed range
func NewValueError(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvalidValue, fmt.Sprintf(format, args...))
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrValidation          = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConflict, "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInvalidFormat       = NewDomainError(CodeInvalidFormat, "Value has an invalid format")
	ErrInvalidValue        = NewDomainError(CodeInvalidValue, "Value is out of range")
)
