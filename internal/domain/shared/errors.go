package shared

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// Is matches domain errors by code so sentinel comparisons survive re-wrapping with a new message
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorf creates a new domain error with a formatted message
func NewDomainErrorf(code, format string, args ...any) *DomainError {
	return NewDomainError(code, fmt.Sprintf(format, args...))
}

// Error codes shared by every context
const (
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeValidation          = "VALIDATION_ERROR"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeInvalidState        = "INVALID_STATE"
	CodeLockTimeout         = "LOCK_TIMEOUT"
	CodeStoreTimeout        = "STORE_TIMEOUT"
	CodeStoreUnavailable    = "STORE_UNAVAILABLE"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrLockTimeout         = NewDomainError(CodeLockTimeout, "Timed out waiting for a concurrent operation on the same customer")
	ErrStoreTimeout        = NewDomainError(CodeStoreTimeout, "Ledger store did not respond in time")
	ErrStoreUnavailable    = NewDomainError(CodeStoreUnavailable, "Ledger store is unavailable")
)

// retryableCodes are conflicts and transport failures: the caller may retry the whole request.
var retryableCodes = map[string]bool{
	CodeConcurrencyConflict: true,
	CodeLockTimeout:         true,
	CodeStoreTimeout:        true,
	CodeStoreUnavailable:    true,
}

// IsRetryable reports whether err is a conflict or store error that can be retried as a whole.
// Context-specific codes ending in _CONFLICT are conflicts too. Validation and not-found errors
// always need corrected input.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return retryableCodes[domainErr.Code] || strings.HasSuffix(domainErr.Code, "_CONFLICT")
	}
	return false
}

// CodeOf returns the domain error code carried by err, or an empty string
func CodeOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}
