package dto

import (
	"net/http"
	"strings"
)

// Transport error codes
// Format: ERR_<CATEGORY>_<DESCRIPTION>
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeValidation is used when request fields fail validation
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeNotFound is used for unknown routes and generic missing resources
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeMethodNotAllowed is used when a route exists for another method
	ErrCodeMethodNotAllowed = "ERR_METHOD_NOT_ALLOWED"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeServiceUnavailable is used when the ledger store cannot be reached
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
	// ErrCodeRateLimited is used when a client exceeds its request budget
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
// Ledger codes travel unchanged; generic domain codes are normalized first.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeInvalidJSON:         http.StatusBadRequest,
	ErrCodeInvalidInput:        http.StatusBadRequest,
	ErrCodeRequestTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeMethodNotAllowed:    http.StatusMethodNotAllowed,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeServiceUnavailable:  http.StatusServiceUnavailable,
	ErrCodeRateLimited:         http.StatusTooManyRequests,

	// Input that can never succeed as sent -> 400
	"INVALID_AMOUNT":      http.StatusBadRequest,
	"INVALID_DATE_RANGE":  http.StatusBadRequest,
	"INVALID_STATUS":      http.StatusBadRequest,
	"INVALID_POLICY":      http.StatusBadRequest,
	"EXCEEDS_OUTSTANDING": http.StatusBadRequest,
	"EXCEEDS_PAYMENT":     http.StatusBadRequest,

	"INVOICE_NOT_FOUND":  http.StatusNotFound,
	"PAYMENT_NOT_FOUND":  http.StatusNotFound,
	"CUSTOMER_NOT_FOUND": http.StatusNotFound,

	// Conflicts -> 409; the caller may retry or pick another identifier
	"INVOICE_NUMBER_CONFLICT": http.StatusConflict,
	"CUSTOMER_CODE_EXISTS":    http.StatusConflict,
	"IDEMPOTENCY_KEY_REUSED":  http.StatusConflict,
	"LOCK_TIMEOUT":            http.StatusConflict,

	// Business rules -> 422
	"TOTAL_BELOW_ALLOCATED":   http.StatusUnprocessableEntity,
	"PAYMENT_FULLY_ALLOCATED": http.StatusUnprocessableEntity,
	"CUSTOMER_MISMATCH":       http.StatusUnprocessableEntity,

	"STORE_TIMEOUT":     http.StatusServiceUnavailable,
	"STORE_UNAVAILABLE": http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown *_NOT_FOUND and *_CONFLICT codes fall back by suffix; anything else is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "_CONFLICT"):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps generic domain codes to transport codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode converts a generic domain code to the transport format.
// Ledger-specific codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
