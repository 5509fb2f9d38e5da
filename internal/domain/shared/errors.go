package shared

import (
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

// Is matches domain errors by code so wrapped sentinels compare equal
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

// NewDomainErrorf creates a domain error with a formatted message
func NewDomainErrorf(code, format string, args ...any) *DomainError {
	return NewDomainError(code, fmt.Sprintf(format, args...))
}

// Common domain errors
var (
	ErrNotFound         = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput     = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState     = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrValidationFailed = NewDomainError("VALIDATION_FAILED", "Order failed validation")
)

// FieldViolation is a single field-level problem carried by ValidationFailedError
type FieldViolation struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationFailedError groups every blocking problem found in one check so
// the caller can surface all of them at once instead of the first one.
type ValidationFailedError struct {
	Violations []FieldViolation
}

// Error implements the error interface
func (e *ValidationFailedError) Error() string {
	if len(e.Violations) == 0 {
		return ErrValidationFailed.Message
	}
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return ErrValidationFailed.Message + ": " + strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is(err, ErrValidationFailed) succeed
func (e *ValidationFailedError) Unwrap() error {
	return ErrValidationFailed
}
