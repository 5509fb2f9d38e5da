package dto

import (
	"net/http"
	"strings"
)

// Error codes produced by the HTTP layer itself. Domain errors keep
// their own codes and are mapped to a status by StatusForCode.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// Domain error codes with a fixed status
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvalidState       = "INVALID_STATE"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeNothingReturnable  = "NOTHING_RETURNABLE"
	CodeFormulaUnavailable = "FORMULA_UNAVAILABLE"
)

var codeStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeUnavailable:     http.StatusServiceUnavailable,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	CodeValidationFailed:   http.StatusUnprocessableEntity,
	CodeInvalidState:       http.StatusConflict,
	CodeAlreadyExists:      http.StatusConflict,
	CodeNothingReturnable:  http.StatusConflict,
	CodeFormulaUnavailable: http.StatusServiceUnavailable,
}

// StatusForCode returns the HTTP status of an error code. Unlisted codes
// follow their prefix: INVALID_*, *_REQUIRED and UNKNOWN_* are bad input,
// *_NOT_FOUND is 404 and the remaining business rules are 422.
func StatusForCode(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasPrefix(code, "INVALID_"),
		strings.HasPrefix(code, "UNKNOWN_"),
		strings.HasSuffix(code, "_REQUIRED"):
		return http.StatusBadRequest
	case code == "":
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}
