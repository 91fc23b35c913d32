package models

import (
	"errors"
	"net/http"
)

// ErrorMessageResponse returns the error message response struct
type ErrorMessageResponse struct {
	Response MessageError
}

// MessageError contains the inner details for the error message response
type MessageError struct {
	Message string
	Error   string
}

// AppError carries the error taxonomy across component boundaries: validation
// (400), forbidden (403), not found (404), conflict (409), unavailable (503).
// Components return these; only the HTTP layer turns them into status codes.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is/As
func (e *AppError) Unwrap() error { return e.Err }

// NewValidationError flags malformed, missing or out-of-range input
func NewValidationError(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: message}
}

// NewForbidden flags an authenticated but unauthorized request
func NewForbidden(message string) *AppError {
	return &AppError{Code: http.StatusForbidden, Message: message}
}

// NewNotFound flags a missing referenced entity
func NewNotFound(message string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: message}
}

// NewConflict flags a uniqueness violation
func NewConflict(message string, err error) *AppError {
	return &AppError{Code: http.StatusConflict, Message: message, Err: err}
}

// NewUnavailable flags a retryable downstream timeout or outage
func NewUnavailable(message string, err error) *AppError {
	return &AppError{Code: http.StatusServiceUnavailable, Message: message, Err: err}
}

// StatusCode maps any error to the HTTP status it should produce, defaulting
// to 500 for errors outside the taxonomy
func StatusCode(err error) int {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return http.StatusInternalServerError
}

// ErrorMessage extracts the boundary-safe message for a response body
func ErrorMessage(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal server error"
}
