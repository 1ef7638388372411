package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeInternal          = "INTERNAL_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"
	CodeBadRequest        = "BAD_REQUEST"
	CodeUnavailable       = "SERVICE_UNAVAILABLE"
	CodeNoActiveExecution = "NO_ACTIVE_EXECUTION"
	CodeReasonerFailure   = "REASONER_FAILURE"
)

// AppError represents an application error with context
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	StatusCode int               `json:"-"`
	Err        error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithError wraps an underlying error
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Internal creates an internal server error
func Internal(message string) *AppError {
	return New(CodeInternal, message, http.StatusInternalServerError)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// Validation creates a validation error
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message, http.StatusBadRequest)
}

// Unavailable creates a service unavailable error
func Unavailable(message string) *AppError {
	return New(CodeUnavailable, message, http.StatusServiceUnavailable)
}

// NoActiveExecution creates an error for step operations outside an open execution
func NoActiveExecution() *AppError {
	return New(CodeNoActiveExecution, "no active execution", http.StatusConflict)
}

// ReasonerFailure creates an error for a failed reasoner call
func ReasonerFailure(err error) *AppError {
	return New(CodeReasonerFailure, "reasoner failed", http.StatusBadGateway).WithError(err)
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetAppError extracts AppError from error if present
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// GetStatusCode returns the HTTP status code for an error
func GetStatusCode(err error) int {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Code == CodeValidation
	}
	return false
}
