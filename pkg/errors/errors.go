package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeDatabase     ErrorType = "DATABASE"
	ErrorTypeHandler      ErrorType = "HANDLER"
	ErrorTypeInternal     ErrorType = "INTERNAL"
)

// Error codes used inside the validation category
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNullReference   = "NULL_REFERENCE"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for different error types

// NewValidation creates a validation error for a bad argument
func NewValidation(message string) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    CodeInvalidArgument,
		Message: message,
	}
}

// NewNullReference creates a validation error for a missing required reference
func NewNullReference(name string) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    CodeNullReference,
		Message: fmt.Sprintf("%s must not be nil", name),
	}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewConflict creates a conflict error
func NewConflict(message string) error {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewUnauthorized creates an error for rejected credentials
func NewUnauthorized(message string) error {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewPersistence creates a database error. Persistence errors abort a commit.
func NewPersistence(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeDatabase,
		Message: message,
		Err:     err,
	}
}

// NewHandler creates an error describing a failed event handler
func NewHandler(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeHandler,
		Message: message,
		Err:     err,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// InvariantViolation reports a programmer error in the commit pipeline.
// It never returns.
func InvariantViolation(format string, args ...interface{}) {
	panic(fmt.Sprintf("invariant violation: "+format, args...))
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type
	if appErr := GetAppError(err); appErr != nil {
		return &AppError{
			Type:    appErr.Type,
			Code:    appErr.Code,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
		}
	}

	// Otherwise, create an internal error
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// GetAppError extracts an AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// Type checking functions

// IsType checks whether err carries an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsNullReference checks if an error is a validation error for a nil reference
func IsNullReference(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeValidation && appErr.Code == CodeNullReference
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	return IsType(err, ErrorTypeConflict)
}

// IsUnauthorized checks if an error is an unauthorized error
func IsUnauthorized(err error) bool {
	return IsType(err, ErrorTypeUnauthorized)
}

// IsPersistence checks if an error is a database error
func IsPersistence(err error) bool {
	return IsType(err, ErrorTypeDatabase)
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	return IsType(err, ErrorTypeInternal)
}

// HTTPStatus maps an error onto a response status code
func HTTPStatus(err error) int {
	appErr := GetAppError(err)
	if appErr == nil {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
