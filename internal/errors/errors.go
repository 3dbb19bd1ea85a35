package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode defines the error code type
type ErrorCode int

// System error codes
const (
	// Common error codes (1000-1999)
	ErrBadRequest         ErrorCode = 1000
	ErrUnauthorized       ErrorCode = 1001
	ErrForbidden          ErrorCode = 1002
	ErrNotFound           ErrorCode = 1003
	ErrMethodNotAllowed   ErrorCode = 1004
	ErrConflict           ErrorCode = 1005
	ErrTooManyRequests    ErrorCode = 1006
	ErrInternalServer     ErrorCode = 1007
	ErrServiceUnavailable ErrorCode = 1008
	ErrTimeout            ErrorCode = 1009
	ErrValidation         ErrorCode = 1010

	// RAG core error codes (2000-2099)
	ErrStoreUnavailable   ErrorCode = 2000
	ErrEmbedFailed        ErrorCode = 2001
	ErrGenFailed          ErrorCode = 2002
	ErrInvariantViolation ErrorCode = 2003
)

// AppError defines the application error structure
type AppError struct {
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
	Details  any       `json:"details,omitempty"`
	HTTPCode int       `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("error code: %d, error message: %s", e.Code, e.Message)
}

// WithDetails adds error details
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// NewBadRequestError creates a bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:     ErrBadRequest,
		Message:  message,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:     ErrUnauthorized,
		Message:  message,
		HTTPCode: http.StatusUnauthorized,
	}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:     ErrForbidden,
		Message:  message,
		HTTPCode: http.StatusForbidden,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Code:     ErrNotFound,
		Message:  message,
		HTTPCode: http.StatusNotFound,
	}
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:     ErrConflict,
		Message:  message,
		HTTPCode: http.StatusConflict,
	}
}

// NewInternalServerError creates an internal server error
func NewInternalServerError(message string) *AppError {
	if message == "" {
		message = "服务器内部错误"
	}
	return &AppError{
		Code:     ErrInternalServer,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:     ErrValidation,
		Message:  message,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewStoreUnavailableError creates an error for a vector/memory store transport
// failure or timeout. Not retried by the gateway that raises it.
func NewStoreUnavailableError(message string) *AppError {
	return &AppError{
		Code:     ErrStoreUnavailable,
		Message:  message,
		HTTPCode: http.StatusServiceUnavailable,
	}
}

// NewEmbedFailedError creates an error for an embedding service failure.
// When raised during batch indexing, Details carries the index of the first
// chunk in the request group that failed; a group holds up to five chunks and
// the failing chunk within it is not singled out.
func NewEmbedFailedError(message string) *AppError {
	return &AppError{
		Code:     ErrEmbedFailed,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewGenFailedError creates an error for a generation (chat completion) service failure.
func NewGenFailedError(message string) *AppError {
	return &AppError{
		Code:     ErrGenFailed,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewInvariantViolationError creates an error for a programming error such as
// a filter referencing an unknown payload key. Always fatal to the calling request.
func NewInvariantViolationError(message string) *AppError {
	return &AppError{
		Code:     ErrInvariantViolation,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
	}
}

// IsAppError checks if the error is an AppError type
func IsAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}
