package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeInvalidReference = "INVALID_REFERENCE"
	CodeSelfDealing      = "SELF_DEALING"
	CodeNotFound         = "NOT_FOUND"
	CodeForbidden        = "FORBIDDEN"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeBadRequest       = "BAD_REQUEST"
	CodeTooManyRequests  = "TOO_MANY_REQUESTS"
	CodeInternal         = "INTERNAL_ERROR"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Validation reports malformed input. Nothing has been written when it is returned.
func Validation(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// InvalidReference reports a listing that is missing, inactive or has no seller.
func InvalidReference(message string, err error) *AppError {
	return &AppError{
		Code:    CodeInvalidReference,
		Message: message,
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func SelfDealing(message string) *AppError {
	return &AppError{
		Code:    CodeSelfDealing,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NotFound is also returned when the caller may not see the resource, so the
// two cases are indistinguishable from outside.
func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func TooManyRequests(message string, wait time.Duration) *AppError {
	return &AppError{
		Code:    CodeTooManyRequests,
		Message: fmt.Sprintf("%s (retry in %s)", message, wait.Round(time.Second)),
		Status:  http.StatusTooManyRequests,
	}
}

// Is reports whether err carries an AppError with the given code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
