package common

import (
	"errors"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// WithDetails attaches a details payload and returns the same error.
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// ErrValidation builds a 400 VALIDATION_ERROR for a single field.
func ErrValidation(field, message string) *AppError {
	return NewAppError("VALIDATION_ERROR", message, http.StatusBadRequest, nil).WithDetails(map[string]any{"field": field})
}

// ErrUnauthorized builds a 401 UNAUTHORIZED error.
func ErrUnauthorized(message string) *AppError {
	return NewAppError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

// ErrForbidden builds a 403 FORBIDDEN error.
func ErrForbidden() *AppError {
	return NewAppError("FORBIDDEN", "forbidden", http.StatusForbidden, nil)
}

// ErrNotFound builds a 404 NOT_FOUND error for the named resource.
func ErrNotFound(resource string, err error) *AppError {
	return NewAppError("NOT_FOUND", resource+" not found", http.StatusNotFound, err)
}

// ErrUnprocessable builds a 422 error with a domain specific code.
func ErrUnprocessable(code, message string, err error) *AppError {
	return NewAppError(code, message, http.StatusUnprocessableEntity, err)
}

// FromValidator converts validator failures into a VALIDATION_ERROR listing each field.
func FromValidator(err error) *AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewAppError("VALIDATION_ERROR", "invalid request", http.StatusBadRequest, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[lowerFirst(fe.Field())] = fe.Tag()
	}
	return NewAppError("VALIDATION_ERROR", "invalid request", http.StatusBadRequest, err).WithDetails(map[string]any{"fields": fields})
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// AsAppError returns the AppError wrapped in err, or a generic 500 wrapping err.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewAppError("INTERNAL", "internal error", http.StatusInternalServerError, err)
}
