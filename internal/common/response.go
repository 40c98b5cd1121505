package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrorBody represents a consistent error payload returned by the API.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]any{
		"error": ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteAppError renders an AppError, filling in defaults for missing fields.
func WriteAppError(w http.ResponseWriter, appErr *AppError) {
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	code := appErr.Code
	if code == "" {
		code = "INTERNAL"
	}
	message := appErr.Message
	if message == "" {
		message = "internal error"
	}
	details := appErr.Details
	if details == nil && appErr.Err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(appErr.Err, &syntaxErr) {
			details = map[string]any{"offset": syntaxErr.Offset}
		}
	}
	JSONError(w, status, code, message, details)
}

// DecodeJSON reads a JSON request body into dst, reporting malformed input as a 400.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return NewAppError("VALIDATION_ERROR", "request body is required", http.StatusBadRequest, nil)
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return NewAppError("VALIDATION_ERROR", "request body is required", http.StatusBadRequest, err)
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return NewAppError("PAYLOAD_TOO_LARGE", "request body too large", http.StatusRequestEntityTooLarge, err)
		}
		return NewAppError("VALIDATION_ERROR", "invalid JSON body", http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
	}
	return nil
}

// WriteError renders err through WriteAppError, hiding non-AppError causes behind a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	WriteAppError(w, AsAppError(err))
}
