// Package errors defines structured error types for the FloodGuard serving core.
// Every failure the service reports to a caller is an *AppError with a stable
// code; transport handlers map codes to HTTP statuses without inspecting text.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure.
type Code string

const (
	// CodeInvalidRequest indicates a caller-supplied value outside the contract.
	CodeInvalidRequest Code = "invalid_request"
	// CodeInsufficientData indicates the caller supplied fewer samples than a model requires.
	CodeInsufficientData Code = "insufficient_data"
	// CodeModelUnavailable indicates no active model handle is loaded for a family.
	CodeModelUnavailable Code = "model_unavailable"
	// CodeReloadFailed indicates a model artifact failed to load during hot-reload.
	CodeReloadFailed Code = "reload_failed"
	// CodeCacheError indicates a cache-store round trip failed. Never surfaced to callers.
	CodeCacheError Code = "cache_error"
	// CodeNotFound indicates a named resource (model family, endpoint) does not exist.
	CodeNotFound Code = "not_found"
	// CodeInternal indicates an unexpected server-side failure.
	CodeInternal Code = "internal_error"
)

// AppError is a structured application error with a stable code, an HTTP
// status, and optional metadata for logging and error responses.
type AppError struct {
	code       Code
	httpStatus int
	message    string
	cause      error
	metadata   map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *AppError) Code() Code { return e.code }

// HTTPStatus returns the HTTP status the transport layer should respond with.
func (e *AppError) HTTPStatus() int { return e.httpStatus }

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *AppError) Unwrap() error { return e.cause }

// WithCause attaches an underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.cause = cause
	return e
}

// WithMetadata attaches a key/value pair carried into logs and responses.
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

// Metadata returns all attached metadata.
func (e *AppError) Metadata() map[string]interface{} { return e.metadata }

// New creates an AppError with an explicit code and HTTP status.
func New(code Code, httpStatus int, message string) *AppError {
	return &AppError{code: code, httpStatus: httpStatus, message: message}
}

// ================================================================================
// Predefined constructors
// ================================================================================

// ErrInvalidRequest creates a validation error for caller-supplied input.
func ErrInvalidRequest(message string) *AppError {
	return New(CodeInvalidRequest, http.StatusBadRequest, message)
}

// ErrInsufficientData creates an error naming the minimum number of samples a
// model requires.
func ErrInsufficientData(required, got int) *AppError {
	return New(CodeInsufficientData, http.StatusBadRequest,
		fmt.Sprintf("need at least %d readings, got %d", required, got)).
		WithMetadata("required", required).
		WithMetadata("got", got)
}

// ErrModelUnavailable creates a retryable service-unavailable error for a
// model family with no active handle.
func ErrModelUnavailable(family string) *AppError {
	return New(CodeModelUnavailable, http.StatusServiceUnavailable,
		fmt.Sprintf("model %q not loaded", family)).
		WithMetadata("family", family)
}

// ErrReloadFailed creates a per-family reload failure. The previous handle
// stays active; this error never escalates past the affected family.
func ErrReloadFailed(family string, cause error) *AppError {
	return New(CodeReloadFailed, http.StatusInternalServerError,
		fmt.Sprintf("failed to reload model %q", family)).
		WithCause(cause).
		WithMetadata("family", family)
}

// ErrCache creates a cache-store failure. Callers treat it as a forced miss.
func ErrCache(op string, cause error) *AppError {
	return New(CodeCacheError, http.StatusInternalServerError,
		fmt.Sprintf("cache %s failed", op)).
		WithCause(cause).
		WithMetadata("operation", op)
}

// ErrNotFound creates a not-found error for a named resource.
func ErrNotFound(resource string) *AppError {
	return New(CodeNotFound, http.StatusNotFound, fmt.Sprintf("%s not found", resource))
}

// ErrInternal creates an unexpected server-side failure.
func ErrInternal(message string) *AppError {
	return New(CodeInternal, http.StatusInternalServerError, message)
}

// ================================================================================
// Inspection helpers
// ================================================================================

// AsAppError attempts to extract an *AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.code == code
	}
	return false
}

// IsRetryable reports whether the caller may retry the request unchanged.
func IsRetryable(err error) bool {
	return IsCode(err, CodeModelUnavailable)
}

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Error    string                 `json:"error"`
	Message  string                 `json:"message"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToErrorResponse converts any error to the wire representation. Unknown
// errors collapse to internal_error without leaking detail.
func ToErrorResponse(err error) *ErrorResponse {
	if appErr, ok := AsAppError(err); ok {
		return &ErrorResponse{
			Error:    string(appErr.code),
			Message:  appErr.message,
			Metadata: appErr.metadata,
		}
	}
	return &ErrorResponse{
		Error:   string(CodeInternal),
		Message: "an unexpected error occurred",
	}
}
