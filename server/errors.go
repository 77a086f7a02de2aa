package server

import (
	"fmt"
	"maps"
	"net/http"
)

// Error codes reported in the "error.code" field of failed responses.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// APIError is the IAPIError every admin handler returns.
type APIError struct {
	code    string
	message string
	status  int
	details map[string]any
}

// NewAPIError builds an APIError. An empty message falls back to the status text.
func NewAPIError(code, message string, status int) *APIError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &APIError{code: code, message: message, status: status}
}

// ErrorCode returns the machine-readable code.
func (e *APIError) ErrorCode() string { return e.code }

// Message returns the human-readable message.
func (e *APIError) Message() string { return e.message }

// HTTPStatus returns the response status.
func (e *APIError) HTTPStatus() int { return e.status }

// Details returns a copy of the attached details, or nil when there are none.
func (e *APIError) Details() map[string]any {
	if len(e.details) == 0 {
		return nil
	}
	return maps.Clone(e.details)
}

// WithDetails attaches a detail shown to clients in development environments.
func (e *APIError) WithDetails(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.code == "" {
		return e.message
	}
	return e.code + ": " + e.message
}

// NewNotFoundError reports a missing resource, e.g. NewNotFoundError("cache jobs").
func NewNotFoundError(resource string) *APIError {
	return NewAPIError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// NewBadRequestError reports malformed or invalid input.
func NewBadRequestError(message string) *APIError {
	return NewAPIError(CodeBadRequest, message, http.StatusBadRequest)
}

// NewInternalServerError reports an unexpected failure.
func NewInternalServerError(message string) *APIError {
	if message == "" {
		message = "An internal error occurred"
	}
	return NewAPIError(CodeInternal, message, http.StatusInternalServerError)
}

// NewServiceUnavailableError reports that a dependency such as the store is down.
func NewServiceUnavailableError(message string) *APIError {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	return NewAPIError(CodeServiceUnavailable, message, http.StatusServiceUnavailable)
}

// NewTooManyRequestsError reports a rate-limited client.
func NewTooManyRequestsError(message string) *APIError {
	if message == "" {
		message = "Rate limit exceeded"
	}
	return NewAPIError(CodeTooManyRequests, message, http.StatusTooManyRequests)
}

var _ IAPIError = (*APIError)(nil)
