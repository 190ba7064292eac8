// Package llmerrors provides structured error classification for LLM API
// interactions. The pipeline decides retry behavior from the class: transient
// errors count against the retry budget, permanent errors surface to the user.
package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies an LLM failure.
type ErrorType int8

const (
	// ErrorTypeTransient represents network errors, timeouts, 5xx, and
	// rate limiting. Safe to retry.
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent represents auth and quota failures (401/403)
	// and malformed requests (400). Never retried.
	ErrorTypePermanent
	// ErrorTypeEmptyResponse represents HTTP 200 with no content.
	ErrorTypeEmptyResponse
	// ErrorTypeParse represents a response that did not contain the
	// JSON payload the caller asked for.
	ErrorTypeParse
	// ErrorTypeUnknown is the default for unclassified errors.
	ErrorTypeUnknown
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeParse:
		return "parse"
	case ErrorTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Error represents a classified LLM error.
type Error struct {
	Err        error     // wrapped underlying error
	Message    string    // human-readable message
	Type       ErrorType // classified error type
	StatusCode int       // HTTP status code if applicable
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("LLM error (%s): %s", e.Type.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("LLM error (%s): %v", e.Type.String(), e.Err)
	}
	return fmt.Sprintf("LLM error (%s): status %d", e.Type.String(), e.StatusCode)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the pipeline may retry after this error.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypePermanent, ErrorTypeParse:
		return false
	default:
		return true
	}
}

// Is checks if an error is of a specific type.
func Is(err error, errorType ErrorType) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == errorType
	}
	return false
}

// TypeOf returns the error type of an error, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

// IsTransient reports whether err is a transient LLM failure.
func IsTransient(err error) bool {
	return Is(err, ErrorTypeTransient) || Is(err, ErrorTypeEmptyResponse)
}

// IsPermanent reports whether err is an auth/quota/bad-request failure.
func IsPermanent(err error) bool {
	return Is(err, ErrorTypePermanent)
}

// New creates a new classified LLM error.
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// NewWithStatus creates a classified LLM error carrying an HTTP status.
func NewWithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{Type: errorType, StatusCode: statusCode, Message: message}
}

// NewWithCause creates a classified LLM error wrapping another error.
func NewWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{Type: errorType, Err: cause, Message: message}
}

// Classify maps an arbitrary SDK error onto the taxonomy. Provider clients
// call this after extracting whatever status information their SDK exposes.
func Classify(err error, statusCode int) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewWithCause(ErrorTypeTransient, err, "request deadline exceeded")
	}
	if errors.Is(err, context.Canceled) {
		return NewWithCause(ErrorTypeTransient, err, "request canceled")
	}

	switch statusCode {
	case 401, 403:
		return NewWithStatus(ErrorTypePermanent, statusCode, "authentication failed - check API key")
	case 400:
		return NewWithStatus(ErrorTypePermanent, statusCode, "bad request - check prompt format")
	case 429:
		return NewWithStatus(ErrorTypeTransient, statusCode, "rate limit exceeded")
	case 500, 502, 503, 504:
		return NewWithStatus(ErrorTypeTransient, statusCode, "server error")
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout"),
		strings.Contains(errStr, "connection"),
		strings.Contains(errStr, "network"),
		strings.Contains(errStr, "temporary"),
		strings.Contains(errStr, "eof"),
		strings.Contains(errStr, "reset"):
		return NewWithCause(ErrorTypeTransient, err, "network or connection error")
	case strings.Contains(errStr, "rate"), strings.Contains(errStr, "quota"):
		return NewWithCause(ErrorTypeTransient, err, "rate limiting detected")
	case strings.Contains(errStr, "auth"), strings.Contains(errStr, "unauthorized"),
		strings.Contains(errStr, "api key"):
		return NewWithCause(ErrorTypePermanent, err, "authentication error")
	case strings.Contains(errStr, "invalid"), strings.Contains(errStr, "malformed"),
		strings.Contains(errStr, "too large"):
		return NewWithCause(ErrorTypePermanent, err, "request error")
	}

	return NewWithCause(ErrorTypeUnknown, err, "unclassified error")
}

// ExtractStatusCode attempts to extract an HTTP status code from an error
// string. Provider SDKs often embed status codes in error messages.
func ExtractStatusCode(errStr string) int {
	patterns := []string{"status code: ", "status: ", "http ", "code "}
	lowered := strings.ToLower(errStr)

	codes := []string{"400", "401", "403", "429", "500", "502", "503", "504"}
	for _, pattern := range patterns {
		idx := strings.Index(lowered, pattern)
		if idx == -1 {
			continue
		}
		rest := lowered[idx+len(pattern):]
		for _, code := range codes {
			if strings.HasPrefix(rest, code) {
				var n int
				fmt.Sscanf(code, "%d", &n)
				return n
			}
		}
	}
	return 0
}
