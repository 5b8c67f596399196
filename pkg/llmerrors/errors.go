// Package llmerrors provides structured error classification for model provider calls.
package llmerrors

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// ErrorType represents the normalized category of a provider failure.
type ErrorType int8

const (
	// ErrorTypeServer represents 5xx responses, transport failures and anything unclassified.
	ErrorTypeServer ErrorType = iota
	// ErrorTypeRateLimit represents rate limiting errors (429, quota exceeded).
	ErrorTypeRateLimit

	// Non-retryable error types.

	// ErrorTypeAuth represents authentication errors (401/403, bad API key).
	ErrorTypeAuth
	// ErrorTypeModelUnavailable represents requests the provider rejects for the model
	// itself (unknown model, payload too large, malformed request).
	ErrorTypeModelUnavailable
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeServer:
		return "server"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeModelUnavailable:
		return "model_unavailable"
	default:
		return "invalid"
	}
}

// Error represents a classified provider error.
type Error struct {
	Err        error     // Wrapped underlying error
	Provider   string    // Provider that produced the error
	Message    string    // Human-readable error message
	Type       ErrorType // Classified error type
	StatusCode int       // HTTP status code if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := fmt.Sprintf("LLM error (%s)", e.Type.String())
	if e.Provider != "" {
		prefix = fmt.Sprintf("%s error (%s)", e.Provider, e.Type.String())
	}
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	default:
		return fmt.Sprintf("%s: status %d", prefix, e.StatusCode)
	}
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns whether this error type should be retried.
// Everything is retryable unless it is explicitly fatal.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeAuth, ErrorTypeModelUnavailable:
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

// TypeOf returns the error type of an error, or ErrorTypeServer if not classified.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeServer
}

// IsRetryable reports whether err should be retried. Cancellation never is.
// A bare DeadlineExceeded is retryable since per-request HTTP timeouts wrap it;
// callers check their own context before retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.IsRetryable()
	}
	return true
}

// NewError creates a new classified error.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
	}
}

// NewErrorWithStatus creates a new classified error with HTTP status.
func NewErrorWithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewErrorWithCause creates a new classified error wrapping another error.
func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{
		Type:    errorType,
		Err:     cause,
		Message: message,
	}
}

// TypeForStatus maps an HTTP status code to an error type.
func TypeForStatus(code int) ErrorType {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrorTypeAuth
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case http.StatusBadRequest, http.StatusNotFound, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return ErrorTypeModelUnavailable
	default:
		return ErrorTypeServer
	}
}

// FromStatus builds a classified error for a provider response status.
func FromStatus(provider string, code int, cause error) *Error {
	return &Error{
		Type:       TypeForStatus(code),
		Provider:   provider,
		StatusCode: code,
		Err:        cause,
	}
}

// Classify normalizes err for provider. Already classified errors and context
// cancellation are returned unchanged; everything else becomes a server error.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return err
	}
	if IsTransport(err) {
		return &Error{Type: ErrorTypeServer, Provider: provider, Err: err, Message: "transport failure: " + err.Error()}
	}
	return &Error{Type: ErrorTypeServer, Provider: provider, Err: err}
}

// IsTransport reports whether err looks like a network-level failure.
func IsTransport(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection reset", "connection refused", "timeout", "broken pipe", "eof"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// SanitizePrompt creates a safe representation of a prompt for logging.
// For large prompts, it returns first/last portions plus a hash of the full content.
func SanitizePrompt(prompt string, maxChars int) string {
	if len(prompt) <= maxChars {
		return prompt
	}

	halfMax := maxChars / 2
	if halfMax < 100 {
		halfMax = 100
	}
	if halfMax*2 >= len(prompt) {
		return prompt
	}

	first := prompt[:halfMax]
	last := prompt[len(prompt)-halfMax:]

	hash := sha256.Sum256([]byte(prompt))
	hashStr := fmt.Sprintf("%x", hash)[:16]

	return fmt.Sprintf("%s...[%d chars, hash:%s]...%s",
		first, len(prompt), hashStr, last)
}
