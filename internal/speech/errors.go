package speech

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownBackend indicates an unrecognized backend name.
	ErrUnknownBackend = errors.New("unknown speech backend")

	// ErrMissingCredentials indicates a backend lacks its API key, voice or
	// server URL.
	ErrMissingCredentials = errors.New("backend credentials not configured")

	// ErrNoSynthesis indicates that no backend can speak at all.
	ErrNoSynthesis = errors.New("no speech synthesis available")

	// ErrEmptyText indicates a request without text.
	ErrEmptyText = errors.New("nothing to speak")
)

// ErrorCode classifies backend failures.
type ErrorCode string

const (
	CodeUnavailable ErrorCode = "UNAVAILABLE"
	CodeRequest     ErrorCode = "REQUEST"
	CodeStatus      ErrorCode = "STATUS"
	CodeAudio       ErrorCode = "AUDIO"
	CodeCanceled    ErrorCode = "CANCELED"
)

// Error is a backend failure with its classification.
type Error struct {
	Code       ErrorCode
	Backend    Kind
	Message    string
	StatusCode int
	Cause      error
}

// NewError creates a backend error.
func NewError(code ErrorCode, backend Kind, message string, cause error) *Error {
	return &Error{Code: code, Backend: backend, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Backend, e.Code, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsFatal reports whether the error means the backend cannot speak at all
// until reconfigured.
func (e *Error) IsFatal() bool {
	return e.Code == CodeUnavailable
}

// IsRetryable reports whether the same request may succeed on a retry.
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case CodeRequest:
		return true
	case CodeStatus:
		return e.StatusCode == 429 || e.StatusCode >= 500
	default:
		return false
	}
}
