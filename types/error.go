package types

import "fmt"

// ErrorCode represents a unified error code across the module.
type ErrorCode string

// LLM backend error codes
const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"
	ErrUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrRateLimited         ErrorCode = "RATE_LIMITED"
	ErrModelOverloaded     ErrorCode = "MODEL_OVERLOADED"
	ErrUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"
	ErrUpstreamError       ErrorCode = "UPSTREAM_ERROR"
	ErrProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrEmptyCompletion     ErrorCode = "EMPTY_COMPLETION"
)

// Meeting error codes
const (
	ErrInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrMeetingAbort  ErrorCode = "MEETING_ABORT"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause attaches a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// GenerationFailure signals that one turn could not be generated even after
// the simplified-prompt retry. It is recoverable: the orchestrator logs it,
// appends a degraded placeholder turn, and continues.
type GenerationFailure struct {
	Agent string
	Turn  int
	Cause error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("turn %d generation failed for agent %s: %v", e.Turn, e.Agent, e.Cause)
}

func (e *GenerationFailure) Unwrap() error { return e.Cause }

// MeetingAbortError is returned when repeated consecutive generation failures
// make continuing pointless. It carries the last successful turn index and
// the failure streak so callers can report precisely; the partial transcript
// stays available through the meeting's result.
type MeetingAbortError struct {
	LastGoodTurn  int
	FailureStreak int
	Cause         error
}

func (e *MeetingAbortError) Error() string {
	return fmt.Sprintf("meeting aborted after %d consecutive generation failures (last good turn %d): %v",
		e.FailureStreak, e.LastGoodTurn, e.Cause)
}

func (e *MeetingAbortError) Unwrap() error { return e.Cause }
