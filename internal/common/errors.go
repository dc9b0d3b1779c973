package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrJobFinalized is returned when a terminal job is asked to change.
	ErrJobFinalized = errors.New("job already finalized")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// ErrPermission means microphone access was denied or no compatible
	// input device exists. Recoverable by user action.
	ErrPermission = errors.New("microphone permission denied")

	// ErrNetwork means an upload or poll request did not reach the server.
	ErrNetwork = errors.New("network error")

	// ErrProvider means a transcription or analysis provider failed. Terminal
	// for the job it happened in.
	ErrProvider = errors.New("provider error")

	// ErrValidation rejects a submission before any job is created.
	ErrValidation = errors.New("validation error")

	// ErrTooLarge rejects an upload above the configured size limit.
	ErrTooLarge = errors.New("upload too large")

	// ErrCancelled is returned by pollers stopped through their context.
	ErrCancelled = errors.New("cancelled")
)

// StageError is a stage-aware pipeline failure. Message is human readable
// and ends up as the job's errorMessage.
type StageError struct {
	Stage    string
	Message  string
	Err      error
	Provider bool
}

// NewProviderError builds a StageError that matches ErrProvider.
func NewProviderError(stage, message string, err error) *StageError {
	return &StageError{Stage: stage, Message: message, Err: err, Provider: true}
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

// Unwrap exposes the cause for errors.Is / errors.As.
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is makes provider failures match ErrProvider.
func (e *StageError) Is(target error) bool {
	return e != nil && e.Provider && target == ErrProvider
}

// ValidationError wraps ErrValidation with the offending reason.
func ValidationError(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}
