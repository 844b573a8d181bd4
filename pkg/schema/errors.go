package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeExternal            = "EXTERNAL_ERROR"
	ErrCodeExecution           = "EXECUTION_ERROR"
	ErrCodeTimeout             = "TIMEOUT_ERROR"
	ErrCodeFeatureDenied       = "FEATURE_DENIED"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeBehaviorUnavailable = "BEHAVIOR_UNAVAILABLE"
	ErrCodeContractViolation   = "CONTRACT_VIOLATION"
	ErrCodePanic               = "PANIC"
	ErrCodeStore               = "STORE_ERROR"
)

// WorkflowError is the structured error type for engine, store and trigger operations.
type WorkflowError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	BehaviorID string         `json:"behavior_id,omitempty"`
	Cause      error          `json:"-"`
}

func (e *WorkflowError) Error() string {
	if e.BehaviorID != "" {
		return fmt.Sprintf("[%s] behavior %s: %s", e.Code, e.BehaviorID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *WorkflowError) Unwrap() error {
	return e.Cause
}

// NewError creates a new WorkflowError.
func NewError(code, message string) *WorkflowError {
	return &WorkflowError{Code: code, Message: message}
}

// NewErrorf creates a new WorkflowError with a formatted message.
func NewErrorf(code, format string, args ...any) *WorkflowError {
	return &WorkflowError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithBehavior attaches a behavior ID to the error.
func (e *WorkflowError) WithBehavior(behaviorID string) *WorkflowError {
	e.BehaviorID = behaviorID
	return e
}

// WithCause attaches an underlying cause.
func (e *WorkflowError) WithCause(err error) *WorkflowError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *WorkflowError) WithDetails(details map[string]any) *WorkflowError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first WorkflowError in err's chain,
// or fallback when err carries none.
func CodeOf(err error, fallback string) string {
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr.Code
	}
	return fallback
}

// MessageOf returns the bare message of a WorkflowError, or err.Error() otherwise.
func MessageOf(err error) string {
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr.Message
	}
	return err.Error()
}

// IsNotFound reports whether err is a NOT_FOUND WorkflowError.
func IsNotFound(err error) bool {
	return CodeOf(err, "") == ErrCodeNotFound
}
