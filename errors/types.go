package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Discovery errors
	ErrCodeNotADirectory ErrorCode = "NOT_A_DIRECTORY"

	// Launch errors
	ErrCodeEntryPointNotFound         ErrorCode = "ENTRY_POINT_NOT_FOUND"
	ErrCodeSpawnFailed                ErrorCode = "SPAWN_FAILED"
	ErrCodeReadinessTimeout           ErrorCode = "READINESS_TIMEOUT"
	ErrCodeStreamClosedWithoutAddress ErrorCode = "STREAM_CLOSED_WITHOUT_ADDRESS"
	ErrCodeInvalidInterpreterPath     ErrorCode = "INVALID_INTERPRETER_PATH"

	// Daemon errors
	ErrCodeDaemonUnavailable ErrorCode = "DAEMON_UNAVAILABLE"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// DockError represents a structured error with context
type DockError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *DockError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *DockError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *DockError) WithDetail(key string, value interface{}) *DockError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *DockError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new DockError
func New(code ErrorCode, message string) *DockError {
	return &DockError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a DockError
func Wrap(err error, code ErrorCode, message string) *DockError {
	return &DockError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific DockError code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	dockErr, ok := err.(*DockError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return dockErr.Code
}

// Message returns the human-readable message of a DockError, or err.Error()
// for anything else.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if dockErr, ok := err.(*DockError); ok {
		return dockErr.Message
	}
	if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
		if inner := unwrapper.Unwrap(); GetCode(inner) != "" {
			return Message(inner)
		}
	}
	return err.Error()
}
