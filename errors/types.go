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

	// Session service errors
	ErrCodeInvalidCredential ErrorCode = "INVALID_CREDENTIAL"
	ErrCodeTransport         ErrorCode = "TRANSPORT"
	ErrCodeProtocol          ErrorCode = "PROTOCOL"
	ErrCodeSessionRejected   ErrorCode = "SESSION_REJECTED"

	// Daemon errors
	ErrCodeDaemonNotRunning ErrorCode = "DAEMON_NOT_RUNNING"
	ErrCodeDaemonRunning    ErrorCode = "DAEMON_RUNNING"

	// General errors
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
)

// ArcadeError represents a structured error with context
type ArcadeError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *ArcadeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *ArcadeError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *ArcadeError) WithDetail(key string, value interface{}) *ArcadeError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *ArcadeError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new ArcadeError
func New(code ErrorCode, message string) *ArcadeError {
	return &ArcadeError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an ArcadeError
func Wrap(err error, code ErrorCode, message string) *ArcadeError {
	return &ArcadeError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific ArcadeError code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	arcadeErr, ok := err.(*ArcadeError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return arcadeErr.Code
}

// As returns the first ArcadeError in err's chain, or nil.
func As(err error) *ArcadeError {
	for err != nil {
		if arcadeErr, ok := err.(*ArcadeError); ok {
			return arcadeErr
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = unwrapper.Unwrap()
	}
	return nil
}
