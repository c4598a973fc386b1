package errors

import (
	"fmt"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *ArcadeError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *ArcadeError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// InvalidInput creates an error for input rejected before any I/O.
func InvalidInput(field, reason string) *ArcadeError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("%s %s", field, reason)).
		WithDetail("field", field)
}

// InvalidCredential creates an error for an identity the session service does not recognize.
func InvalidCredential(serviceMessage string) *ArcadeError {
	return New(ErrCodeInvalidCredential, "credential rejected by session service").
		WithDetail("service_message", serviceMessage)
}

// Transport creates a network/status error for a request.
func Transport(op string, err error) *ArcadeError {
	return Wrap(err, ErrCodeTransport, fmt.Sprintf("%s failed", op)).
		WithDetail("operation", op)
}

// UnexpectedStatus creates a transport error for an HTTP status outside the recognized set.
func UnexpectedStatus(op string, status int) *ArcadeError {
	return New(ErrCodeTransport, fmt.Sprintf("%s failed: unexpected status code %d", op, status)).
		WithDetail("operation", op).
		WithDetail("status", status)
}

// Protocol creates an error for a success response that does not match the expected schema.
func Protocol(op string, err error) *ArcadeError {
	return Wrap(err, ErrCodeProtocol, fmt.Sprintf("%s returned a malformed response", op)).
		WithDetail("operation", op)
}

// SessionRejected creates an error for a mutating call the service refused (HTTP 400).
func SessionRejected(op, serviceMessage string) *ArcadeError {
	return New(ErrCodeSessionRejected, serviceMessage).
		WithDetail("operation", op)
}

// DaemonNotRunning creates an error for commands that require arcaded.
func DaemonNotRunning(socketPath string) *ArcadeError {
	return New(ErrCodeDaemonNotRunning, "arcade daemon is not running").
		WithDetail("socket", socketPath)
}
