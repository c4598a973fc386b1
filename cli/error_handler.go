package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/arcade/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr.
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a message for err based on its code and returns err.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	ae := errors.As(err)

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "❌ Configuration not found: %v\n", detail(ae, "path"))
		fmt.Fprintf(h.Out, "Run 'arcade config path' to see where arcade looks for it.\n")

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(h.Out, "❌ Invalid configuration: %v\n", err)
		fmt.Fprintf(h.Out, "Check the file against 'arcade config schema'.\n")

	case errors.ErrCodeInvalidCredential:
		fmt.Fprintf(h.Out, "❌ Your Slack ID or API key was rejected.\n")
		fmt.Fprintf(h.Out, "Run 'arcade init' to set up Arcade again.\n")

	case errors.ErrCodeInvalidInput:
		fmt.Fprintf(h.Out, "❌ %s\n", message(ae, err))

	case errors.ErrCodeSessionRejected:
		fmt.Fprintf(h.Out, "❌ %s\n", message(ae, err))

	case errors.ErrCodeTransport, errors.ErrCodeProtocol:
		fmt.Fprintf(h.Out, "❌ Could not talk to the session service: %v\n", err)
		fmt.Fprintf(h.Out, "Check your connection or run 'arcade health'.\n")

	case errors.ErrCodeDaemonNotRunning:
		fmt.Fprintf(h.Out, "❌ The arcade daemon is not running.\n")
		fmt.Fprintf(h.Out, "Start it with 'arcade daemon start'.\n")

	case errors.ErrCodeDaemonRunning:
		fmt.Fprintf(h.Out, "❌ %s\n", message(ae, err))
		fmt.Fprintf(h.Out, "Stop it first with 'arcade daemon stop'.\n")

	default:
		fmt.Fprintf(h.Out, "❌ Error: %v\n", err)
	}

	if h.Verbose && ae != nil {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", ae.ToJSON())
	}
	return err
}

func message(ae *errors.ArcadeError, err error) string {
	if ae != nil {
		return ae.Message
	}
	return err.Error()
}

func detail(ae *errors.ArcadeError, key string) interface{} {
	if ae == nil || ae.Details == nil {
		return ""
	}
	return ae.Details[key]
}
