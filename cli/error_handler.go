package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/dock/errors"
)

// ErrorHandler prints user-facing messages for dock errors.
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a handler writing to stderr.
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{Verbose: verbose, Out: os.Stderr}
}

// Handle prints a hint for known error codes and returns err unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	out := h.Out
	if out == nil {
		out = os.Stderr
	}

	msg := errors.Message(err)
	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(out, "✗ %s\n", msg)
		fmt.Fprintln(out, "Create dock.yml in the project or the global config directory.")

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(out, "✗ Invalid configuration: %s\n", err)

	case errors.ErrCodeNotADirectory:
		fmt.Fprintf(out, "✗ %s\n", msg)
		fmt.Fprintln(out, "Pass a directory containing <category>-<name> app folders.")

	case errors.ErrCodeEntryPointNotFound:
		fmt.Fprintf(out, "✗ %s\n", msg)

	case errors.ErrCodeReadinessTimeout, errors.ErrCodeStreamClosedWithoutAddress:
		fmt.Fprintf(out, "✗ %s\n", msg)
		fmt.Fprintln(out, "The app process may still be running; check its output with 'dock logs'.")

	case errors.ErrCodeInvalidInterpreterPath:
		fmt.Fprintf(out, "✗ %s\n", msg)
		if dockErr, ok := err.(*errors.DockError); ok && dockErr.Details["path"] != nil {
			fmt.Fprintf(out, "No file at %v\n", dockErr.Details["path"])
		}

	case errors.ErrCodeDaemonUnavailable:
		fmt.Fprintf(out, "✗ %s\n", msg)
		fmt.Fprintln(out, "Start the daemon with 'dock serve'.")

	default:
		fmt.Fprintf(out, "✗ Error: %v\n", err)
	}

	if h.Verbose {
		if dockErr, ok := err.(*errors.DockError); ok {
			fmt.Fprintf(out, "\nError details:\n%s\n", dockErr.ToJSON())
		}
	}
	return err
}
