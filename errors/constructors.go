package errors

import (
	"fmt"
	"net/http"
	"os/exec"
	"time"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *DockError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *DockError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// NotADirectory reports a scan root that is missing or is not a directory.
func NotADirectory(path string) *DockError {
	return New(ErrCodeNotADirectory, "Invalid folder path").
		WithDetail("path", path)
}

// EntryPointNotFound reports an app folder without its entry point file.
func EntryPointNotFound(dir, entryPoint string) *DockError {
	return New(ErrCodeEntryPointNotFound, fmt.Sprintf("%s not found in %s", entryPoint, dir)).
		WithDetail("path", dir).
		WithDetail("entryPoint", entryPoint)
}

// SpawnFailed creates a process spawn failure error
func SpawnFailed(interpreter string, err error) *DockError {
	dockErr := Wrap(err, ErrCodeSpawnFailed, err.Error()).
		WithDetail("interpreter", interpreter)

	if exitErr, ok := err.(*exec.ExitError); ok {
		dockErr = dockErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return dockErr
}

// ReadinessTimeout reports an app that never announced its address in time.
func ReadinessTimeout(app string, timeout time.Duration) *DockError {
	return New(ErrCodeReadinessTimeout,
		fmt.Sprintf("app '%s' did not report an address within %s", app, timeout)).
		WithDetail("app", app).
		WithDetail("timeout", timeout.String())
}

// StreamClosedWithoutAddress reports an output stream that ended before the
// address marker was seen.
func StreamClosedWithoutAddress(framework string) *DockError {
	return New(ErrCodeStreamClosedWithoutAddress, fmt.Sprintf("Failed to get %s URL", framework)).
		WithDetail("framework", framework)
}

// InvalidInterpreterPath creates an invalid interpreter error
func InvalidInterpreterPath(path string) *DockError {
	return New(ErrCodeInvalidInterpreterPath, "Invalid Python interpreter path").
		WithDetail("path", path)
}

// DaemonUnavailable creates an error for an unreachable daemon
func DaemonUnavailable(addr string, err error) *DockError {
	return Wrap(err, ErrCodeDaemonUnavailable, fmt.Sprintf("dock daemon not reachable at %s", addr)).
		WithDetail("addr", addr)
}

// HTTPStatus maps an error to the status code the daemon answers with.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeNotADirectory, ErrCodeInvalidInterpreterPath, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeEntryPointNotFound:
		return http.StatusNotFound
	case ErrCodeDaemonUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromCode rebuilds a DockError from a code and message, typically decoded
// from a daemon response.
func FromCode(code ErrorCode, message string) *DockError {
	if code == "" {
		code = ErrCodeInternal
	}
	return New(code, message)
}
