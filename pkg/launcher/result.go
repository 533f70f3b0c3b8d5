package launcher

import (
	"fmt"

	"github.com/grovetools/dock/errors"
)

// Status discriminates the outcome of a launch.
type Status string

const (
	StatusStarted            Status = "started"
	StatusStartedWithAddress Status = "started_with_address"
	StatusFailed             Status = "failed"
)

// Result is the outcome of one launch. Build it with Started,
// StartedWithAddress or Failed.
type Result struct {
	Status  Status
	Name    string
	Address string
	// PID of the spawned child, zero when nothing was spawned.
	PID int
	Err error
}

// Started reports a plain-mode app whose process was spawned.
func Started(name string, pid int) Result {
	return Result{Status: StatusStarted, Name: name, PID: pid}
}

// StartedWithAddress reports a framework app that announced its address.
func StartedWithAddress(name, address string, pid int) Result {
	return Result{Status: StatusStartedWithAddress, Name: name, Address: address, PID: pid}
}

// Failed reports a launch that did not succeed. pid is non-zero when the
// child was spawned and left running.
func Failed(name string, pid int, err error) Result {
	return Result{Status: StatusFailed, Name: name, PID: pid, Err: err}
}

// OK reports whether the launch succeeded.
func (r Result) OK() bool {
	return r.Status != StatusFailed
}

// Reason is the user-facing failure message, empty on success.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	return errors.Message(r.Err)
}

// Message is the user-facing success line. framework names the framework
// in messages for apps that reported an address.
func (r Result) Message(framework string) string {
	switch r.Status {
	case StatusStartedWithAddress:
		return fmt.Sprintf("%s app '%s' started successfully", framework, r.Name)
	case StatusStarted:
		return fmt.Sprintf("App '%s' started successfully", r.Name)
	default:
		return "Error running the app: " + r.Reason()
	}
}
