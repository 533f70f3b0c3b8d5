// Package daemon provides a client interface for interacting with the dock
// daemon (dockd). If the daemon is running, calls go over its HTTP API;
// otherwise they run in-process against a private engine.
package daemon

import (
	"context"

	"github.com/grovetools/dock/internal/daemon/store"
	"github.com/grovetools/dock/pkg/apps"
)

// Client defines the interface for interacting with the dock daemon.
// Both RemoteClient (HTTP) and LocalClient (direct calls) implement it.
type Client interface {
	// ScanDirectory resolves root into the category index and makes it the
	// current index.
	ScanDirectory(ctx context.Context, root string) (apps.CategoryIndex, error)

	// RunApp launches one app folder.
	RunApp(ctx context.Context, req RunRequest) (*RunResponse, error)

	// LastLaunched returns the name of the last successful launch, or
	// "None".
	LastLaunched(ctx context.Context) (string, error)

	// SetInterpreter replaces the interpreter used for later launches.
	SetInterpreter(ctx context.Context, path string) error

	// State returns a snapshot of the daemon state.
	State(ctx context.Context) (*store.State, error)

	// Events subscribes to state updates. The channel is closed when ctx is
	// done or the connection is lost. Only available via the daemon.
	Events(ctx context.Context) (<-chan store.Update, error)

	// IsRunning returns true if the daemon is available and responding.
	IsRunning() bool

	// Close cleans up any resources used by the client.
	Close() error
}

// RunRequest describes one launch. Framework, when set, overrides the
// keyword rule.
type RunRequest struct {
	Name      string `json:"name,omitempty"`
	Path      string `json:"path"`
	Framework *bool  `json:"is_streamlit,omitempty"`
}

// RunResponse is the outcome of a successful launch.
type RunResponse struct {
	Message string `json:"message"`
	Address string `json:"streamlit_url,omitempty"`
	PID     int    `json:"pid,omitempty"`
}
