package daemon

import (
	"context"

	"github.com/grovetools/dock/command"
	"github.com/grovetools/dock/config"
	"github.com/grovetools/dock/errors"
	"github.com/grovetools/dock/internal/daemon/engine"
	"github.com/grovetools/dock/internal/daemon/store"
	"github.com/grovetools/dock/pkg/apps"
	"github.com/sirupsen/logrus"
)

// LocalClient implements Client with an in-process engine. State lives only
// as long as the client, so LastLaunched starts at "None" every run.
type LocalClient struct {
	engine *engine.Engine
}

// NewLocalClient creates a LocalClient backed by a fresh engine.
func NewLocalClient(cfg *config.Config, logger *logrus.Entry) (*LocalClient, error) {
	return newLocalClient(cfg, &command.RealExecutor{}, logger)
}

func newLocalClient(cfg *config.Config, exec command.Executor, logger *logrus.Entry) (*LocalClient, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = logrus.NewEntry(l)
	}
	eng, err := engine.New(cfg, store.New(cfg.Launch.Interpreter), exec, logger)
	if err != nil {
		return nil, err
	}
	return &LocalClient{engine: eng}, nil
}

// ScanDirectory resolves root in-process.
func (c *LocalClient) ScanDirectory(ctx context.Context, root string) (apps.CategoryIndex, error) {
	return c.engine.ScanDirectory(root)
}

// RunApp launches the app in-process. Framework apps keep their output pipe
// only while this process lives.
func (c *LocalClient) RunApp(ctx context.Context, req RunRequest) (*RunResponse, error) {
	if req.Path == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "path is required")
	}

	result := c.engine.Launch(ctx, c.engine.DescribeRun(req.Name, req.Path, req.Framework))
	if !result.OK() {
		return nil, result.Err
	}
	return &RunResponse{
		Message: result.Message(c.engine.Config().Launch.FrameworkName),
		Address: result.Address,
		PID:     result.PID,
	}, nil
}

// LastLaunched returns the last launch made through this client.
func (c *LocalClient) LastLaunched(ctx context.Context) (string, error) {
	return c.engine.LastLaunched(), nil
}

// SetInterpreter validates and stores the interpreter for this client.
func (c *LocalClient) SetInterpreter(ctx context.Context, path string) error {
	return c.engine.SetInterpreter(path)
}

// State returns the in-process state.
func (c *LocalClient) State(ctx context.Context) (*store.State, error) {
	st := c.engine.Store().Get()
	return &st, nil
}

// Events returns an error for LocalClient since streaming is only available
// via the daemon.
func (c *LocalClient) Events(ctx context.Context) (<-chan store.Update, error) {
	return nil, errors.New(errors.ErrCodeDaemonUnavailable, "events not available in local mode; start the daemon with 'dock serve'")
}

// IsRunning returns false since this is the local fallback client.
func (c *LocalClient) IsRunning() bool {
	return false
}

// Close is a no-op for LocalClient.
func (c *LocalClient) Close() error {
	return nil
}

// Ensure LocalClient implements Client interface.
var _ Client = (*LocalClient)(nil)
