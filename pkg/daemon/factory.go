package daemon

import (
	"time"

	"github.com/grovetools/dock/config"
	"github.com/grovetools/dock/errors"
	"github.com/grovetools/dock/internal/daemon/pidfile"
	"github.com/grovetools/dock/pkg/paths"
	"github.com/sirupsen/logrus"
)

const probeTimeout = 300 * time.Millisecond

// DaemonAddr returns the address the daemon is expected on: the one
// recorded in the pid file when a daemon is running, else the configured
// listen address.
func DaemonAddr(cfg *config.Config) string {
	if running, info, err := pidfile.IsRunning(paths.PidFilePath()); err == nil && running && info.Addr != "" {
		return info.Addr
	}
	if cfg == nil {
		return config.DefaultListen
	}
	return cfg.Server.Listen
}

// New returns a Client that will use the daemon if available, otherwise
// falls back to LocalClient. Callers don't need to know which one they
// got; the same API works in both modes.
func New(cfg *config.Config, logger *logrus.Entry) (Client, error) {
	remote := NewRemoteClient(DaemonAddr(cfg))
	if remote.ping(probeTimeout) {
		return remote, nil
	}
	remote.Close()

	return NewLocalClient(cfg, logger)
}

// Connect returns a RemoteClient or an error if the daemon is not
// available. Use this where the daemon is required (e.g. event streams).
func Connect(cfg *config.Config) (*RemoteClient, error) {
	remote := NewRemoteClient(DaemonAddr(cfg))
	if !remote.ping(probeTimeout) {
		remote.Close()
		return nil, errors.New(errors.ErrCodeDaemonUnavailable,
			"dock daemon is not running at "+remote.Addr()+"; start it with 'dock serve'").
			WithDetail("addr", remote.Addr())
	}
	return remote, nil
}
