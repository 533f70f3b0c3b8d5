//go:build !windows

package daemon

import (
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/grovetools/dock/config"
	"github.com/grovetools/dock/errors"
	"github.com/grovetools/dock/internal/daemon/engine"
	"github.com/grovetools/dock/internal/daemon/server"
	"github.com/grovetools/dock/internal/daemon/store"
	"github.com/grovetools/dock/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startDaemon serves an engine over HTTP and returns its address.
func startDaemon(t *testing.T, script string) (string, *engine.Engine) {
	t.Helper()

	cfg := config.Default()
	eng, err := engine.New(cfg, store.New(cfg.Launch.Interpreter), &testutil.ScriptExecutor{Script: script}, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(server.New(eng, nil).Handler())
	t.Cleanup(ts.Close)
	return strings.TrimPrefix(ts.URL, "http://"), eng
}

// clients returns a remote and a local client running the same script so
// both implementations can be held to the same behavior.
func clients(t *testing.T, script string) map[string]Client {
	t.Helper()
	testutil.RequireShell(t)

	addr, _ := startDaemon(t, script)
	remote := NewRemoteClient(addr)
	t.Cleanup(func() { remote.Close() })

	local, err := newLocalClient(config.Default(), &testutil.ScriptExecutor{Script: script}, nil)
	require.NoError(t, err)

	return map[string]Client{"remote": remote, "local": local}
}

func TestClientScanAndRun(t *testing.T) {
	for mode, c := range clients(t, testutil.StreamlitBanner) {
		t.Run(mode, func(t *testing.T) {
			ctx := context.Background()
			root := t.TempDir()
			viz := testutil.CreateApp(t, root, "viz-streamlit_map", true)
			testutil.CreateApp(t, root, "data-sales_report", true)

			index, err := c.ScanDirectory(ctx, root)
			require.NoError(t, err)
			assert.Equal(t, []string{"data", "viz"}, index.Categories())

			last, err := c.LastLaunched(ctx)
			require.NoError(t, err)
			assert.Equal(t, store.NoLaunch, last)

			resp, err := c.RunApp(ctx, RunRequest{Path: viz})
			require.NoError(t, err)
			assert.Equal(t, "Streamlit app 'streamlit map' started successfully", resp.Message)
			assert.Equal(t, "http://localhost:8501", resp.Address)
			assert.NotZero(t, resp.PID)

			last, err = c.LastLaunched(ctx)
			require.NoError(t, err)
			assert.Equal(t, "streamlit map", last)

			st, err := c.State(ctx)
			require.NoError(t, err)
			assert.Equal(t, root, st.ScanRoot)
			assert.Equal(t, "streamlit map", st.LastLaunched)
		})
	}
}

func TestClientErrors(t *testing.T) {
	for mode, c := range clients(t, "exit 0") {
		t.Run(mode, func(t *testing.T) {
			ctx := context.Background()
			root := t.TempDir()
			missing := testutil.CreateApp(t, root, "data-missing", false)

			_, err := c.ScanDirectory(ctx, root+"/nope")
			assert.True(t, errors.Is(err, errors.ErrCodeNotADirectory))

			plain := false
			_, err = c.RunApp(ctx, RunRequest{Path: missing, Framework: &plain})
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeEntryPointNotFound))
			assert.Equal(t, "main.py not found in "+missing, errors.Message(err))

			_, err = c.RunApp(ctx, RunRequest{})
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

			err = c.SetInterpreter(ctx, "/no/such/python")
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidInterpreterPath))

			python := testutil.CreateInterpreter(t, t.TempDir())
			require.NoError(t, c.SetInterpreter(ctx, python))
			st, err := c.State(ctx)
			require.NoError(t, err)
			assert.Equal(t, python, st.Interpreter)
		})
	}
}

func TestRemoteEvents(t *testing.T) {
	testutil.RequireShell(t)
	addr, eng := startDaemon(t, "exit 0")
	c := NewRemoteClient(addr)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := c.Events(ctx)
	require.NoError(t, err)

	select {
	case u := <-ch:
		assert.Equal(t, store.UpdateType("initial"), u.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial event")
	}

	eng.Store().RecordLaunch("csv cleaner")
	select {
	case u := <-ch:
		assert.Equal(t, store.UpdateLaunch, u.Type)
		assert.Equal(t, "csv cleaner", u.Payload)
	case <-time.After(5 * time.Second):
		t.Fatal("no launch event")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestLocalEventsUnavailable(t *testing.T) {
	c, err := NewLocalClient(config.Default(), nil)
	require.NoError(t, err)
	assert.False(t, c.IsRunning())

	_, err = c.Events(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonUnavailable))
}

// closedAddr returns a loopback address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRemoteUnavailable(t *testing.T) {
	c := NewRemoteClient(closedAddr(t))
	assert.False(t, c.IsRunning())

	_, err := c.LastLaunched(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonUnavailable))
}

func TestFactory(t *testing.T) {
	t.Setenv("DOCK_HOME", t.TempDir())

	cfg := config.Default()
	cfg.Server.Listen = closedAddr(t)

	c, err := New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &LocalClient{}, c)

	_, err = Connect(cfg)
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonUnavailable))

	testutil.RequireShell(t)
	addr, _ := startDaemon(t, "exit 0")
	cfg.Server.Listen = addr

	c, err = New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &RemoteClient{}, c)
	assert.True(t, c.IsRunning())

	remote, err := Connect(cfg)
	require.NoError(t, err)
	assert.Equal(t, addr, remote.Addr())
}
