package pidfile

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireReadRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "dockd.pid")

	require.NoError(t, Acquire(path, "127.0.0.1:8000"))

	info, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, Info{PID: os.Getpid(), Addr: "127.0.0.1:8000"}, info)

	running, info, err := IsRunning(path)
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), info.PID)

	require.NoError(t, Release(path))
	running, _, err = IsRunning(path)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestAcquireReplacesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dockd.pid")
	// PIDs this large are not handed out on any supported platform.
	require.NoError(t, os.WriteFile(path, []byte("99999999\n127.0.0.1:9000\n"), 0644))

	require.NoError(t, Acquire(path, "127.0.0.1:8000"))
	info, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), info.PID)
	assert.Equal(t, "127.0.0.1:8000", info.Addr)
}

func TestAcquireRefusesLiveDaemon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dockd.pid")
	parent := os.Getppid()
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(parent)+"\n127.0.0.1:9000\n"), 0644))

	err := Acquire(path, "127.0.0.1:8000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestReadLegacyAndInvalid(t *testing.T) {
	dir := t.TempDir()

	legacy := filepath.Join(dir, "legacy.pid")
	require.NoError(t, os.WriteFile(legacy, []byte("1234"), 0644))
	info, err := Read(legacy)
	require.NoError(t, err)
	assert.Equal(t, Info{PID: 1234}, info)

	invalid := filepath.Join(dir, "invalid.pid")
	require.NoError(t, os.WriteFile(invalid, []byte("not-a-pid\n"), 0644))
	_, err = Read(invalid)
	assert.Error(t, err)
}
