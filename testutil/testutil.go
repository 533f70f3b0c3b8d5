// Package testutil holds fixtures shared by dock's package tests.
package testutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// RequireShell skips the test where /bin/sh is unavailable.
func RequireShell(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
}

// CreateApp creates root/folder and, when withEntry is set, a main.py
// inside it. It returns the folder path.
func CreateApp(t *testing.T, root, folder string, withEntry bool) string {
	t.Helper()

	dir := filepath.Join(root, folder)
	require.NoError(t, os.MkdirAll(dir, 0755))
	if withEntry {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte("print('hello')\n"), 0644))
	}
	return dir
}

// CreateInterpreter writes an executable stand-in interpreter and returns
// its path.
func CreateInterpreter(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "python3")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0755))
	return path
}

// ScriptExecutor runs Script with /bin/sh in place of whatever command is
// requested and records each request. Binary, when set, is executed instead
// so spawn failures can be simulated.
type ScriptExecutor struct {
	Script string
	Binary string

	mu    sync.Mutex
	calls [][]string
}

func (s *ScriptExecutor) Command(name string, args ...string) *exec.Cmd {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string{name}, args...))
	s.mu.Unlock()

	if s.Binary != "" {
		return exec.Command(s.Binary)
	}
	return exec.Command("/bin/sh", "-c", s.Script)
}

func (s *ScriptExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return s.Command(name, args...)
}

// Calls returns the argv of every command requested so far.
func (s *ScriptExecutor) Calls() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.calls...)
}

// StreamlitBanner is a script that prints a framework startup banner and
// stays alive briefly.
const StreamlitBanner = `
echo ""
echo "  You can now view your Streamlit app in your browser."
echo ""
echo "  Network URL: http://192.168.1.7:8501"
echo "  Local URL: http://localhost:8501"
sleep 1
`
