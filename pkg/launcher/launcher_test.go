//go:build !windows

package launcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/grovetools/dock/command"
	"github.com/grovetools/dock/errors"
	"github.com/grovetools/dock/pkg/apps"
	"github.com/grovetools/dock/pkg/process"
	"github.com/grovetools/dock/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticInterpreter string

func (s staticInterpreter) Interpreter() string { return string(s) }

type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) RecordLaunch(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func (r *recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func appDir(t *testing.T, withEntry bool) string {
	t.Helper()
	return testutil.CreateApp(t, t.TempDir(), "demo-app", withEntry)
}

func newTestLauncher(ex *testutil.ScriptExecutor, rec *recorder, timeout time.Duration) *Launcher {
	return New(
		command.NewSafeBuilderWithExecutor(ex),
		staticInterpreter("/usr/bin/python3"),
		rec,
		Options{ReadinessTimeout: timeout},
		nil,
		nil,
	)
}

func TestLaunchPlain(t *testing.T) {
	ex := &testutil.ScriptExecutor{Script: "exit 0"}
	rec := &recorder{}
	l := newTestLauncher(ex, rec, time.Second)

	dir := appDir(t, true)
	result := l.Launch(context.Background(), apps.AppDescriptor{Name: "app", Path: dir})

	require.True(t, result.OK(), result.Reason())
	assert.Equal(t, StatusStarted, result.Status)
	assert.Equal(t, "app", result.Name)
	assert.Greater(t, result.PID, 0)
	assert.Equal(t, []string{"app"}, rec.Names())
	assert.Equal(t, [][]string{{"/usr/bin/python3", "main.py"}}, ex.Calls())
}

func TestLaunchPlainDoesNotWaitForChild(t *testing.T) {
	ex := &testutil.ScriptExecutor{Script: "sleep 2"}
	l := newTestLauncher(ex, &recorder{}, time.Second)

	start := time.Now()
	result := l.Launch(context.Background(), apps.AppDescriptor{Name: "app", Path: appDir(t, true)})
	require.True(t, result.OK(), result.Reason())
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, process.IsProcessAlive(result.PID))
}

func TestLaunchEntryPointNotFound(t *testing.T) {
	for _, framework := range []bool{false, true} {
		ex := &testutil.ScriptExecutor{Script: "exit 0"}
		rec := &recorder{}
		l := newTestLauncher(ex, rec, time.Second)

		dir := appDir(t, false)
		result := l.Launch(context.Background(), apps.AppDescriptor{Name: "app", Path: dir, Framework: framework})

		assert.False(t, result.OK())
		assert.Equal(t, errors.ErrCodeEntryPointNotFound, errors.GetCode(result.Err))
		assert.Equal(t, "main.py not found in "+dir, result.Reason())
		assert.Zero(t, result.PID)
		assert.Empty(t, ex.Calls(), "nothing may be spawned")
		assert.Empty(t, rec.Names())
	}
}

func TestLaunchEntryPointIsDirectory(t *testing.T) {
	dir := appDir(t, false)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "main.py"), 0755))

	ex := &testutil.ScriptExecutor{Script: "exit 0"}
	result := newTestLauncher(ex, &recorder{}, time.Second).
		Launch(context.Background(), apps.AppDescriptor{Name: "app", Path: dir})
	assert.Equal(t, errors.ErrCodeEntryPointNotFound, errors.GetCode(result.Err))
	assert.Empty(t, ex.Calls())
}

func TestLaunchSpawnFailure(t *testing.T) {
	ex := &testutil.ScriptExecutor{Binary: "/nonexistent/python3"}
	rec := &recorder{}
	l := newTestLauncher(ex, rec, time.Second)

	for _, framework := range []bool{false, true} {
		result := l.Launch(context.Background(), apps.AppDescriptor{Name: "app", Path: appDir(t, true), Framework: framework})
		assert.False(t, result.OK())
		assert.Equal(t, errors.ErrCodeSpawnFailed, errors.GetCode(result.Err))
		assert.Contains(t, result.Reason(), "/nonexistent/python3")
	}
	assert.Empty(t, rec.Names())
}

func TestLaunchFrameworkAddress(t *testing.T) {
	ex := &testutil.ScriptExecutor{Script: `
echo "  You can now view your Streamlit app in your browser."
echo "  Network URL: http://10.0.0.5:8501"
echo "  Local URL: file://$(pwd)"
sleep 1
`}
	rec := &recorder{}
	l := newTestLauncher(ex, rec, 5*time.Second)

	dir := appDir(t, true)
	result := l.Launch(context.Background(), apps.AppDescriptor{Name: "streamlit demo", Path: dir, Framework: true})

	require.True(t, result.OK(), result.Reason())
	assert.Equal(t, StatusStartedWithAddress, result.Status)

	wantDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, "file://"+wantDir, result.Address)
	assert.Equal(t, []string{"streamlit demo"}, rec.Names())
	assert.Equal(t, [][]string{{
		"/usr/bin/python3", "-m", "streamlit", "run", "main.py", "--server.headless", "true",
	}}, ex.Calls())
}

func TestLaunchFrameworkKeepsDrainingOutput(t *testing.T) {
	ex := &testutil.ScriptExecutor{Script: `
echo "Local URL: http://localhost:8501"
i=0
while [ $i -lt 5000 ]; do echo "log line $i padded to make the pipe fill up quickly"; i=$((i+1)); done
echo done > finished
`}
	l := newTestLauncher(ex, &recorder{}, 5*time.Second)

	dir := appDir(t, true)
	result := l.Launch(context.Background(), apps.AppDescriptor{Name: "app", Path: dir, Framework: true})
	require.True(t, result.OK(), result.Reason())

	// The child only gets past its output loop if someone keeps reading.
	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "finished"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestLaunchFrameworkStreamClosed(t *testing.T) {
	ex := &testutil.ScriptExecutor{Script: `echo "starting"; echo "oops" >&2; exit 1`}
	rec := &recorder{}
	l := newTestLauncher(ex, rec, 5*time.Second)

	result := l.Launch(context.Background(), apps.AppDescriptor{Name: "app", Path: appDir(t, true), Framework: true})

	assert.False(t, result.OK())
	assert.Equal(t, errors.ErrCodeStreamClosedWithoutAddress, errors.GetCode(result.Err))
	assert.Equal(t, "Failed to get Streamlit URL", result.Reason())
	assert.Greater(t, result.PID, 0)
	assert.Empty(t, rec.Names())
}

func TestLaunchFrameworkTimeout(t *testing.T) {
	ex := &testutil.ScriptExecutor{Script: "sleep 2"}
	rec := &recorder{}
	l := newTestLauncher(ex, rec, 100*time.Millisecond)

	start := time.Now()
	result := l.Launch(context.Background(), apps.AppDescriptor{Name: "slow", Path: appDir(t, true), Framework: true})

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, result.OK())
	assert.Equal(t, errors.ErrCodeReadinessTimeout, errors.GetCode(result.Err))
	assert.Contains(t, result.Reason(), "did not report an address within 100ms")
	// The child is left running.
	assert.True(t, process.IsProcessAlive(result.PID))
	assert.Empty(t, rec.Names())
}

func TestLaunchFrameworkCanceled(t *testing.T) {
	ex := &testutil.ScriptExecutor{Script: "sleep 2"}
	l := newTestLauncher(ex, &recorder{}, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	result := l.Launch(ctx, apps.AppDescriptor{Name: "app", Path: appDir(t, true), Framework: true})
	assert.Equal(t, errors.ErrCodeReadinessTimeout, errors.GetCode(result.Err))
	assert.Equal(t, "readiness wait canceled", result.Reason())
}

type fixedDetector struct{ address string }

func (f fixedDetector) DetectAddress(r io.Reader) (string, error) {
	return f.address, nil
}

func TestLaunchCustomDetectorSurvivesOptionUpdate(t *testing.T) {
	ex := &testutil.ScriptExecutor{Script: "sleep 1"}
	l := New(command.NewSafeBuilderWithExecutor(ex), staticInterpreter("python"), &recorder{},
		Options{}, fixedDetector{address: "http://probe"}, nil)

	l.UpdateOptions(Options{FrameworkModule: "gradio", ReadinessTimeout: time.Second})
	assert.Equal(t, "gradio", l.Options().FrameworkModule)
	assert.Equal(t, "main.py", l.Options().EntryPoint)

	result := l.Launch(context.Background(), apps.AppDescriptor{Name: "app", Path: appDir(t, true), Framework: true})
	require.True(t, result.OK(), result.Reason())
	assert.Equal(t, "http://probe", result.Address)
	assert.Equal(t, "gradio", ex.Calls()[0][2])
}
