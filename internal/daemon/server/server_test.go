//go:build !windows

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/dock/config"
	"github.com/grovetools/dock/internal/daemon/engine"
	"github.com/grovetools/dock/internal/daemon/store"
	"github.com/grovetools/dock/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, script string) (*httptest.Server, *engine.Engine) {
	t.Helper()
	testutil.RequireShell(t)

	cfg := config.Default()
	eng, err := engine.New(cfg, store.New(cfg.Launch.Interpreter), &testutil.ScriptExecutor{Script: script}, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(New(eng, nil).Handler())
	t.Cleanup(ts.Close)
	return ts, eng
}

func postJSON(t *testing.T, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, "exit 0")

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProcessFolder(t *testing.T) {
	ts, _ := newTestServer(t, "exit 0")
	root := t.TempDir()
	testutil.CreateApp(t, root, "data-sales_report", true)
	testutil.CreateApp(t, root, "loose", true)

	resp, body := postJSON(t, ts.URL+"/process_folder", map[string]string{"folder_path": root})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Folder processed successfully", body["message"])

	structure := body["structure"].(map[string]interface{})
	require.Contains(t, structure, "data")
	entry := structure["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "sales report", entry["name"])
	assert.Equal(t, filepath.Join(root, "data-sales_report"), entry["path"])
	assert.NotContains(t, structure, "loose")

	resp, body = postJSON(t, ts.URL+"/process_folder", map[string]string{"folder_path": filepath.Join(root, "nope")})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid folder path", body["detail"])
	assert.Equal(t, "NOT_A_DIRECTORY", body["code"])
}

func TestRunAppPlain(t *testing.T) {
	ts, _ := newTestServer(t, "exit 0")
	dir := testutil.CreateApp(t, t.TempDir(), "tools-csv_cleaner", true)

	resp, body := postJSON(t, ts.URL+"/run_app", map[string]interface{}{
		"name": "csv cleaner", "path": dir, "is_streamlit": false,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "App 'csv cleaner' started successfully", body["message"])
	assert.NotContains(t, body, "streamlit_url")

	_, body = getJSON(t, ts.URL+"/last_used_app")
	assert.Equal(t, "csv cleaner", body["last_used_app"])
}

func TestRunAppFramework(t *testing.T) {
	ts, _ := newTestServer(t, testutil.StreamlitBanner)
	dir := testutil.CreateApp(t, t.TempDir(), "viz-streamlit_map", true)

	// No is_streamlit: the name decides.
	resp, body := postJSON(t, ts.URL+"/run_app", map[string]interface{}{
		"name": "streamlit map", "path": dir,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Streamlit app 'streamlit map' started successfully", body["message"])
	assert.Equal(t, "http://localhost:8501", body["streamlit_url"])
}

func TestRunAppErrors(t *testing.T) {
	ts, _ := newTestServer(t, `echo "booting"`)
	root := t.TempDir()
	missing := testutil.CreateApp(t, root, "data-missing", false)
	broken := testutil.CreateApp(t, root, "viz-broken", true)

	_, body := getJSON(t, ts.URL+"/last_used_app")
	assert.Equal(t, "None", body["last_used_app"])

	resp, body := postJSON(t, ts.URL+"/run_app", map[string]interface{}{
		"name": "missing", "path": missing, "is_streamlit": false,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "main.py not found in "+missing, body["detail"])

	resp, body = postJSON(t, ts.URL+"/run_app", map[string]interface{}{
		"name": "broken", "path": broken, "is_streamlit": true,
	})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Error running the app: Failed to get Streamlit URL", body["detail"])
	assert.Equal(t, "STREAM_CLOSED_WITHOUT_ADDRESS", body["code"])

	resp, _ = postJSON(t, ts.URL+"/run_app", map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = getJSON(t, ts.URL+"/last_used_app")
	assert.Equal(t, "None", body["last_used_app"])
}

func TestSetPythonInterpreter(t *testing.T) {
	ts, eng := newTestServer(t, "exit 0")
	python := testutil.CreateInterpreter(t, t.TempDir())

	resp, body := postJSON(t, ts.URL+"/set_python_interpreter", map[string]string{"path": python})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Python interpreter path updated successfully", body["message"])
	assert.Equal(t, python, eng.Store().Interpreter())

	resp, body = postJSON(t, ts.URL+"/set_python_interpreter", map[string]string{"path": "/no/such/python"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid Python interpreter path", body["detail"])
	assert.Equal(t, python, eng.Store().Interpreter())
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, "exit 0")

	resp, err := http.Get(ts.URL + "/run_app")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodPost, resp.Header.Get("Allow"))
}

func TestMalformedBody(t *testing.T) {
	ts, _ := newTestServer(t, "exit 0")

	resp, err := http.Post(ts.URL+"/process_folder", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetConfigAndState(t *testing.T) {
	ts, _ := newTestServer(t, "exit 0")

	_, body := getJSON(t, ts.URL+"/api/config")
	assert.Equal(t, config.DefaultListen, body["listen"])
	assert.Equal(t, "30s", body["readiness_timeout"])
	assert.Equal(t, "main.py", body["entry_point"])

	_, body = getJSON(t, ts.URL+"/api/state")
	assert.Equal(t, "None", body["last_launched"])
	assert.Equal(t, config.DefaultInterpreter, body["interpreter"])
}

func TestEvents(t *testing.T) {
	ts, eng := newTestServer(t, "exit 0")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var initial store.Update
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, store.UpdateType("initial"), initial.Type)

	eng.Store().RecordLaunch("streamlit map")

	var update store.Update
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, store.UpdateLaunch, update.Type)
	assert.Equal(t, "streamlit map", update.Payload)
}

func TestServeAndShutdown(t *testing.T) {
	cfg := config.Default()
	eng, err := engine.New(cfg, store.New(cfg.Launch.Interpreter), &testutil.ScriptExecutor{}, nil)
	require.NoError(t, err)
	srv := New(eng, nil)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(listener) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}
