package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/dock/errors"
	"github.com/grovetools/dock/internal/daemon/store"
	"github.com/grovetools/dock/pkg/apps"
)

// RemoteClient implements Client by calling the daemon's HTTP API.
type RemoteClient struct {
	httpClient *http.Client
	addr       string
	baseURL    string
}

// NewRemoteClient creates a RemoteClient for the daemon listening on addr
// (host:port).
func NewRemoteClient(addr string) *RemoteClient {
	transport := &http.Transport{
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}

	return &RemoteClient{
		// No client timeout: run_app blocks for up to the readiness
		// timeout. Callers bound requests with their context.
		httpClient: &http.Client{Transport: transport},
		addr:       addr,
		baseURL:    "http://" + addr,
	}
}

// Addr returns the daemon address this client talks to.
func (c *RemoteClient) Addr() string {
	return c.addr
}

// ScanDirectory asks the daemon to resolve root.
func (c *RemoteClient) ScanDirectory(ctx context.Context, root string) (apps.CategoryIndex, error) {
	var resp struct {
		Structure apps.CategoryIndex `json:"structure"`
	}
	if err := c.do(ctx, http.MethodPost, "/process_folder", map[string]string{"folder_path": root}, &resp); err != nil {
		return nil, err
	}
	return resp.Structure, nil
}

// RunApp asks the daemon to launch an app.
func (c *RemoteClient) RunApp(ctx context.Context, req RunRequest) (*RunResponse, error) {
	var resp RunResponse
	if err := c.do(ctx, http.MethodPost, "/run_app", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LastLaunched returns the daemon's last launched app.
func (c *RemoteClient) LastLaunched(ctx context.Context) (string, error) {
	var resp struct {
		LastUsedApp string `json:"last_used_app"`
	}
	if err := c.do(ctx, http.MethodGet, "/last_used_app", nil, &resp); err != nil {
		return "", err
	}
	return resp.LastUsedApp, nil
}

// SetInterpreter updates the daemon's interpreter.
func (c *RemoteClient) SetInterpreter(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodPost, "/set_python_interpreter", map[string]string{"path": path}, nil)
}

// State returns the daemon state.
func (c *RemoteClient) State(ctx context.Context) (*store.State, error) {
	var st store.State
	if err := c.do(ctx, http.MethodGet, "/api/state", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Events subscribes to the daemon's websocket event stream.
func (c *RemoteClient) Events(ctx context.Context) (<-chan store.Update, error) {
	wsURL := "ws://" + c.addr + "/api/events"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, errors.DaemonUnavailable(c.addr, err)
	}

	ch := make(chan store.Update, 10)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(ch)
		defer close(done)
		defer conn.Close()

		for {
			var u store.Update
			if err := conn.ReadJSON(&u); err != nil {
				return
			}
			select {
			case ch <- u:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// IsRunning returns true if the daemon is available and responding.
func (c *RemoteClient) IsRunning() bool {
	return c.ping(2 * time.Second)
}

func (c *RemoteClient) ping(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Close cleans up any resources used by the client.
func (c *RemoteClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

type errorResponse struct {
	Detail string           `json:"detail"`
	Code   errors.ErrorCode `json:"code"`
}

// do sends a JSON request and decodes a JSON response into out. Error
// responses come back as DockErrors carrying the daemon's code.
func (c *RemoteClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.DaemonUnavailable(c.addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Detail == "" {
			return errors.New(errors.ErrCodeInternal, fmt.Sprintf("daemon returned status %d", resp.StatusCode))
		}
		return errors.FromCode(e.Code, strings.TrimSpace(e.Detail))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// Ensure RemoteClient implements Client interface.
var _ Client = (*RemoteClient)(nil)
