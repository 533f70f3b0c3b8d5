// Package server exposes the daemon engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/dock/errors"
	"github.com/grovetools/dock/internal/daemon/engine"
	"github.com/grovetools/dock/internal/daemon/store"
	"github.com/grovetools/dock/pkg/apps"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const writeWait = 10 * time.Second

// RunningConfig is what /api/config reports: the settings the daemon is
// actually using right now.
type RunningConfig struct {
	Listen           string    `json:"listen"`
	Interpreter      string    `json:"interpreter"`
	EntryPoint       string    `json:"entry_point"`
	FrameworkModule  string    `json:"framework_module"`
	FrameworkArgs    []string  `json:"framework_args"`
	ReadinessTimeout string    `json:"readiness_timeout"`
	ScanRoot         string    `json:"scan_root,omitempty"`
	Sources          []string  `json:"sources,omitempty"`
	StartedAt        time.Time `json:"started_at"`
}

// Server manages the daemon's HTTP listener.
type Server struct {
	logger    *logrus.Entry
	server    *http.Server
	engine    *engine.Engine
	startedAt time.Time
	upgrader  websocket.Upgrader
}

// New creates a new Server instance.
func New(eng *engine.Engine, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{
		logger:    logger,
		engine:    eng,
		startedAt: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local clients only; the listener is loopback by default.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler with cleartext HTTP/2 support.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/process_folder", s.handleProcessFolder)
	mux.HandleFunc("/run_app", s.handleRunApp)
	mux.HandleFunc("/last_used_app", s.handleLastUsedApp)
	mux.HandleFunc("/set_python_interpreter", s.handleSetInterpreter)

	mux.HandleFunc("/api/state", s.handleGetState)
	mux.HandleFunc("/api/config", s.handleGetConfig)
	mux.HandleFunc("/api/events", s.handleEvents)

	return h2c.NewHandler(mux, &http2.Server{})
}

// ListenAndServe listens on addr (host:port) and blocks until the server
// stops or fails.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener.
func (s *Server) Serve(listener net.Listener) error {
	s.logger.WithField("addr", listener.Addr().String()).Info("Daemon listening")
	err := s.server.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

type processFolderRequest struct {
	FolderPath string `json:"folder_path"`
}

type processFolderResponse struct {
	Message   string             `json:"message"`
	Structure apps.CategoryIndex `json:"structure"`
}

func (s *Server) handleProcessFolder(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req processFolderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	index, err := s.engine.ScanDirectory(req.FolderPath)
	if err != nil {
		s.logger.WithError(err).WithField("path", req.FolderPath).Debug("Scan rejected")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, processFolderResponse{
		Message:   "Folder processed successfully",
		Structure: index,
	})
}

type runAppRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
	// IsStreamlit overrides the name-based framework rule when present.
	IsStreamlit *bool `json:"is_streamlit"`
}

type runAppResponse struct {
	Message      string `json:"message"`
	StreamlitURL string `json:"streamlit_url,omitempty"`
	PID          int    `json:"pid,omitempty"`
}

func (s *Server) handleRunApp(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req runAppRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Path == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "path is required"))
		return
	}

	desc := s.engine.DescribeRun(req.Name, req.Path, req.IsStreamlit)
	result := s.engine.Launch(r.Context(), desc)
	if !result.OK() {
		err := result.Err
		if errors.HTTPStatus(err) == http.StatusInternalServerError {
			err = errors.Wrap(err, errors.GetCode(err), result.Message(""))
		}
		writeErrorWith(w, err, result.PID)
		return
	}

	writeJSON(w, http.StatusOK, runAppResponse{
		Message:      result.Message(s.engine.Config().Launch.FrameworkName),
		StreamlitURL: result.Address,
		PID:          result.PID,
	})
}

func (s *Server) handleLastUsedApp(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"last_used_app": s.engine.LastLaunched()})
}

type setInterpreterRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleSetInterpreter(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req setInterpreterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.engine.SetInterpreter(req.Path); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Python interpreter path updated successfully"})
}

// handleGetState returns the complete daemon state as JSON.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Store().Get())
}

// handleGetConfig returns the running configuration as JSON.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.engine.Config()
	writeJSON(w, http.StatusOK, RunningConfig{
		Listen:           cfg.Server.Listen,
		Interpreter:      s.engine.Store().Interpreter(),
		EntryPoint:       cfg.Launch.EntryPoint,
		FrameworkModule:  cfg.Launch.FrameworkModule,
		FrameworkArgs:    cfg.Launch.FrameworkArgs,
		ReadinessTimeout: cfg.Launch.Timeout().String(),
		ScanRoot:         cfg.Scan.Root,
		Sources:          cfg.Sources,
		StartedAt:        s.startedAt,
	})
}

// handleEvents streams store updates over a websocket. The first message
// carries the full state with type "initial".
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	st := s.engine.Store()
	ch := st.Subscribe()
	defer st.Unsubscribe(ch)

	s.logger.Debug("Event client connected")

	// Read pump: only used to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(u store.Update) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(u); err != nil {
			s.logger.WithError(err).Debug("Event client write failed")
			return false
		}
		return true
	}

	if !send(store.Update{Type: "initial", Source: "daemon", Payload: st.Get()}) {
		return
	}

	for {
		select {
		case <-closed:
			s.logger.Debug("Event client disconnected")
			return
		case <-r.Context().Done():
			return
		case u, ok := <-ch:
			if !ok || !send(u) {
				return
			}
		}
	}
}

type errorResponse struct {
	Detail string           `json:"detail"`
	Code   errors.ErrorCode `json:"code"`
	PID    int              `json:"pid,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	writeErrorWith(w, err, 0)
}

func writeErrorWith(w http.ResponseWriter, err error, pid int) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, errors.HTTPStatus(err), errorResponse{
		Detail: errors.Message(err),
		Code:   code,
		PID:    pid,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid request body")
	}
	return nil
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
		Detail: "Method Not Allowed",
		Code:   errors.ErrCodeInvalidInput,
	})
	return false
}
