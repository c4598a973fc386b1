// Package server provides the HTTP server for the arcade daemon.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/internal/daemon/store"
	"github.com/grovetools/arcade/pkg/arcade"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Backend is the daemon functionality exposed over the socket.
type Backend interface {
	Store() *store.Store
	Display() reconciler.Display
	Refresh(ctx context.Context) bool
	Activity(source string) bool
	StartSession(ctx context.Context, work string) (*arcade.StartResult, error)
	PauseSession(ctx context.Context) (*arcade.PauseResult, error)
	EndSession(ctx context.Context) error
	Stats(ctx context.Context) (*arcade.Stats, error)
	Health(ctx context.Context) (*arcade.Status, error)
}

// RunningConfig holds the active configuration being used by the daemon.
// This is exposed via the /api/config endpoint so clients can verify what config is active.
type RunningConfig struct {
	PollInterval         time.Duration `json:"poll_interval"`
	ErrorFactor          float64       `json:"error_factor"`
	RetryCap             time.Duration `json:"retry_cap"`
	Tick                 time.Duration `json:"tick"`
	IdleThreshold        int           `json:"idle_threshold"`
	SessionNotifications bool          `json:"session_notifications"`
	StartReminders       bool          `json:"start_reminders"`
	Sinks                []string      `json:"sinks,omitempty"`
	WatchPaths           []string      `json:"watch_paths,omitempty"`
	StartedAt            time.Time     `json:"started_at"`
}

// StreamUpdate is one message on /api/stream and /api/ws.
type StreamUpdate struct {
	UpdateType   string              `json:"update_type"`
	Source       string              `json:"source,omitempty"`
	State        *store.State        `json:"state,omitempty"`
	Display      *reconciler.Display `json:"display,omitempty"`
	Notification *store.Notification `json:"notification,omitempty"`
	ConfigFile   string              `json:"config_file,omitempty"`
}

// ClientMessage is sent by websocket clients.
type ClientMessage struct {
	Type   string `json:"type"` // "activity" or "refresh"
	Source string `json:"source,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string           `json:"error"`
	Code  errors.ErrorCode `json:"code,omitempty"`
}

const (
	sseHeartbeat = 30 * time.Second
	wsPingPeriod = 30 * time.Second
	wsPongWait   = 60 * time.Second
	wsWriteWait  = 10 * time.Second
)

// Server manages the daemon's HTTP server over a Unix socket.
type Server struct {
	logger        *logrus.Entry
	server        *http.Server
	backend       Backend
	metrics       http.Handler
	runningConfig atomic.Pointer[RunningConfig]
	upgrader      websocket.Upgrader
}

// New creates a new Server instance.
func New(logger *logrus.Entry, backend Backend) *Server {
	return &Server{
		logger:  logger,
		backend: backend,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The socket is 0600, so any peer is the owning user.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetMetrics mounts a Prometheus handler on /metrics.
func (s *Server) SetMetrics(h http.Handler) {
	s.metrics = h
}

// SetRunningConfig sets the running configuration for the server. It may
// be called again while serving, for example after a config reload.
func (s *Server) SetRunningConfig(cfg *RunningConfig) {
	s.runningConfig.Store(cfg)
}

// Handler returns the router wrapped for cleartext HTTP/2.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleGetState)
		r.Get("/display", s.handleGetDisplay)
		r.Get("/stream", s.handleStreamState)
		r.Get("/ws", s.handleWebSocket)
		r.Get("/config", s.handleGetConfig)
		r.Get("/stats", s.handleGetStats)
		r.Get("/service", s.handleGetService)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/activity", s.handleActivity)
		r.Route("/session", func(r chi.Router) {
			r.Post("/start", s.handleStart)
			r.Post("/pause", s.handlePause)
			r.Post("/end", s.handleEnd)
		})
	})

	return h2c.NewHandler(r, &http2.Server{})
}

// ListenAndServe starts the daemon on the given unix socket path.
// It blocks until the server stops or fails.
func (s *Server) ListenAndServe(socketPath string) error {
	// Cleanup stale socket
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0700); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.WithField("socket", socketPath).Info("Daemon listening")
	return s.server.Serve(listener)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Debug("Handled request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error code to an HTTP status so clients can rebuild
// the typed error.
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case errors.ErrCodeInvalidCredential:
		status = http.StatusUnauthorized
	case errors.ErrCodeSessionRejected:
		status = http.StatusConflict
	case errors.ErrCodeTransport, errors.ErrCodeProtocol:
		status = http.StatusBadGateway
	}
	msg := err.Error()
	if ae := errors.As(err); ae != nil {
		msg = ae.Message
	}
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Store().Get())
}

// handleGetDisplay recomputes the display so countdowns are current even
// between ticks.
func (s *Server) handleGetDisplay(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Display())
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.runningConfig.Load()
	if cfg == nil {
		http.Error(w, "config not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.backend.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	status, err := s.backend.Health(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	started := s.backend.Refresh(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"started": started})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	var req ClientMessage
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errors.InvalidInput("body", "is not valid JSON"))
			return
		}
	}
	if req.Source == "" {
		req.Source = "api"
	}
	reminded := s.backend.Activity(req.Source)
	writeJSON(w, http.StatusOK, map[string]bool{"reminded": reminded})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Work string `json:"work"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidInput("body", "is not valid JSON"))
		return
	}
	if req.Work == "" {
		writeError(w, errors.InvalidInput("work", "cannot be empty"))
		return
	}
	res, err := s.backend.StartSession(r.Context(), req.Work)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.PauseSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.EndSession(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ended": true})
}

// handleStreamState provides Server-Sent Events (SSE) for real-time state updates.
func (s *Server) handleStreamState(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	st := s.backend.Store()
	ch := st.Subscribe()
	defer st.Unsubscribe(ch)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE client connected")

	// Send current state immediately so client has data right away
	send := func(u *StreamUpdate) bool {
		data, err := json.Marshal(u)
		if err != nil {
			s.logger.WithError(err).Error("Failed to marshal update")
			return true
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}
	if !send(initialUpdate(st)) {
		return
	}

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case u := <-ch:
			if api := ConvertUpdate(u, st); api != nil && !send(api) {
				return
			}
		}
	}
}

// handleWebSocket streams the same updates as /api/stream and accepts
// activity and refresh messages from editor plugins.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	st := s.backend.Store()
	ch := st.Subscribe()
	defer st.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.readClientMessages(ctx, cancel, conn)

	write := func(v interface{}) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(v)
	}
	if err := write(initialUpdate(st)); err != nil {
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case u := <-ch:
			api := ConvertUpdate(u, st)
			if api == nil {
				continue
			}
			if err := write(api); err != nil {
				return
			}
		}
	}
}

func (s *Server) readClientMessages(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	defer cancel()
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.WithError(err).Debug("Websocket closed")
			}
			return
		}
		switch msg.Type {
		case "activity":
			source := msg.Source
			if source == "" {
				source = "ws"
			}
			s.backend.Activity(source)
		case "refresh":
			s.backend.Refresh(ctx)
		default:
			s.logger.WithField("type", msg.Type).Debug("Ignoring unknown websocket message")
		}
	}
}

func initialUpdate(st *store.Store) *StreamUpdate {
	state := st.Get()
	display := state.Display
	return &StreamUpdate{UpdateType: "initial", State: &state, Display: &display}
}

// ConvertUpdate converts an internal store.Update to the public stream format.
func ConvertUpdate(u store.Update, st *store.Store) *StreamUpdate {
	switch u.Type {
	case store.UpdateSnapshot:
		state := st.Get()
		return &StreamUpdate{UpdateType: string(u.Type), Source: u.Source, State: &state}
	case store.UpdateDisplay:
		if d, ok := u.Payload.(reconciler.Display); ok {
			return &StreamUpdate{UpdateType: string(u.Type), Source: u.Source, Display: &d}
		}
	case store.UpdateNotification:
		if n, ok := u.Payload.(store.Notification); ok {
			return &StreamUpdate{UpdateType: string(u.Type), Source: u.Source, Notification: &n}
		}
	case store.UpdateCredentialCleared:
		return &StreamUpdate{UpdateType: string(u.Type), Source: u.Source}
	case store.UpdateConfigReload:
		file, _ := u.Payload.(string)
		return &StreamUpdate{UpdateType: string(u.Type), Source: u.Source, ConfigFile: file}
	}
	return nil
}
