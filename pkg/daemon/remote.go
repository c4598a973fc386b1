package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/internal/daemon/server"
	"github.com/grovetools/arcade/internal/daemon/store"
	"github.com/grovetools/arcade/pkg/arcade"
)

// RemoteClient implements Client by calling the daemon's HTTP API over a Unix socket.
type RemoteClient struct {
	httpClient *http.Client
	socketPath string
}

// NewRemoteClient creates a new RemoteClient connected to the daemon socket.
func NewRemoteClient(socketPath string) (*RemoteClient, error) {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}

	// Session calls go through the service retrier, so allow for its backoff.
	client := &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}

	return &RemoteClient{
		httpClient: client,
		socketPath: socketPath,
	}, nil
}

// baseURL is the dummy host used for Unix socket HTTP requests.
// The actual connection goes through the Unix socket, not this URL.
const baseURL = "http://unix"

// do sends a request and decodes a JSON response into out. Error bodies are
// turned back into typed errors.
func (c *RemoteClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDaemonNotRunning, "failed to reach arcade daemon").
			WithDetail("socket", c.socketPath)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr server.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			return errors.New(errors.ErrCodeInternal, fmt.Sprintf("daemon returned status %d", resp.StatusCode))
		}
		code := apiErr.Code
		if code == "" {
			code = errors.ErrCodeInternal
		}
		return errors.New(code, apiErr.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// State returns the daemon's published state.
func (c *RemoteClient) State(ctx context.Context) (*store.State, error) {
	var st store.State
	if err := c.do(ctx, http.MethodGet, "/api/state", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Display returns the display recomputed by the daemon at request time.
func (c *RemoteClient) Display(ctx context.Context) (*reconciler.Display, error) {
	var d reconciler.Display
	if err := c.do(ctx, http.MethodGet, "/api/display", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *RemoteClient) Refresh(ctx context.Context) (bool, error) {
	var out struct {
		Started bool `json:"started"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/refresh", nil, &out); err != nil {
		return false, err
	}
	return out.Started, nil
}

func (c *RemoteClient) Activity(ctx context.Context, source string) (bool, error) {
	var out struct {
		Reminded bool `json:"reminded"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/activity", server.ClientMessage{Type: "activity", Source: source}, &out); err != nil {
		return false, err
	}
	return out.Reminded, nil
}

func (c *RemoteClient) StartSession(ctx context.Context, work string) (*arcade.StartResult, error) {
	var res arcade.StartResult
	body := map[string]string{"work": work}
	if err := c.do(ctx, http.MethodPost, "/api/session/start", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *RemoteClient) PauseSession(ctx context.Context) (*arcade.PauseResult, error) {
	var res arcade.PauseResult
	if err := c.do(ctx, http.MethodPost, "/api/session/pause", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *RemoteClient) EndSession(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/session/end", nil, nil)
}

func (c *RemoteClient) Stats(ctx context.Context) (*arcade.Stats, error) {
	var stats arcade.Stats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *RemoteClient) ServiceStatus(ctx context.Context) (*arcade.Status, error) {
	var status arcade.Status
	if err := c.do(ctx, http.MethodGet, "/api/service", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetConfig returns the running configuration from the daemon.
func (c *RemoteClient) GetConfig(ctx context.Context) (*RunningConfig, error) {
	var cfg RunningConfig
	if err := c.do(ctx, http.MethodGet, "/api/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsRunning returns true if the daemon is available and responding.
func (c *RemoteClient) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
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

// StreamState subscribes to real-time state updates via Server-Sent Events (SSE).
// Returns a channel that receives updates. The channel is closed when the context is cancelled
// or the connection is lost.
func (c *RemoteClient) StreamState(ctx context.Context) (<-chan StateUpdate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/stream", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}

	// Use a separate client with no timeout for streaming
	streamTransport := &http.Transport{
		DialContext: func(dialCtx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(dialCtx, "unix", c.socketPath)
		},
	}
	streamClient := &http.Client{Transport: streamTransport}

	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDaemonNotRunning, "failed to connect to stream").
			WithDetail("socket", c.socketPath)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	ch := make(chan StateUpdate, 10)
	go func() {
		defer resp.Body.Close()
		defer close(ch)
		defer streamTransport.CloseIdleConnections()
		readStream(ctx, resp.Body, ch)
	}()

	return ch, nil
}

// readStream parses SSE data lines from r until it ends or ctx is done.
func readStream(ctx context.Context, r io.Reader, ch chan<- StateUpdate) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		// Skip comments and empty lines
		if strings.HasPrefix(line, ":") || line == "" {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var update StateUpdate
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &update); err != nil {
			continue // Skip malformed data
		}
		select {
		case ch <- update:
		case <-ctx.Done():
			return
		}
	}
}

// Close cleans up any resources used by the client.
func (c *RemoteClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Ensure RemoteClient implements Client interface.
var _ Client = (*RemoteClient)(nil)
