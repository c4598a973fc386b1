package arcade

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/grovetools/arcade/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	// DefaultEndpoint is the public hack hour service.
	DefaultEndpoint = "https://hackhour.hackclub.com"
	// DefaultUserAgent identifies this client on every request.
	DefaultUserAgent = "Grove Arcade CLI"

	tracerName = "github.com/grovetools/arcade/pkg/arcade"
)

// Service messages that mean "this identity is not valid" rather than a failure.
var invalidCredentialMessages = map[string]bool{
	"User not found": true,
	"Unauthorized":   true,
}

// Client talks to the session service. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
	legacyAuth bool
	limiter    *rate.Limiter
	tracer     trace.Tracer
	logger     *logrus.Entry
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithEndpoint sets the service base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = strings.TrimRight(endpoint, "/") }
}

// WithUserAgent sets the identifying User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLegacyAuth sends the ID in the path only, without a bearer key.
func WithLegacyAuth(legacy bool) Option {
	return func(c *Client) { c.legacyAuth = legacy }
}

// WithRateLimit paces outgoing requests. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *logrus.Entry) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client with the given options.
func NewClient(opts ...Option) *Client {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   DefaultEndpoint,
		userAgent:  DefaultUserAgent,
		limiter:    rate.NewLimiter(rate.Limit(2), 4),
		tracer:     otel.Tracer(tracerName),
		logger:     logrus.NewEntry(discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the configured base URL.
func (c *Client) Endpoint() string { return c.endpoint }

// FetchSession returns the user's latest session. An unknown or unauthorized
// identity yields an INVALID_CREDENTIAL error, which callers should treat as
// a normal outcome.
func (c *Client) FetchSession(ctx context.Context, cred Credential) (*Session, error) {
	const op = "fetch session"
	var raw rawSession
	if err := c.call(ctx, op, http.MethodGet, "/api/session/", cred, nil, false, &raw); err != nil {
		return nil, err
	}
	return decodeSession(op, raw)
}

// FetchStats returns the user's session count and total time.
func (c *Client) FetchStats(ctx context.Context, cred Credential) (*Stats, error) {
	const op = "fetch stats"
	var raw rawStats
	if err := c.call(ctx, op, http.MethodGet, "/api/stats/", cred, nil, false, &raw); err != nil {
		return nil, err
	}
	return &Stats{Sessions: raw.Sessions, Total: minutes(raw.Total)}, nil
}

// StartSession begins a new session working on work.
func (c *Client) StartSession(ctx context.Context, cred Credential, work string) (*StartResult, error) {
	const op = "start session"
	if strings.TrimSpace(work) == "" {
		return nil, errors.InvalidInput("work", "cannot be empty")
	}
	var raw rawStart
	body := map[string]string{"work": work}
	if err := c.call(ctx, op, http.MethodPost, "/api/start/", cred, body, true, &raw); err != nil {
		return nil, err
	}
	res := &StartResult{ID: raw.ID}
	if raw.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339, raw.CreatedAt)
		if err != nil {
			return nil, errors.Protocol(op, fmt.Errorf("createdAt: %w", err))
		}
		res.CreatedAt = t
	}
	return res, nil
}

// PauseSession toggles the pause state of the active session.
func (c *Client) PauseSession(ctx context.Context, cred Credential) (*PauseResult, error) {
	const op = "pause session"
	var raw rawPause
	if err := c.call(ctx, op, http.MethodPost, "/api/pause/", cred, nil, true, &raw); err != nil {
		return nil, err
	}
	return &PauseResult{Paused: raw.Paused}, nil
}

// EndSession cancels the active session.
func (c *Client) EndSession(ctx context.Context, cred Credential) error {
	const op = "end session"
	return c.call(ctx, op, http.MethodPost, "/api/cancel/", cred, nil, true, nil)
}

// ServiceStatus fetches the service health payload.
func (c *Client) ServiceStatus(ctx context.Context) (*Status, error) {
	const op = "fetch status"
	ctx, span := c.tracer.Start(ctx, "arcade."+strings.ReplaceAll(op, " ", "_"))
	defer span.End()

	resp, err := c.do(ctx, http.MethodGet, c.endpoint+"/status", nil, "")
	if err != nil {
		recordError(span, err)
		return nil, errors.Transport(op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		err := errors.UnexpectedStatus(op, resp.StatusCode)
		recordError(span, err)
		return nil, err
	}
	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		perr := errors.Protocol(op, err)
		recordError(span, perr)
		return nil, perr
	}
	return &status, nil
}

// FetchStatus reports service health; any failure counts as unhealthy.
func (c *Client) FetchStatus(ctx context.Context) bool {
	status, err := c.ServiceStatus(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Error while fetching status")
		return false
	}
	return status.Healthy()
}

// call performs an identity-scoped request and decodes the data field of a
// successful envelope into out.
func (c *Client) call(ctx context.Context, op, method, prefix string, cred Credential, body interface{}, mutating bool, out interface{}) error {
	if err := c.validate(cred); err != nil {
		return err
	}

	ctx, span := c.tracer.Start(ctx, "arcade."+strings.ReplaceAll(op, " ", "_"),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("arcade.route", prefix+"{id}"),
		))
	defer span.End()

	var payload io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to encode request body")
		}
		payload = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, method, c.endpoint+prefix+url.PathEscape(cred.ID), payload, contentType)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create request")
	}
	if !c.legacyAuth {
		req.Header.Set("Authorization", "Bearer "+cred.APIKey)
	}

	resp, err := c.send(req)
	if err != nil {
		terr := errors.Transport(op, err)
		recordError(span, terr)
		return terr
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if err := c.decode(op, resp, mutating, out); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

// decode classifies a response by status and envelope.
func (c *Client) decode(op string, resp *http.Response, mutating bool, out interface{}) error {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusUnauthorized, http.StatusNotFound:
	case http.StatusBadRequest:
		if !mutating {
			return errors.UnexpectedStatus(op, resp.StatusCode)
		}
	default:
		return errors.UnexpectedStatus(op, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Transport(op, err)
	}

	var env struct {
		envelope
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode == http.StatusOK {
			return errors.Protocol(op, err)
		}
		return errors.Transport(op, fmt.Errorf("unreadable %d response: %w", resp.StatusCode, err))
	}

	if !env.OK {
		if invalidCredentialMessages[env.Error] {
			return errors.InvalidCredential(env.Error)
		}
		if resp.StatusCode == http.StatusBadRequest {
			return errors.SessionRejected(op, env.Error)
		}
		return errors.Transport(op, fmt.Errorf("unexpected result: %s", strings.TrimSpace(string(data))))
	}
	if resp.StatusCode != http.StatusOK {
		return errors.UnexpectedStatus(op, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return errors.Protocol(op, fmt.Errorf("missing data field"))
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Protocol(op, err)
	}
	return nil
}

func (c *Client) validate(cred Credential) error {
	if strings.TrimSpace(cred.ID) == "" {
		return errors.InvalidInput("user ID", "cannot be empty")
	}
	if !c.legacyAuth && strings.TrimSpace(cred.APIKey) == "" {
		return errors.InvalidInput("API key", "cannot be empty")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, target, body, contentType)
	if err != nil {
		return nil, err
	}
	return c.send(req)
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	c.logger.WithFields(logrus.Fields{"method": req.Method, "path": req.URL.Path}).Debug("Sending request")
	return c.httpClient.Do(req)
}

func decodeSession(op string, raw rawSession) (*Session, error) {
	createdAt, err := parseTime(raw.CreatedAt)
	if err != nil {
		return nil, errors.Protocol(op, fmt.Errorf("createdAt: %w", err))
	}
	endTime, err := parseTime(raw.EndTime)
	if err != nil {
		return nil, errors.Protocol(op, fmt.Errorf("endTime: %w", err))
	}
	return &Session{
		ID:        raw.ID,
		CreatedAt: createdAt,
		Duration:  minutes(raw.Time),
		Elapsed:   minutes(raw.Elapsed),
		Remaining: minutes(raw.Remaining),
		EndTime:   endTime,
		Paused:    raw.Paused,
		Completed: raw.Completed,
		Work:      raw.Work,
		Goal:      raw.Goal,
	}, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	return time.Parse(time.RFC3339Nano, s)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
