package daemon

import (
	"context"
	"sync"

	"github.com/grovetools/arcade/config"
	"github.com/grovetools/arcade/credentials"
	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/internal/daemon/engine"
	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/internal/daemon/store"
	"github.com/grovetools/arcade/logging"
	"github.com/grovetools/arcade/pkg/arcade"
	"github.com/grovetools/arcade/state"
	"github.com/sirupsen/logrus"
)

// LocalClient implements Client by running the engine in-process without
// its loop. Each State or Display call that finds no cached result performs
// one fetch and reconcile; Refresh repeats it.
type LocalClient struct {
	build func() (*engine.Engine, error)

	once   sync.Once
	engine *engine.Engine
	err    error

	mu     sync.Mutex
	polled bool
}

// NewLocalClient creates a LocalClient from the user's configuration and
// saved credentials.
func NewLocalClient() *LocalClient {
	return newLocalClient(func() (*engine.Engine, error) {
		cfg, err := config.LoadDefault()
		if err != nil {
			if !errors.Is(err, errors.ErrCodeConfigNotFound) {
				return nil, err
			}
			cfg = config.Default()
		}
		st, err := state.Load()
		if err != nil {
			st = state.State{}
		}

		return engine.New(localOptions(cfg, st, logging.NewLogger("client"))), nil
	})
}

// localOptions configures the in-process engine. It is quiet: the local
// engine starts over on every call, so its notification edges are noise.
func localOptions(cfg *config.Config, st state.State, logger *logrus.Entry) engine.Options {
	opts := engine.OptionsFromConfig(cfg, st)
	opts.Client = engine.NewSessionClient(cfg, logger)
	opts.Credentials = credentials.Default()
	opts.Logger = logger
	opts.Quiet = true
	return opts
}

func newLocalClient(build func() (*engine.Engine, error)) *LocalClient {
	return &LocalClient{build: build}
}

func (c *LocalClient) get() (*engine.Engine, error) {
	c.once.Do(func() {
		c.engine, c.err = c.build()
	})
	return c.engine, c.err
}

// ensurePolled runs the first fetch lazily.
func (c *LocalClient) ensurePolled(ctx context.Context) (*engine.Engine, error) {
	e, err := c.get()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.polled {
		e.PollOnce(ctx)
		c.polled = true
	}
	return e, nil
}

func (c *LocalClient) State(ctx context.Context) (*store.State, error) {
	e, err := c.ensurePolled(ctx)
	if err != nil {
		return nil, err
	}
	st := e.Store().Get()
	st.Display = e.Display()
	return &st, nil
}

func (c *LocalClient) Display(ctx context.Context) (*reconciler.Display, error) {
	e, err := c.ensurePolled(ctx)
	if err != nil {
		return nil, err
	}
	d := e.Display()
	return &d, nil
}

// Refresh polls again in-process. It always reports a started poll.
func (c *LocalClient) Refresh(ctx context.Context) (bool, error) {
	e, err := c.get()
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e.PollOnce(ctx)
	c.polled = true
	return true, nil
}

// Activity is a no-op for LocalClient; idle tracking needs a long-lived daemon.
func (c *LocalClient) Activity(ctx context.Context, source string) (bool, error) {
	return false, nil
}

func (c *LocalClient) StartSession(ctx context.Context, work string) (*arcade.StartResult, error) {
	e, err := c.get()
	if err != nil {
		return nil, err
	}
	return e.StartSession(ctx, work)
}

func (c *LocalClient) PauseSession(ctx context.Context) (*arcade.PauseResult, error) {
	e, err := c.get()
	if err != nil {
		return nil, err
	}
	return e.PauseSession(ctx)
}

func (c *LocalClient) EndSession(ctx context.Context) error {
	e, err := c.get()
	if err != nil {
		return err
	}
	return e.EndSession(ctx)
}

func (c *LocalClient) Stats(ctx context.Context) (*arcade.Stats, error) {
	e, err := c.get()
	if err != nil {
		return nil, err
	}
	return e.Stats(ctx)
}

func (c *LocalClient) ServiceStatus(ctx context.Context) (*arcade.Status, error) {
	e, err := c.get()
	if err != nil {
		return nil, err
	}
	return e.Health(ctx)
}

// GetConfig returns an error for LocalClient since config is only available via daemon.
func (c *LocalClient) GetConfig(ctx context.Context) (*RunningConfig, error) {
	return nil, errors.New(errors.ErrCodeDaemonNotRunning, "running config not available in local mode; start the daemon with 'arcade daemon start'")
}

// StreamState returns an error for LocalClient since streaming is only available via daemon.
func (c *LocalClient) StreamState(ctx context.Context) (<-chan StateUpdate, error) {
	return nil, errors.New(errors.ErrCodeDaemonNotRunning, "streaming not available in local mode; start the daemon for real-time updates")
}

// IsRunning returns false since this is the local fallback client.
func (c *LocalClient) IsRunning() bool {
	return false
}

// Close is a no-op for LocalClient.
func (c *LocalClient) Close() error {
	return nil
}

// Ensure LocalClient implements Client interface.
var _ Client = (*LocalClient)(nil)
