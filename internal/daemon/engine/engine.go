// Package engine owns the reconciliation state and wires the poll loop,
// the session client, the idle tracker and the notification sinks.
package engine

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/internal/daemon/idle"
	"github.com/grovetools/arcade/internal/daemon/metrics"
	"github.com/grovetools/arcade/internal/daemon/notifier"
	"github.com/grovetools/arcade/internal/daemon/poller"
	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/internal/daemon/store"
	"github.com/grovetools/arcade/internal/daemon/telemetry"
	"github.com/grovetools/arcade/pkg/arcade"
	"github.com/grovetools/arcade/pkg/clock"
	"github.com/grovetools/arcade/pkg/retry"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

// SessionClient is the remote session service.
type SessionClient interface {
	FetchSession(ctx context.Context, cred arcade.Credential) (*arcade.Session, error)
	FetchStats(ctx context.Context, cred arcade.Credential) (*arcade.Stats, error)
	StartSession(ctx context.Context, cred arcade.Credential, work string) (*arcade.StartResult, error)
	PauseSession(ctx context.Context, cred arcade.Credential) (*arcade.PauseResult, error)
	EndSession(ctx context.Context, cred arcade.Credential) error
	ServiceStatus(ctx context.Context) (*arcade.Status, error)
}

// CredentialStore loads and clears the saved credential.
type CredentialStore interface {
	Load() (arcade.Credential, error)
	Clear() error
}

// Settings are the user toggles that can change while the daemon runs.
type Settings struct {
	SessionNotifications bool
	StartReminders       bool
}

// Options configures an Engine.
type Options struct {
	Client      SessionClient
	Credentials CredentialStore
	Store       *store.Store

	Policy        reconciler.Policy
	Retry         retry.Options
	Tick          time.Duration
	IdleThreshold int
	Settings      Settings
	NotifyTimeout time.Duration
	// Quiet drops notifications instead of emitting them. One-shot callers
	// start from a fresh state every run, so every poll would look like an edge.
	Quiet         bool

	Metrics  *metrics.Metrics
	Notifier *notifier.Dispatcher
	Clock    clock.Clock
	Logger   *logrus.Entry
}

// Engine runs the poll loop. The reconciliation state is only touched on
// the poller goroutine; readers use the copy published under mu.
type Engine struct {
	client  SessionClient
	creds   CredentialStore
	store   *store.Store
	metrics *metrics.Metrics
	notify  *notifier.Dispatcher
	clock   clock.Clock
	logger  *logrus.Entry

	retryOpts     retry.Options
	notifyTimeout time.Duration
	quiet         bool
	poller        *poller.Poller[reconciler.Outcome]
	idle          *idle.Tracker
	sf            singleflight.Group

	// loop-owned
	state       reconciler.State
	lastDisplay reconciler.Display

	mu        sync.RWMutex
	published reconciler.State
	policy    reconciler.Policy
	settings  Settings

	active  atomic.Bool
	running atomic.Bool
	wg      sync.WaitGroup
}

// New creates an Engine. Run starts it.
func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Store == nil {
		opts.Store = store.New()
	}
	if opts.Policy.Interval <= 0 {
		opts.Policy = reconciler.DefaultPolicy()
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.Defaults()
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 10 * time.Second
	}

	e := &Engine{
		client:        opts.Client,
		creds:         opts.Credentials,
		store:         opts.Store,
		metrics:       opts.Metrics,
		notify:        opts.Notifier,
		clock:         opts.Clock,
		logger:        opts.Logger,
		retryOpts:     opts.Retry,
		notifyTimeout: opts.NotifyTimeout,
		quiet:         opts.Quiet,
		state:         reconciler.NewState(),
		policy:        opts.Policy,
		settings:      opts.Settings,
	}
	e.published = e.state
	e.idle = idle.New(opts.IdleThreshold, func() bool { return e.Settings().StartReminders })

	pollerOpts := []poller.Option[reconciler.Outcome]{
		poller.WithApply[reconciler.Outcome](e.apply),
		poller.WithOnForce[reconciler.Outcome](e.onForce),
		poller.WithClock[reconciler.Outcome](opts.Clock),
		poller.WithLogger[reconciler.Outcome](opts.Logger),
	}
	if opts.Tick > 0 {
		pollerOpts = append(pollerOpts, poller.WithTick[reconciler.Outcome](opts.Tick, e.tick))
	}
	e.poller = poller.New(e.poll, opts.Policy.Interval, pollerOpts...)
	return e
}

// Run polls until ctx is canceled and waits for pending notification
// deliveries before returning.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("Starting session poll loop")
	e.running.Store(true)
	e.poller.Run(ctx)
	e.running.Store(false)
	e.wg.Wait()
	e.logger.Info("Session poll loop stopped")
}

// Store returns the engine's state store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Done is closed when the poll loop has stopped.
func (e *Engine) Done() <-chan struct{} {
	return e.poller.Done()
}

// State returns the most recently applied reconciliation state.
func (e *Engine) State() reconciler.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.published
}

// Display recomputes the display intent at the current time.
func (e *Engine) Display() reconciler.Display {
	return reconciler.Render(e.State(), e.clock.Now())
}

// Policy returns the active poll policy.
func (e *Engine) Policy() reconciler.Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.policy
}

// SetPolicy replaces the poll policy; it takes effect on the next applied poll.
func (e *Engine) SetPolicy(p reconciler.Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policy = p
}

// Settings returns the current user toggles.
func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// SetSettings replaces the user toggles.
func (e *Engine) SetSettings(s Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s
}

// Refresh forces an immediate poll. It returns false when the request was
// coalesced with a poll already in flight or the loop is not running.
func (e *Engine) Refresh(ctx context.Context) bool {
	if !e.running.Load() {
		return false
	}
	started := e.poller.Refresh(ctx)
	if e.metrics != nil {
		e.metrics.Refresh(started)
	}
	e.logger.WithField("started", started).Info("Forced refresh")
	return started
}

// Activity records one editing activity event and emits the start reminder
// when the idle tracker says so.
func (e *Engine) Activity(source string) bool {
	if e.metrics != nil {
		e.metrics.Activity()
	}
	if !e.idle.OnActivity(e.active.Load()) {
		return false
	}
	e.logger.WithField("source", source).Info("Idle activity threshold reached")
	if e.metrics != nil {
		e.metrics.Nudge()
	}
	e.emit(reconciler.ReminderNotification())
	return true
}

// Idle exposes the tracker state for diagnostics.
func (e *Engine) Idle() (count int, nudged bool) {
	return e.idle.Snapshot()
}

// poll runs on the poller's helper goroutine.
func (e *Engine) poll(ctx context.Context, seq uint64) reconciler.Outcome {
	ctx, span := telemetry.StartSpan(ctx, "arcade.poll", attribute.Int64("seq", int64(seq)))
	defer span.End()

	cred, err := e.creds.Load()
	if err != nil {
		return reconciler.Failed(seq, "", err)
	}
	if cred.IsEmpty() {
		return reconciler.NoCredential(seq)
	}

	start := e.clock.Now()
	sess, err := retry.Do(ctx, func(ctx context.Context) (*arcade.Session, error) {
		return e.client.FetchSession(ctx, cred)
	},
		retry.WithOptions(e.retryOpts),
		retry.WithName("session"),
		retry.WithRetryable(Retryable),
		retry.WithClock(e.clock),
		retry.WithLogger(e.logger),
	)
	took := e.clock.Now().Sub(start)

	if err != nil {
		if e.metrics != nil && ctx.Err() == nil {
			e.metrics.ObservePoll("failed", took)
		}
		span.RecordError(err)
		return reconciler.Failed(seq, cred.ID, err)
	}
	if e.metrics != nil {
		e.metrics.ObservePoll("fetched", took)
	}
	return reconciler.Fetched(seq, cred.ID, sess)
}

// Retryable reports whether a fetch error is worth retrying. Credential
// problems and service rejections will not change on a retry.
func Retryable(err error) bool {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidCredential, errors.ErrCodeInvalidInput, errors.ErrCodeSessionRejected:
		return false
	case errors.ErrCodeTransport, errors.ErrCodeProtocol:
		return true
	}
	return !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, context.DeadlineExceeded)
}

// apply runs on the loop goroutine.
func (e *Engine) apply(out reconciler.Outcome, forced bool) time.Duration {
	now := e.clock.Now()
	policy := e.Policy()

	next, fx := reconciler.Reconcile(e.state, out, now, policy)
	if fx.Stale {
		e.logger.WithField("seq", out.Seq).Debug("Dropped stale poll outcome")
		return policy.Interval
	}
	e.state = next
	e.active.Store(next.Active())

	log := e.logger.WithFields(logrus.Fields{
		"seq":    out.Seq,
		"phase":  next.Phase,
		"forced": forced,
	})
	if fx.PhaseChanged() {
		log.WithField("from", fx.From).Info("Session phase changed")
	} else {
		log.Debug("Poll applied")
	}

	if fx.ClearCredential {
		if err := e.creds.Clear(); err != nil {
			e.logger.WithError(err).Error("Failed to clear rejected credentials")
		}
		e.store.ApplyUpdate(store.Update{Type: store.UpdateCredentialCleared, Source: "poller"})
	}
	if out.Kind == reconciler.OutcomeFailed || (fx.PhaseChanged() && next.Active()) {
		e.idle.Reset()
	}

	e.mu.Lock()
	e.published = next
	e.mu.Unlock()

	e.store.ApplyUpdate(store.Update{Type: store.UpdateSnapshot, Source: "poller", Payload: store.Snapshot{
		Phase:     next.Phase,
		Session:   next.Previous,
		Identity:  next.Identity,
		Failures:  next.ConsecutiveFailures,
		LastError: next.LastErrorMessage,
		NextPoll:  now.Add(next.NextDelay),
	}})
	e.publishDisplay(fx.Display, "poller")

	for _, n := range fx.Notifications {
		if e.quiet {
			log.WithField("kind", n.Kind).Debug("Notification dropped in quiet mode")
			continue
		}
		if n.IsSession() && !e.Settings().SessionNotifications {
			log.WithField("kind", n.Kind).Debug("Session notification suppressed")
			continue
		}
		e.emit(n)
	}

	if e.metrics != nil {
		e.metrics.SetPhase(string(next.Phase))
		e.metrics.SetFailures(next.ConsecutiveFailures)
	}
	return next.NextDelay
}

// onForce runs on the loop goroutine for every forced refresh.
func (e *Engine) onForce() {
	e.state = reconciler.ForceReset(e.state)
}

// tick runs on the loop goroutine between polls.
func (e *Engine) tick(now time.Time) {
	e.publishDisplay(reconciler.Render(e.state, now), "tick")
}

// publishDisplay pushes d to subscribers when it differs from the last one.
func (e *Engine) publishDisplay(d reconciler.Display, source string) {
	if displayEqual(d, e.lastDisplay) {
		return
	}
	e.lastDisplay = d
	e.store.ApplyUpdate(store.Update{Type: store.UpdateDisplay, Source: source, Payload: d})
}

func displayEqual(a, b reconciler.Display) bool {
	return a.Phase == b.Phase && a.Icon == b.Icon && a.Text == b.Text &&
		a.Tooltip == b.Tooltip && a.Command == b.Command && a.Warning == b.Warning
}

// emit stamps n, publishes it to the store and hands it to the external
// sinks without blocking the caller.
func (e *Engine) emit(n reconciler.Notification) {
	stamped := store.Notification{
		ID:           uuid.NewString(),
		Notification: n,
		CreatedAt:    e.clock.Now(),
	}
	e.logger.WithFields(logrus.Fields{"kind": n.Kind, "id": stamped.ID}).Info(n.Message)
	e.store.ApplyUpdate(store.Update{Type: store.UpdateNotification, Source: "engine", Payload: stamped})
	if e.metrics != nil {
		e.metrics.Notification(string(n.Kind))
	}
	if e.notify == nil {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.notifyTimeout)
		defer cancel()
		e.notify.Dispatch(ctx, stamped)
	}()
}

// PollOnce fetches and applies a single outcome synchronously. It is for
// one-shot callers that never call Run.
func (e *Engine) PollOnce(ctx context.Context) reconciler.State {
	e.apply(e.poll(ctx, 0), true)
	return e.State()
}

// credential loads the saved credential, failing when there is none.
func (e *Engine) credential() (arcade.Credential, error) {
	cred, err := e.creds.Load()
	if err != nil {
		return arcade.Credential{}, err
	}
	if cred.IsEmpty() {
		return arcade.Credential{}, errors.New(errors.ErrCodeInvalidCredential, "no credentials saved; run arcade init")
	}
	return cred, nil
}

// StartSession starts a session with the given work description and forces
// a refresh so the new phase is picked up at once.
func (e *Engine) StartSession(ctx context.Context, work string) (*arcade.StartResult, error) {
	cred, err := e.credential()
	if err != nil {
		return nil, err
	}
	res, err := e.client.StartSession(ctx, cred, work)
	if err != nil {
		return nil, err
	}
	e.logger.WithField("id", res.ID).Info("Session started")
	e.Refresh(ctx)
	return res, nil
}

// PauseSession toggles the paused state of the running session.
func (e *Engine) PauseSession(ctx context.Context) (*arcade.PauseResult, error) {
	cred, err := e.credential()
	if err != nil {
		return nil, err
	}
	res, err := e.client.PauseSession(ctx, cred)
	if err != nil {
		return nil, err
	}
	e.logger.WithField("paused", res.Paused).Info("Session pause toggled")
	e.Refresh(ctx)
	return res, nil
}

// EndSession cancels the running session.
func (e *Engine) EndSession(ctx context.Context) error {
	cred, err := e.credential()
	if err != nil {
		return err
	}
	if err := e.client.EndSession(ctx, cred); err != nil {
		return err
	}
	e.logger.Info("Session ended")
	e.Refresh(ctx)
	return nil
}

// Stats returns the user's session totals. Concurrent callers share one
// request.
func (e *Engine) Stats(ctx context.Context) (*arcade.Stats, error) {
	cred, err := e.credential()
	if err != nil {
		return nil, err
	}
	v, err, _ := e.sf.Do("stats:"+cred.ID, func() (interface{}, error) {
		return e.client.FetchStats(ctx, cred)
	})
	if err != nil {
		return nil, err
	}
	return v.(*arcade.Stats), nil
}

// Health returns the session service status.
func (e *Engine) Health(ctx context.Context) (*arcade.Status, error) {
	v, err, _ := e.sf.Do("health", func() (interface{}, error) {
		return e.client.ServiceStatus(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*arcade.Status), nil
}
