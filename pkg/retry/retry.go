// Package retry wraps an operation with bounded exponential-backoff retry.
package retry

import (
	"context"
	"time"

	"github.com/grovetools/arcade/pkg/clock"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxAttempts   = 3
	DefaultInitialDelay  = time.Second
	DefaultBackoffFactor = 4
)

// Options controls a single retry invocation. The zero value is not usable;
// start from Defaults or pass Option functions to Do.
type Options struct {
	// Name is included in retry log lines.
	Name string
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int
	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration
	// BackoffFactor multiplies the delay after every failed attempt.
	BackoffFactor float64
	// Retryable reports whether err is worth another attempt. Nil retries everything.
	Retryable func(err error) bool

	Clock  clock.Clock
	Logger *logrus.Entry
}

// Option configures Options.
type Option func(*Options)

// Defaults returns the standard retry policy: 3 attempts, 1s, x4.
func Defaults() Options {
	return Options{
		MaxAttempts:   DefaultMaxAttempts,
		InitialDelay:  DefaultInitialDelay,
		BackoffFactor: DefaultBackoffFactor,
		Clock:         clock.Real{},
	}
}

// WithName labels log lines.
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithMaxAttempts sets the total attempt budget.
func WithMaxAttempts(n int) Option {
	return func(o *Options) { o.MaxAttempts = n }
}

// WithInitialDelay sets the first backoff delay.
func WithInitialDelay(d time.Duration) Option {
	return func(o *Options) { o.InitialDelay = d }
}

// WithBackoffFactor sets the delay multiplier.
func WithBackoffFactor(f float64) Option {
	return func(o *Options) { o.BackoffFactor = f }
}

// WithRetryable restricts which errors are retried.
func WithRetryable(fn func(error) bool) Option {
	return func(o *Options) { o.Retryable = fn }
}

// WithClock injects the time source used for delays.
func WithClock(c clock.Clock) Option {
	return func(o *Options) { o.Clock = c }
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l *logrus.Entry) Option {
	return func(o *Options) { o.Logger = l }
}

// WithOptions replaces the whole policy, keeping fields set by later options.
func WithOptions(base Options) Option {
	return func(o *Options) {
		clk, logger := o.Clock, o.Logger
		*o = base
		if o.Clock == nil {
			o.Clock = clk
		}
		if o.Logger == nil {
			o.Logger = logger
		}
	}
}

// Do runs op until it succeeds, the attempt budget is spent, the error is not
// retryable, or ctx is done. The last error from op is returned unchanged.
// Every call keeps its own delay and attempt counters.
func Do[T any](ctx context.Context, op func(context.Context) (T, error), opts ...Option) (T, error) {
	o := Defaults()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Clock == nil {
		o.Clock = clock.Real{}
	}

	delay := o.InitialDelay
	remaining := o.MaxAttempts
	for {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		remaining--
		if remaining <= 0 || (o.Retryable != nil && !o.Retryable(err)) {
			return result, err
		}

		if o.Logger != nil {
			name := o.Name
			if name == "" {
				name = "request"
			}
			o.Logger.WithError(err).WithFields(logrus.Fields{
				"operation": o.Name,
				"retries":   remaining,
				"delay":     delay.String(),
			}).Warnf("Retrying %s... %d retries left", name, remaining)
		}

		timer := o.Clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, ctx.Err()
		case <-timer.C():
		}
		delay = time.Duration(float64(delay) * o.BackoffFactor)
	}
}
