// Package poller runs a poll function on a self-adjusting timer.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/grovetools/arcade/pkg/clock"
	"github.com/sirupsen/logrus"
)

// PollFunc performs one poll. seq increases by one for every call.
type PollFunc[T any] func(ctx context.Context, seq uint64) T

// ApplyFunc consumes a poll result on the loop goroutine and returns the
// delay before the next scheduled poll.
type ApplyFunc[T any] func(result T, forced bool) time.Duration

// Poller drives PollFunc with at most one poll in flight. The next poll is
// scheduled only after the previous one completes.
type Poller[T any] struct {
	poll     PollFunc[T]
	apply    ApplyFunc[T]
	onForce  func()
	onTick   func(now time.Time)
	interval time.Duration
	tick     time.Duration
	clock    clock.Clock
	logger   *logrus.Entry

	refresh chan chan bool
	done    chan struct{}
	once    sync.Once
}

// Option configures a Poller.
type Option[T any] func(*Poller[T])

// WithApply sets the result consumer.
func WithApply[T any](fn ApplyFunc[T]) Option[T] {
	return func(p *Poller[T]) { p.apply = fn }
}

// WithOnForce is called on the loop goroutine for every forced refresh,
// including ones coalesced into an in-flight poll.
func WithOnForce[T any](fn func()) Option[T] {
	return func(p *Poller[T]) { p.onForce = fn }
}

// WithTick calls fn every d between polls, for display refresh.
func WithTick[T any](d time.Duration, fn func(now time.Time)) Option[T] {
	return func(p *Poller[T]) {
		p.tick = d
		p.onTick = fn
	}
}

// WithClock injects the time source.
func WithClock[T any](c clock.Clock) Option[T] {
	return func(p *Poller[T]) { p.clock = c }
}

// WithLogger sets the logger.
func WithLogger[T any](l *logrus.Entry) Option[T] {
	return func(p *Poller[T]) { p.logger = l }
}

// New creates a Poller that waits interval between polls unless the apply
// hook says otherwise.
func New[T any](poll PollFunc[T], interval time.Duration, opts ...Option[T]) *Poller[T] {
	p := &Poller[T]{
		poll:     poll,
		interval: interval,
		clock:    clock.Real{},
		logger:   logrus.NewEntry(logrus.StandardLogger()),
		refresh:  make(chan chan bool),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type result[T any] struct {
	value  T
	forced bool
}

// Run polls immediately and then on schedule until ctx is canceled. On
// cancellation it cancels the in-flight poll, waits for it and discards its
// result. Run must only be called once.
func (p *Poller[T]) Run(ctx context.Context) {
	defer p.once.Do(func() { close(p.done) })

	results := make(chan result[T], 1)
	var (
		seq        uint64
		inFlight   bool
		cancelPoll context.CancelFunc = func() {}
		timer      clock.Timer
		ticker     clock.Timer
	)

	start := func(forced bool) {
		seq++
		pctx, cancel := context.WithCancel(ctx)
		cancelPoll = cancel
		inFlight = true
		go func(seq uint64) {
			results <- result[T]{value: p.poll(pctx, seq), forced: forced}
		}(seq)
	}
	chanOf := func(t clock.Timer) <-chan time.Time {
		if t == nil {
			return nil
		}
		return t.C()
	}
	stop := func(t clock.Timer) {
		if t != nil {
			t.Stop()
		}
	}

	if p.tick > 0 && p.onTick != nil {
		ticker = p.clock.NewTimer(p.tick)
	}
	start(false)

	for {
		select {
		case <-ctx.Done():
			stop(timer)
			stop(ticker)
			if inFlight {
				cancelPoll()
				<-results
			}
			return

		case <-chanOf(timer):
			timer = nil
			if !inFlight {
				start(false)
			}

		case reply := <-p.refresh:
			if p.onForce != nil {
				p.onForce()
			}
			if inFlight {
				p.logger.Debug("Refresh coalesced with in-flight poll")
				reply <- false
				continue
			}
			stop(timer)
			timer = nil
			start(true)
			reply <- true

		case r := <-results:
			inFlight = false
			cancelPoll()
			if ctx.Err() != nil {
				return
			}
			delay := p.interval
			if p.apply != nil {
				delay = p.apply(r.value, r.forced)
			}
			timer = p.clock.NewTimer(delay)

		case now := <-chanOf(ticker):
			p.onTick(now)
			ticker = p.clock.NewTimer(p.tick)
		}
	}
}

// Refresh asks the loop to poll now. It returns true if a new poll was
// started and false if the request was coalesced into one already in flight
// or the loop is not running.
func (p *Poller[T]) Refresh(ctx context.Context) bool {
	reply := make(chan bool, 1)
	select {
	case p.refresh <- reply:
	case <-p.done:
		return false
	case <-ctx.Done():
		return false
	}
	select {
	case started := <-reply:
		return started
	case <-p.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Done is closed when Run returns.
func (p *Poller[T]) Done() <-chan struct{} {
	return p.done
}
