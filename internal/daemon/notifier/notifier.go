// Package notifier delivers daemon notifications to sinks outside the
// process: the desktop notification service and a NATS subject.
package notifier

import (
	"context"
	"sync"

	"github.com/grovetools/arcade/internal/daemon/store"
	"github.com/sirupsen/logrus"
)

// Sink delivers a notification somewhere.
type Sink interface {
	Name() string
	Notify(ctx context.Context, n store.Notification) error
	Close() error
}

// Dispatcher fans a notification out to every sink. Sink failures are
// logged and never reach the poll loop.
type Dispatcher struct {
	mu     sync.RWMutex
	sinks  []Sink
	logger *logrus.Entry
}

// NewDispatcher creates a Dispatcher with the given sinks.
func NewDispatcher(logger *logrus.Entry, sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, logger: logger}
}

// Add registers another sink.
func (d *Dispatcher) Add(s Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, s)
}

// Sinks returns the registered sink names.
func (d *Dispatcher) Sinks() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Dispatch delivers n to all sinks concurrently and waits for them.
func (d *Dispatcher) Dispatch(ctx context.Context, n store.Notification) {
	d.mu.RLock()
	sinks := append([]Sink(nil), d.sinks...)
	d.mu.RUnlock()

	var wg sync.WaitGroup
	for _, s := range sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			if err := s.Notify(ctx, n); err != nil {
				d.logger.WithError(err).WithFields(logrus.Fields{
					"sink": s.Name(),
					"kind": n.Kind,
				}).Warn("Notification delivery failed")
			}
		}(s)
	}
	wg.Wait()
}

// Close closes every sink.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var first error
	for _, s := range d.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	d.sinks = nil
	return first
}
