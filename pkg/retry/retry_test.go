package retry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/grovetools/arcade/pkg/clock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// instantClock records requested delays and fires every timer immediately.
type instantClock struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (c *instantClock) Now() time.Time { return time.Unix(0, 0) }

func (c *instantClock) NewTimer(d time.Duration) clock.Timer {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.mu.Unlock()
	return clock.NewFake(time.Unix(0, 0)).NewTimer(0)
}

func TestDoAlwaysFailingCallsMaxAttempts(t *testing.T) {
	clk := &instantClock{}
	boom := errors.New("boom")
	calls := 0

	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, boom
	}, WithClock(clk))

	assert.Same(t, boom, err, "final error must be propagated unchanged")
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 4 * time.Second}, clk.delays)
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	clk := &instantClock{}
	calls := 0

	got, err := Do(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}, WithClock(clk))

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
}

func TestDoSingleAttempt(t *testing.T) {
	for _, n := range []int{1, 0, -3} {
		clk := &instantClock{}
		calls := 0
		_, err := Do(context.Background(), func(context.Context) (int, error) {
			calls++
			return 0, errors.New("fail")
		}, WithClock(clk), WithMaxAttempts(n))

		assert.Error(t, err)
		assert.Equal(t, 1, calls, "maxAttempts=%d", n)
		assert.Empty(t, clk.delays)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	clk := &instantClock{}
	permanent := errors.New("permanent")
	calls := 0

	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, permanent
	}, WithClock(clk), WithRetryable(func(err error) bool { return err != permanent }))

	assert.Same(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestDoCancelledWhileWaiting(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, func(context.Context) (int, error) {
			return 0, errors.New("fail")
		}, WithClock(fake))
		done <- err
	}()

	require.True(t, fake.WaitForTimers(1, time.Second))
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestDoIsReentrant(t *testing.T) {
	var wg sync.WaitGroup
	counts := make([]int, 4)
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clk := &instantClock{}
			_, _ = Do(context.Background(), func(context.Context) (int, error) {
				counts[i]++
				return 0, errors.New("fail")
			}, WithClock(clk), WithMaxAttempts(i+1))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, []int{1, 2, 3, 4}, counts)
}

func TestDoLogsRetriesLeft(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	_, err := Do(context.Background(), func(context.Context) (int, error) {
		return 0, errors.New("offline")
	}, WithClock(&instantClock{}), WithName("getSession"), WithLogger(logrus.NewEntry(logger)))
	require.Error(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Retrying getSession... 2 retries left")
	assert.Contains(t, lines[0], "operation=getSession")
	assert.Contains(t, lines[1], "Retrying getSession... 1 retries left")
}

func TestDoLogsDefaultName(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	_, _ = Do(context.Background(), func(context.Context) (int, error) {
		return 0, errors.New("offline")
	}, WithClock(&instantClock{}), WithMaxAttempts(2), WithLogger(logrus.NewEntry(logger)))

	assert.Contains(t, buf.String(), "Retrying request... 1 retries left")
}
