package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/internal/daemon/store"
	"github.com/grovetools/arcade/pkg/arcade"
	"github.com/grovetools/arcade/pkg/clock"
	"github.com/grovetools/arcade/pkg/retry"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu        sync.Mutex
	session   *arcade.Session
	err       error
	fetches   int
	started   []string
	paused    int
	ended     int
	stats     int32
	statsGate chan struct{}
}

func (f *fakeClient) set(s *arcade.Session, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session, f.err = s, err
}

func (f *fakeClient) FetchSession(ctx context.Context, cred arcade.Credential) (*arcade.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return f.session, f.err
}

func (f *fakeClient) FetchStats(ctx context.Context, cred arcade.Credential) (*arcade.Stats, error) {
	atomic.AddInt32(&f.stats, 1)
	if f.statsGate != nil {
		<-f.statsGate
	}
	return &arcade.Stats{Sessions: 4, Total: 4 * time.Hour}, nil
}

func (f *fakeClient) StartSession(ctx context.Context, cred arcade.Credential, work string) (*arcade.StartResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, work)
	return &arcade.StartResult{ID: "sess-1"}, nil
}

func (f *fakeClient) PauseSession(ctx context.Context, cred arcade.Credential) (*arcade.PauseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused++
	return &arcade.PauseResult{Paused: true}, nil
}

func (f *fakeClient) EndSession(ctx context.Context, cred arcade.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended++
	return nil
}

func (f *fakeClient) ServiceStatus(ctx context.Context) (*arcade.Status, error) {
	return &arcade.Status{AirtableConnected: true, SlackConnected: true}, nil
}

type fakeCreds struct {
	mu      sync.Mutex
	cred    arcade.Credential
	cleared bool
}

func (f *fakeCreds) Load() (arcade.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cred, nil
}

func (f *fakeCreds) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cred = arcade.Credential{}
	f.cleared = true
	return nil
}

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, client *fakeClient, creds *fakeCreds) (*Engine, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(t0)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	rt := retry.Defaults()
	rt.MaxAttempts = 1
	e := New(Options{
		Client:      client,
		Credentials: creds,
		Retry:       rt,
		Settings:    Settings{SessionNotifications: true, StartReminders: true},
		Clock:       clk,
		Logger:      logrus.NewEntry(logger),
	})
	return e, clk
}

func activeSession(goal string) *arcade.Session {
	return &arcade.Session{
		ID:        "s1",
		CreatedAt: t0,
		Duration:  time.Hour,
		EndTime:   t0.Add(30 * time.Minute),
		Remaining: 30 * time.Minute,
		Goal:      goal,
	}
}

func drain(ch chan store.Update) []store.Update {
	var out []store.Update
	for {
		select {
		case u := <-ch:
			out = append(out, u)
		default:
			return out
		}
	}
}

func notificationsOf(updates []store.Update) []store.Notification {
	var out []store.Notification
	for _, u := range updates {
		if u.Type == store.UpdateNotification {
			out = append(out, u.Payload.(store.Notification))
		}
	}
	return out
}

func TestPollOnceWithoutCredentialIsSetup(t *testing.T) {
	client := &fakeClient{}
	e, _ := newTestEngine(t, client, &fakeCreds{})

	s := e.PollOnce(context.Background())
	assert.Equal(t, reconciler.PhaseSetup, s.Phase)
	assert.Equal(t, 0, client.fetches)
	assert.Equal(t, reconciler.IconSetup, e.Display().Icon)
}

func TestPollOnceActivePublishesStartNotification(t *testing.T) {
	client := &fakeClient{session: activeSession("Arcade CLI")}
	e, _ := newTestEngine(t, client, &fakeCreds{cred: arcade.Credential{ID: "U123ABC", APIKey: "k"}})
	sub := e.Store().Subscribe()
	defer e.Store().Unsubscribe(sub)

	s := e.PollOnce(context.Background())
	assert.Equal(t, reconciler.PhaseActive, s.Phase)
	assert.Equal(t, "U123ABC", s.Identity)

	updates := drain(sub)
	notes := notificationsOf(updates)
	require.Len(t, notes, 1)
	assert.Equal(t, reconciler.NotifyStart, notes[0].Kind)
	assert.Contains(t, notes[0].Message, "Arcade CLI")
	assert.NotEmpty(t, notes[0].ID)

	got := e.Store().Get()
	assert.Equal(t, reconciler.PhaseActive, got.Phase)
	assert.Equal(t, "30:00", got.Display.Text)

	// A second identical poll is silent.
	e.PollOnce(context.Background())
	assert.Empty(t, notificationsOf(drain(sub)))
}

func TestSessionNotificationsCanBeSilenced(t *testing.T) {
	client := &fakeClient{session: activeSession("")}
	e, _ := newTestEngine(t, client, &fakeCreds{cred: arcade.Credential{ID: "U123ABC", APIKey: "k"}})
	e.SetSettings(Settings{SessionNotifications: false, StartReminders: true})
	sub := e.Store().Subscribe()
	defer e.Store().Unsubscribe(sub)

	e.PollOnce(context.Background())
	assert.Empty(t, notificationsOf(drain(sub)))
	assert.True(t, e.State().NotifiedStart, "flags still advance while silenced")
}

func TestInvalidCredentialIsCleared(t *testing.T) {
	client := &fakeClient{err: errors.InvalidCredential("User not found")}
	creds := &fakeCreds{cred: arcade.Credential{ID: "U123ABC", APIKey: "k"}}
	e, _ := newTestEngine(t, client, creds)
	sub := e.Store().Subscribe()
	defer e.Store().Unsubscribe(sub)

	s := e.PollOnce(context.Background())
	assert.Equal(t, reconciler.PhaseSetup, s.Phase)
	assert.True(t, creds.cleared)

	var types []store.UpdateType
	updates := drain(sub)
	for _, u := range updates {
		types = append(types, u.Type)
	}
	assert.Contains(t, types, store.UpdateCredentialCleared)
	notes := notificationsOf(updates)
	require.Len(t, notes, 1)
	assert.Equal(t, reconciler.NotifyInvalidCredential, notes[0].Kind)
}

func TestTransportErrorBacksOff(t *testing.T) {
	client := &fakeClient{err: errors.Transport("fetch session", context.DeadlineExceeded)}
	e, _ := newTestEngine(t, client, &fakeCreds{cred: arcade.Credential{ID: "U123ABC", APIKey: "k"}})

	e.PollOnce(context.Background())
	s := e.PollOnce(context.Background())
	assert.Equal(t, reconciler.PhaseError, s.Phase)
	assert.Equal(t, 2, s.ConsecutiveFailures)
	assert.Equal(t, 20*time.Second, s.NextDelay)
	assert.True(t, e.Display().Warning)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transport", errors.Transport("fetch", context.DeadlineExceeded), true},
		{"protocol", errors.Protocol("fetch", assert.AnError), true},
		{"invalid credential", errors.InvalidCredential("nope"), false},
		{"invalid input", errors.InvalidInput("id", "empty"), false},
		{"rejected", errors.SessionRejected("start", "already running"), false},
		{"canceled", context.Canceled, false},
		{"plain", assert.AnError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestActivityRemindsOnceWhileIdle(t *testing.T) {
	client := &fakeClient{}
	e, _ := newTestEngine(t, client, &fakeCreds{})
	sub := e.Store().Subscribe()
	defer e.Store().Unsubscribe(sub)

	fired := 0
	for i := 0; i < 6; i++ {
		if e.Activity("test") {
			fired++
		}
	}
	assert.Equal(t, 1, fired)
	notes := notificationsOf(drain(sub))
	require.Len(t, notes, 1)
	assert.Equal(t, reconciler.NotifyReminder, notes[0].Kind)
}

func TestActivityDuringSessionIsIgnored(t *testing.T) {
	client := &fakeClient{session: activeSession("")}
	e, _ := newTestEngine(t, client, &fakeCreds{cred: arcade.Credential{ID: "U123ABC", APIKey: "k"}})
	e.PollOnce(context.Background())

	for i := 0; i < 10; i++ {
		assert.False(t, e.Activity("test"))
	}
}

func TestRemindersDisabled(t *testing.T) {
	e, _ := newTestEngine(t, &fakeClient{}, &fakeCreds{})
	e.SetSettings(Settings{SessionNotifications: true, StartReminders: false})
	for i := 0; i < 10; i++ {
		assert.False(t, e.Activity("test"))
	}
}

func TestSessionCommandsNeedCredential(t *testing.T) {
	e, _ := newTestEngine(t, &fakeClient{}, &fakeCreds{})

	_, err := e.StartSession(context.Background(), "work")
	assert.Equal(t, errors.ErrCodeInvalidCredential, errors.GetCode(err))
	_, err = e.PauseSession(context.Background())
	assert.Error(t, err)
	assert.Error(t, e.EndSession(context.Background()))
}

func TestSessionCommands(t *testing.T) {
	client := &fakeClient{}
	e, _ := newTestEngine(t, client, &fakeCreds{cred: arcade.Credential{ID: "U123ABC", APIKey: "k"}})
	ctx := context.Background()

	res, err := e.StartSession(ctx, "writing tests")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", res.ID)
	p, err := e.PauseSession(ctx)
	require.NoError(t, err)
	assert.True(t, p.Paused)
	require.NoError(t, e.EndSession(ctx))

	assert.Equal(t, []string{"writing tests"}, client.started)
	assert.Equal(t, 1, client.paused)
	assert.Equal(t, 1, client.ended)
}

func TestStatsCoalesces(t *testing.T) {
	client := &fakeClient{statsGate: make(chan struct{})}
	e, _ := newTestEngine(t, client, &fakeCreds{cred: arcade.Credential{ID: "U123ABC", APIKey: "k"}})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := e.Stats(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 4, st.Sessions)
		}()
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&client.stats) >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(client.statsGate)
	wg.Wait()
	assert.Less(t, atomic.LoadInt32(&client.stats), int32(5), "concurrent callers share a request")

	h, err := e.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, h.Healthy())
}

func TestRunPollsAndRefreshes(t *testing.T) {
	client := &fakeClient{session: activeSession("")}
	e, clk := newTestEngine(t, client, &fakeCreds{cred: arcade.Credential{ID: "U123ABC", APIKey: "k"}})

	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)

	require.True(t, clk.WaitForTimers(1, time.Second), "first poll schedules the next one")
	assert.Equal(t, reconciler.PhaseActive, e.State().Phase)

	client.set(&arcade.Session{ID: "s1", Paused: true, EndTime: t0.Add(time.Hour)}, nil)
	clk.Advance(10 * time.Second)
	require.Eventually(t, func() bool { return e.State().Phase == reconciler.PhasePaused }, time.Second, time.Millisecond)

	client.set(activeSession(""), nil)
	assert.True(t, e.Refresh(context.Background()))
	require.Eventually(t, func() bool { return e.State().Phase == reconciler.PhaseActive }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-e.Done():
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestQuietEngineDropsNotifications(t *testing.T) {
	rt := retry.Defaults()
	rt.MaxAttempts = 1
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	creds := &fakeCreds{cred: arcade.Credential{ID: "U123ABC", APIKey: "k"}}
	client := &fakeClient{session: activeSession("Arcade CLI")}

	e := New(Options{
		Client:      client,
		Credentials: creds,
		Retry:       rt,
		Settings:    Settings{SessionNotifications: true, StartReminders: true},
		Clock:       clock.NewFake(t0),
		Logger:      logrus.NewEntry(logger),
		Quiet:       true,
	})
	sub := e.Store().Subscribe()
	defer e.Store().Unsubscribe(sub)

	for i := 0; i < 2; i++ {
		s := e.PollOnce(context.Background())
		assert.Equal(t, reconciler.PhaseActive, s.Phase)
	}
	assert.Empty(t, notificationsOf(drain(sub)))
	assert.Nil(t, e.Store().Get().LastNotification)

	client.set(nil, errors.InvalidCredential("User not found"))
	s := e.PollOnce(context.Background())
	assert.Equal(t, reconciler.PhaseSetup, s.Phase)
	assert.True(t, creds.cleared, "credential invalidation still applies")
	assert.Empty(t, notificationsOf(drain(sub)))
}
