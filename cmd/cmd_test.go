package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/grovetools/arcade/credentials"
	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/internal/daemon/engine"
	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/internal/daemon/store"
	"github.com/grovetools/arcade/pkg/arcade"
	"github.com/grovetools/arcade/pkg/daemon"
	"github.com/grovetools/arcade/pkg/retry"
	"github.com/grovetools/arcade/state"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123abcd-0123-abcd-0123-0123456789ab"

// isolate points every arcade path at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("ARCADE_HOME", root)
	t.Setenv("ARCADE_CONFIG", "")
	return root
}

type fakeFetcher struct {
	calls int
	err   error
}

func (f *fakeFetcher) FetchSession(ctx context.Context, cred arcade.Credential) (*arcade.Session, error) {
	f.calls++
	return nil, f.err
}

func testInitDeps(t *testing.T, fetcher sessionFetcher) (initDeps, *credentials.Store, *bool) {
	store := credentials.NewStore(filepath.Join(t.TempDir(), "credentials.yml"))
	refreshed := false
	opts := retry.Defaults()
	opts.MaxAttempts = 1
	return initDeps{
		client:  fetcher,
		store:   store,
		retry:   opts,
		logger:  logrus.NewEntry(logrus.New()),
		refresh: func(context.Context) { refreshed = true },
	}, store, &refreshed
}

func TestRunInit(t *testing.T) {
	fetcher := &fakeFetcher{}
	deps, store, refreshed := testInitDeps(t, fetcher)

	var out bytes.Buffer
	p := newPrompter(strings.NewReader("U04QD71QWS0\n"+testKey+"\n"), &out)
	require.NoError(t, runInit(context.Background(), p, "", deps))

	cred, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "U04QD71QWS0", cred.ID)
	assert.Equal(t, testKey, cred.APIKey)
	assert.Equal(t, 1, fetcher.calls)
	assert.True(t, *refreshed)
	assert.Contains(t, out.String(), "Enter your Slack ID")
}

func TestRunInitRejected(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		slackID  string
		fetchErr error
		code     errors.ErrorCode
		calls    int
	}{
		{"bad id", "", "lowercase", nil, errors.ErrCodeInvalidInput, 0},
		{"bad key", "short\n", "U04QD71QWS0", nil, errors.ErrCodeInvalidInput, 0},
		{"no input", "", "", nil, errors.ErrCodeInvalidInput, 0},
		{"unknown user", testKey + "\n", "U04QD71QWS0", errors.InvalidCredential("User not found"), errors.ErrCodeInvalidCredential, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{err: tt.fetchErr}
			deps, store, refreshed := testInitDeps(t, fetcher)

			p := newPrompter(strings.NewReader(tt.input), &bytes.Buffer{})
			err := runInit(context.Background(), p, tt.slackID, deps)
			assert.Equal(t, tt.code, errors.GetCode(err))
			assert.Equal(t, tt.calls, fetcher.calls)
			assert.False(t, *refreshed)

			_, statErr := os.Stat(store.Path())
			assert.True(t, os.IsNotExist(statErr), "nothing is saved")
		})
	}
}

type fakeClient struct {
	daemon.Client
	mu         sync.Mutex
	state      store.State
	pauses     int
	started    []string
	activity   []string
	remindNext bool
}

func (f *fakeClient) State(context.Context) (*store.State, error) {
	st := f.state
	return &st, nil
}

func (f *fakeClient) PauseSession(context.Context) (*arcade.PauseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return &arcade.PauseResult{Paused: f.state.Phase == reconciler.PhaseActive}, nil
}

func (f *fakeClient) StartSession(_ context.Context, work string) (*arcade.StartResult, error) {
	f.started = append(f.started, work)
	return &arcade.StartResult{ID: "rec1"}, nil
}

func (f *fakeClient) Activity(_ context.Context, source string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activity = append(f.activity, source)
	return f.remindNext, nil
}

func (f *fakeClient) Close() error { return nil }

func withFakeClient(t *testing.T, c *fakeClient) {
	t.Helper()
	prev := newClient
	newClient = func() daemon.Client { return c }
	t.Cleanup(func() { newClient = prev })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPauseResume(t *testing.T) {
	isolate(t)
	tests := []struct {
		name   string
		args   []string
		phase  reconciler.Phase
		want   string
		pauses int
	}{
		{"pause active", []string{"pause"}, reconciler.PhaseActive, "Session paused", 1},
		{"resume paused", []string{"resume"}, reconciler.PhasePaused, "Session resumed", 1},
		{"pause paused", []string{"pause"}, reconciler.PhasePaused, "", 0},
		{"resume without session", []string{"resume"}, reconciler.PhaseCompleted, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{state: store.State{Phase: tt.phase}}
			withFakeClient(t, client)

			out, err := execute(t, tt.args...)
			assert.Equal(t, tt.pauses, client.pauses)
			if tt.want == "" {
				assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestStartJoinsArgs(t *testing.T) {
	isolate(t)
	client := &fakeClient{}
	withFakeClient(t, client)

	out, err := execute(t, "start", "dark", "mode", "--json")
	require.NoError(t, err)
	assert.Equal(t, []string{"dark mode"}, client.started)
	assert.Contains(t, out, `"id": "rec1"`)
}

func TestStatusPrintsDisplay(t *testing.T) {
	isolate(t)
	withFakeClient(t, &fakeClient{state: store.State{
		Phase: reconciler.PhaseSetup,
		Display: reconciler.Display{
			Phase: reconciler.PhaseSetup, Icon: reconciler.IconSetup, Text: "Setup Arcade",
			Tooltip: "Run arcade init to set up Arcade", Command: "arcade init",
		},
	}})

	out, err := execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Setup Arcade")
	assert.Contains(t, out, "→ arcade init")
}

func TestNotificationsToggle(t *testing.T) {
	isolate(t)

	out, err := execute(t, "notifications", "reminders", "off")
	require.NoError(t, err)
	assert.Contains(t, out, "Start reminder notifications have been disabled")

	st, err := state.Load()
	require.NoError(t, err)
	assert.False(t, st.Bool(state.KeyStartReminders, true))

	out, err = execute(t, "notifications", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"start_reminders": false`)
	assert.Contains(t, out, `"session": true`)

	_, err = execute(t, "notifications", "session", "sometimes")
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
}

func TestSlackOpensConfiguredURL(t *testing.T) {
	isolate(t)
	var opened string
	prev := urlOpener
	urlOpener = func(_ context.Context, url string) error {
		opened = url
		return nil
	}
	t.Cleanup(func() { urlOpener = prev })

	path := filepath.Join(t.TempDir(), "arcade.yml")
	require.NoError(t, os.WriteFile(path, []byte("slack_url: https://hackclub.slack.com/archives/C0TEST\n"), 0644))

	_, err := execute(t, "slack", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "https://hackclub.slack.com/archives/C0TEST", opened)
}

func TestWatchPrinter(t *testing.T) {
	var out bytes.Buffer
	p := &watchPrinter{w: &out}
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	active := reconciler.Display{Phase: reconciler.PhaseActive, Text: "59:59"}
	p.print(daemon.StateUpdate{UpdateType: "display", Display: &active}, at)
	next := active
	next.Text = "59:58"
	p.print(daemon.StateUpdate{UpdateType: "display", Display: &next}, at)
	note := &store.Notification{Notification: reconciler.Notification{
		Message: "You seem to be working on something...",
		Action:  &reconciler.Action{Label: "Don't Show Again", Command: "arcade notifications reminders off"},
	}}
	p.print(daemon.StateUpdate{UpdateType: "notification", Notification: note}, at)
	p.print(daemon.StateUpdate{UpdateType: "credential_cleared"}, at)

	text := out.String()
	assert.Equal(t, 1, strings.Count(text, "59:5"), "countdown ticks are skipped")
	assert.Contains(t, text, "arcade notifications reminders off")
	assert.Contains(t, text, "credentials cleared")
	assert.Contains(t, text, "09:30:00")
}

func TestPrintTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0644))

	var out bytes.Buffer
	require.NoError(t, printTail(&out, path, 2))
	assert.Equal(t, "two\nthree\n", out.String())

	out.Reset()
	require.NoError(t, printTail(&out, path, 0))
	assert.Empty(t, out.String())
}

func TestRunningConfig(t *testing.T) {
	isolate(t)
	cfg := loadConfigOrDefault(NewRootCmd())
	started := time.Now()
	rc := runningConfig(cfg, engine.Settings{SessionNotifications: true}, []string{"desktop"}, started)
	assert.Equal(t, cfg.Poll.Interval.D(), rc.PollInterval)
	assert.True(t, rc.SessionNotifications)
	assert.False(t, rc.StartReminders)
	assert.Equal(t, []string{"desktop"}, rc.Sinks)
	assert.Equal(t, started, rc.StartedAt)
}

func TestConfigPathJSON(t *testing.T) {
	root := isolate(t)
	out, err := execute(t, "config", "path", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(root, "config"))
	assert.Contains(t, out, "credentials.yml")
}

func TestDisplayCommandsRunWithoutArgs(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	sess := &arcade.Session{Duration: time.Hour, Remaining: 30 * time.Minute, EndTime: now.Add(30 * time.Minute)}

	root := NewRootCmd()
	for _, phase := range []reconciler.Phase{
		reconciler.PhaseSetup, reconciler.PhaseLoading, reconciler.PhaseActive,
		reconciler.PhasePaused, reconciler.PhaseCompleted, reconciler.PhaseError,
	} {
		t.Run(string(phase), func(t *testing.T) {
			s := reconciler.NewState()
			s.Phase = phase
			s.Previous = sess
			d := reconciler.Render(s, now)
			if d.Command == "" {
				return
			}

			fields := strings.Fields(d.Command)
			require.Equal(t, "arcade", fields[0])
			found, rest, err := root.Find(fields[1:])
			require.NoError(t, err)
			assert.Empty(t, rest)
			assert.Equal(t, fields[len(fields)-1], found.Name())
			assert.True(t, found.Runnable())
			if found.Args != nil {
				assert.NoError(t, found.Args(found, nil), "%q needs arguments", d.Command)
			}
		})
	}
}

func TestActivityReportsSource(t *testing.T) {
	isolate(t)
	c := &fakeClient{}
	withFakeClient(t, c)

	out, err := execute(t, "activity", "--source", "nvim")
	require.NoError(t, err)
	assert.Empty(t, out)

	c.remindNext = true
	out, err = execute(t, "activity")
	require.NoError(t, err)
	assert.Contains(t, out, "Don't forget to start a session")
	assert.Contains(t, out, "arcade notifications reminders off")
	assert.Equal(t, []string{"nvim", "cli"}, c.activity)

	out, err = execute(t, "activity", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"reminded": true`)
}
