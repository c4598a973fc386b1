package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"sync"
	"testing"

	"github.com/grovetools/arcade/command"
	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/internal/daemon/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecutor struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recordingExecutor) Command(name string, args ...string) *exec.Cmd {
	return r.CommandContext(context.Background(), name, args...)
}

func (r *recordingExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.mu.Unlock()
	return exec.CommandContext(ctx, "true")
}

type fakeConn struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	closed   bool
	err      error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

func testNotification(kind reconciler.NotificationKind, level reconciler.Level, action *reconciler.Action) store.Notification {
	return store.Notification{
		ID: "6f1c",
		Notification: reconciler.Notification{
			Kind:    kind,
			Level:   level,
			Message: "Session started. Your goal: No Goal",
			Action:  action,
		},
	}
}

func TestDesktopLinux(t *testing.T) {
	rec := &recordingExecutor{}
	d := NewDesktop(command.NewSafeBuilderWithExecutor(rec))
	d.goos = "linux"

	n := testNotification(reconciler.NotifyError, reconciler.LevelError, &reconciler.Action{Label: "Retry", Command: "arcade refresh"})
	require.NoError(t, d.Notify(context.Background(), n))

	require.Len(t, rec.calls, 1)
	call := rec.calls[0]
	assert.Equal(t, "notify-send", call[0])
	assert.Contains(t, call, "--urgency=critical")
	assert.Equal(t, "Session started. Your goal: No Goal\nRetry: arcade refresh", call[len(call)-1])
}

func TestDesktopDarwinQuotes(t *testing.T) {
	rec := &recordingExecutor{}
	d := NewDesktop(command.NewSafeBuilderWithExecutor(rec))
	d.goos = "darwin"

	n := testNotification(reconciler.NotifyStart, reconciler.LevelInfo, nil)
	n.Message = `Goal: "ship it"`
	require.NoError(t, d.Notify(context.Background(), n))

	call := rec.calls[0]
	assert.Equal(t, []string{"osascript", "-e", `display notification "Goal: \"ship it\"" with title "Hack Club Arcade"`}, call)
}

func TestDesktopUnsupportedPlatform(t *testing.T) {
	d := NewDesktop(command.NewSafeBuilderWithExecutor(&recordingExecutor{}))
	d.goos = "plan9"
	assert.Error(t, d.Notify(context.Background(), testNotification(reconciler.NotifyStart, reconciler.LevelInfo, nil)))
}

func TestNATSPublishesPerKind(t *testing.T) {
	conn := &fakeConn{}
	sink := newNATS(conn, "arcade.notifications")

	require.NoError(t, sink.Notify(context.Background(), testNotification(reconciler.NotifyPause, reconciler.LevelInfo, nil)))
	assert.Equal(t, []string{"arcade.notifications.pause"}, conn.subjects)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(conn.payloads[0], &decoded))
	assert.Equal(t, "6f1c", decoded["id"])
	assert.Equal(t, "pause", decoded["kind"])

	require.NoError(t, sink.Close())
	assert.True(t, conn.closed)
}

func TestDispatcherLogsFailures(t *testing.T) {
	good := &fakeConn{}
	bad := &fakeConn{err: errors.New("connection closed")}
	d := NewDispatcher(logrus.NewEntry(logrus.New()), newNATS(good, "a"), newNATS(bad, "b"))
	assert.Equal(t, []string{"nats", "nats"}, d.Sinks())

	d.Dispatch(context.Background(), testNotification(reconciler.NotifyStart, reconciler.LevelInfo, nil))
	assert.Len(t, good.subjects, 1)

	require.NoError(t, d.Close())
	assert.True(t, good.closed)
	assert.True(t, bad.closed)
	assert.Empty(t, d.Sinks())
}
