package store

import (
	"testing"
	"time"

	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/pkg/arcade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreStartsLoading(t *testing.T) {
	st := New()
	got := st.Get()
	assert.Equal(t, reconciler.PhaseLoading, got.Phase)
	assert.Equal(t, "Arcade Loading...", got.Display.Text)
}

func TestApplyUpdate(t *testing.T) {
	st := New()
	sess := &arcade.Session{ID: "U1", Work: "Writing tests"}

	st.ApplyUpdate(Update{Type: UpdateSnapshot, Payload: Snapshot{
		Phase:    reconciler.PhaseActive,
		Session:  sess,
		Identity: "U1",
	}})
	st.ApplyUpdate(Update{Type: UpdateDisplay, Payload: reconciler.Display{Phase: reconciler.PhaseActive, Text: "12:00"}})
	st.ApplyUpdate(Update{Type: UpdateNotification, Payload: Notification{
		ID:           "n1",
		Notification: reconciler.Notification{Kind: reconciler.NotifyStart, Message: "started"},
	}})

	got := st.Get()
	assert.Equal(t, reconciler.PhaseActive, got.Phase)
	assert.Same(t, sess, got.Session)
	assert.Equal(t, "12:00", got.Display.Text)
	require.NotNil(t, got.LastNotification)
	assert.Equal(t, "n1", got.LastNotification.ID)

	st.ApplyUpdate(Update{Type: UpdateCredentialCleared})
	got = st.Get()
	assert.Empty(t, got.Identity)
	assert.Nil(t, got.Session)
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	st := New()
	ch := st.Subscribe()
	defer st.Unsubscribe(ch)
	assert.Equal(t, 1, st.Subscribers())

	st.BroadcastConfigReload("arcade.yml")

	select {
	case u := <-ch:
		assert.Equal(t, UpdateConfigReload, u.Type)
		assert.Equal(t, "arcade.yml", u.Payload)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	st := New()
	ch := st.Subscribe()
	defer st.Unsubscribe(ch)

	for i := 0; i < cap(ch)+10; i++ {
		st.ApplyUpdate(Update{Type: UpdateDisplay, Payload: reconciler.Display{}})
	}
	assert.Equal(t, uint64(10), st.Dropped())
}

func TestUnsubscribeTwice(t *testing.T) {
	st := New()
	ch := st.Subscribe()
	st.Unsubscribe(ch)
	st.Unsubscribe(ch)
	assert.Equal(t, 0, st.Subscribers())
	_, open := <-ch
	assert.False(t, open)
}
