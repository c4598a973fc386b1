package engine

import (
	"testing"
	"time"

	"github.com/grovetools/arcade/config"
	"github.com/grovetools/arcade/state"
	"github.com/stretchr/testify/assert"
)

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Poll.Interval = config.Duration(30 * time.Second)
	cfg.Activity.Threshold = 8

	opts := OptionsFromConfig(cfg, state.State{})
	assert.Equal(t, 30*time.Second, opts.Policy.Interval)
	assert.Equal(t, 2.0, opts.Policy.ErrorFactor)
	assert.Equal(t, 5*time.Minute, opts.Policy.RetryCap)
	assert.Equal(t, 3, opts.Retry.MaxAttempts)
	assert.Equal(t, time.Second, opts.Retry.InitialDelay)
	assert.Equal(t, time.Second, opts.Tick)
	assert.Equal(t, 8, opts.IdleThreshold)
	assert.Equal(t, Settings{SessionNotifications: true, StartReminders: true}, opts.Settings)
}

func TestResolveSettingsStateWins(t *testing.T) {
	off := false
	cfg := config.Default()
	cfg.Notifications.Session = &off

	tests := []struct {
		name  string
		state state.State
		want  Settings
	}{
		{"config only", state.State{}, Settings{SessionNotifications: false, StartReminders: true}},
		{"state enables", state.State{state.KeySessionNotifications: true}, Settings{SessionNotifications: true, StartReminders: true}},
		{"state disables reminders", state.State{state.KeyStartReminders: false}, Settings{SessionNotifications: false, StartReminders: false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveSettings(cfg, tt.state))
		})
	}
}

func TestRefreshWithoutRunIsNoop(t *testing.T) {
	e, _ := newTestEngine(t, &fakeClient{}, &fakeCreds{})
	assert.False(t, e.Refresh(t.Context()))
}
