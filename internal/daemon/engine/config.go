package engine

import (
	"net/http"

	"github.com/grovetools/arcade/config"
	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/pkg/arcade"
	"github.com/grovetools/arcade/pkg/retry"
	"github.com/grovetools/arcade/state"
	"github.com/sirupsen/logrus"
)

// NewSessionClient builds the service client described by cfg.
func NewSessionClient(cfg *config.Config, logger *logrus.Entry) *arcade.Client {
	return arcade.NewClient(
		arcade.WithEndpoint(cfg.API.Endpoint),
		arcade.WithUserAgent(cfg.API.UserAgent),
		arcade.WithLegacyAuth(cfg.API.LegacyAuth),
		arcade.WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst),
		arcade.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout.D()}),
		arcade.WithLogger(logger),
	)
}

// PolicyFrom extracts the poll policy from cfg.
func PolicyFrom(cfg *config.Config) reconciler.Policy {
	return reconciler.Policy{
		Interval:    cfg.Poll.Interval.D(),
		ErrorFactor: cfg.Poll.ErrorFactor,
		RetryCap:    cfg.Poll.RetryCap.D(),
	}
}

// RetryFrom extracts the per-fetch retry policy from cfg.
func RetryFrom(cfg *config.Config) retry.Options {
	o := retry.Defaults()
	o.MaxAttempts = cfg.Retry.MaxAttempts
	o.InitialDelay = cfg.Retry.InitialDelay.D()
	o.BackoffFactor = cfg.Retry.BackoffFactor
	return o
}

// ResolveSettings combines the config toggles with the overrides the CLI
// persists in the state file. The state file wins.
func ResolveSettings(cfg *config.Config, st state.State) Settings {
	return Settings{
		SessionNotifications: st.Bool(state.KeySessionNotifications, cfg.SessionNotifications()),
		StartReminders:       st.Bool(state.KeyStartReminders, cfg.StartReminders()),
	}
}

// OptionsFromConfig fills the config-derived fields of Options. Callers add
// the client, credential store and sinks.
func OptionsFromConfig(cfg *config.Config, st state.State) Options {
	return Options{
		Policy:        PolicyFrom(cfg),
		Retry:         RetryFrom(cfg),
		Tick:          cfg.Poll.Tick.D(),
		IdleThreshold: cfg.Activity.Threshold,
		Settings:      ResolveSettings(cfg, st),
	}
}
