package config

import (
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as a Go duration string ("10s", "5m").
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler (used by TOML and JSON keys).
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// JSONSchema describes Duration as a string for schema generation.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		Description: "Go duration string, e.g. 10s or 5m",
	}
}

// APIConfig configures the session service client.
type APIConfig struct {
	Endpoint          string   `yaml:"endpoint,omitempty" toml:"endpoint,omitempty" json:"endpoint,omitempty" jsonschema:"description=Base URL of the session service"`
	UserAgent         string   `yaml:"user_agent,omitempty" toml:"user_agent,omitempty" json:"user_agent,omitempty" jsonschema:"description=User-Agent header sent with every request"`
	Timeout           Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"description=Per-request timeout"`
	LegacyAuth        bool     `yaml:"legacy_auth,omitempty" toml:"legacy_auth,omitempty" json:"legacy_auth,omitempty" jsonschema:"description=Identify by user ID in the path only and send no API key"`
	RequestsPerSecond float64  `yaml:"requests_per_second,omitempty" toml:"requests_per_second,omitempty" json:"requests_per_second,omitempty" jsonschema:"minimum=0,description=Client-side request pacing (0 disables)"`
	Burst             int      `yaml:"burst,omitempty" toml:"burst,omitempty" json:"burst,omitempty" jsonschema:"minimum=0"`
}

// PollConfig configures the poll loop.
type PollConfig struct {
	Interval    Duration `yaml:"interval,omitempty" toml:"interval,omitempty" json:"interval,omitempty" jsonschema:"description=Delay between polls while healthy"`
	ErrorFactor float64  `yaml:"error_factor,omitempty" toml:"error_factor,omitempty" json:"error_factor,omitempty" jsonschema:"minimum=1,description=Backoff multiplier per consecutive failure"`
	RetryCap    Duration `yaml:"retry_cap,omitempty" toml:"retry_cap,omitempty" json:"retry_cap,omitempty" jsonschema:"description=Upper bound for the failure backoff"`
	Tick        Duration `yaml:"tick,omitempty" toml:"tick,omitempty" json:"tick,omitempty" jsonschema:"description=How often the countdown display is recomputed"`
}

// RetryConfig configures in-cycle retries of a single fetch.
type RetryConfig struct {
	MaxAttempts   int      `yaml:"max_attempts,omitempty" toml:"max_attempts,omitempty" json:"max_attempts,omitempty" jsonschema:"minimum=1"`
	InitialDelay  Duration `yaml:"initial_delay,omitempty" toml:"initial_delay,omitempty" json:"initial_delay,omitempty"`
	BackoffFactor float64  `yaml:"backoff_factor,omitempty" toml:"backoff_factor,omitempty" json:"backoff_factor,omitempty" jsonschema:"minimum=1"`
}

// NotificationsConfig selects which notifications are shown and where.
type NotificationsConfig struct {
	Session       *bool  `yaml:"session,omitempty" toml:"session,omitempty" json:"session,omitempty" jsonschema:"description=Show session start/pause/resume/end notifications (default: true)"`
	StartReminder *bool  `yaml:"start_reminder,omitempty" toml:"start_reminder,omitempty" json:"start_reminder,omitempty" jsonschema:"description=Remind to start a session when activity is seen (default: true)"`
	Desktop       bool   `yaml:"desktop,omitempty" toml:"desktop,omitempty" json:"desktop,omitempty" jsonschema:"description=Send notifications to the desktop notifier"`
	NATSURL       string `yaml:"nats_url,omitempty" toml:"nats_url,omitempty" json:"nats_url,omitempty" jsonschema:"description=Publish notifications to this NATS server"`
	NATSSubject   string `yaml:"nats_subject,omitempty" toml:"nats_subject,omitempty" json:"nats_subject,omitempty"`
}

// ActivityConfig configures idle detection.
type ActivityConfig struct {
	Threshold  int      `yaml:"threshold,omitempty" toml:"threshold,omitempty" json:"threshold,omitempty" jsonschema:"minimum=1,description=Activity events before a start reminder"`
	WatchPaths []string `yaml:"watch_paths,omitempty" toml:"watch_paths,omitempty" json:"watch_paths,omitempty" jsonschema:"description=Directories whose file writes count as activity"`
	Ignore     []string `yaml:"ignore,omitempty" toml:"ignore,omitempty" json:"ignore,omitempty" jsonschema:"description=Ignore patterns (.dockerignore syntax) for watched files"`
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	Trace     bool   `yaml:"trace,omitempty" toml:"trace,omitempty" json:"trace,omitempty" jsonschema:"description=Export request spans"`
	TraceFile string `yaml:"trace_file,omitempty" toml:"trace_file,omitempty" json:"trace_file,omitempty" jsonschema:"description=File for exported spans (default: stderr)"`
}

// DaemonConfig configures arcaded.
type DaemonConfig struct {
	Metrics bool `yaml:"metrics,omitempty" toml:"metrics,omitempty" json:"metrics,omitempty" jsonschema:"description=Serve Prometheus metrics on /metrics (default: true)"`
}

// Config is the arcade configuration.
type Config struct {
	Version       string              `yaml:"version,omitempty" toml:"version,omitempty" json:"version,omitempty" jsonschema:"description=Configuration version (e.g. '1.0')"`
	API           APIConfig           `yaml:"api,omitempty" toml:"api,omitempty" json:"api,omitempty"`
	Poll          PollConfig          `yaml:"poll,omitempty" toml:"poll,omitempty" json:"poll,omitempty"`
	Retry         RetryConfig         `yaml:"retry,omitempty" toml:"retry,omitempty" json:"retry,omitempty"`
	Notifications NotificationsConfig `yaml:"notifications,omitempty" toml:"notifications,omitempty" json:"notifications,omitempty"`
	Activity      ActivityConfig      `yaml:"activity,omitempty" toml:"activity,omitempty" json:"activity,omitempty"`
	Telemetry     TelemetryConfig     `yaml:"telemetry,omitempty" toml:"telemetry,omitempty" json:"telemetry,omitempty"`
	Daemon        *DaemonConfig       `yaml:"daemon,omitempty" toml:"daemon,omitempty" json:"daemon,omitempty"`
	SlackURL      string              `yaml:"slack_url,omitempty" toml:"slack_url,omitempty" json:"slack_url,omitempty" jsonschema:"description=URL opened by 'arcade slack'"`

	// Extensions captures all other top-level keys, such as "logging".
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-" jsonschema:"-"`
}

// Defaults.
const (
	DefaultEndpoint    = "https://hackhour.hackclub.com"
	DefaultUserAgent   = "Grove Arcade CLI"
	DefaultSlackURL    = "slack://channel?team=T0266FRGM&id=C06SBHMQU8G"
	DefaultNATSSubject = "arcade.notifications"
)

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}

	if c.API.Endpoint == "" {
		c.API.Endpoint = DefaultEndpoint
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = DefaultUserAgent
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = Duration(10 * time.Second)
	}
	if c.API.RequestsPerSecond == 0 {
		c.API.RequestsPerSecond = 2
	}
	if c.API.Burst == 0 {
		c.API.Burst = 4
	}

	if c.Poll.Interval == 0 {
		c.Poll.Interval = Duration(10 * time.Second)
	}
	if c.Poll.ErrorFactor == 0 {
		c.Poll.ErrorFactor = 2
	}
	if c.Poll.RetryCap == 0 {
		c.Poll.RetryCap = Duration(5 * time.Minute)
	}
	if c.Poll.Tick == 0 {
		c.Poll.Tick = Duration(time.Second)
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = Duration(time.Second)
	}
	if c.Retry.BackoffFactor == 0 {
		c.Retry.BackoffFactor = 4
	}

	if c.Notifications.Session == nil {
		c.Notifications.Session = boolPtr(true)
	}
	if c.Notifications.StartReminder == nil {
		c.Notifications.StartReminder = boolPtr(true)
	}
	if c.Notifications.NATSSubject == "" {
		c.Notifications.NATSSubject = DefaultNATSSubject
	}

	if c.Activity.Threshold == 0 {
		c.Activity.Threshold = 5
	}

	if c.Daemon == nil {
		c.Daemon = &DaemonConfig{Metrics: true}
	}

	if c.SlackURL == "" {
		c.SlackURL = DefaultSlackURL
	}
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SessionNotifications reports whether session lifecycle notifications are on.
func (c *Config) SessionNotifications() bool {
	return c.Notifications.Session == nil || *c.Notifications.Session
}

// StartReminders reports whether idle start reminders are on.
func (c *Config) StartReminders() bool {
	return c.Notifications.StartReminder == nil || *c.Notifications.StartReminder
}

// UnmarshalExtension decodes a specific extension's configuration into the
// provided target struct. The target must be a pointer. A missing key leaves
// the target untouched.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}

func boolPtr(b bool) *bool { return &b }
