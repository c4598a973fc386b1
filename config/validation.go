package config

import (
	"fmt"
	"net/url"

	"github.com/grovetools/arcade/errors"
)

// Validate checks that the configuration is usable. Call after SetDefaults.
func (c *Config) Validate() error {
	if err := validateEndpoint(c.API.Endpoint); err != nil {
		return err
	}
	if c.API.UserAgent == "" {
		return errors.New(errors.ErrCodeConfigValidation, "api.user_agent cannot be empty")
	}
	if c.API.Timeout < 0 {
		return invalidField("api.timeout", "must not be negative")
	}
	if c.API.RequestsPerSecond < 0 {
		return invalidField("api.requests_per_second", "must not be negative")
	}

	if c.Poll.Interval <= 0 {
		return invalidField("poll.interval", "must be positive")
	}
	if c.Poll.ErrorFactor < 1 {
		return invalidField("poll.error_factor", "must be at least 1")
	}
	if c.Poll.RetryCap < c.Poll.Interval {
		return invalidField("poll.retry_cap", fmt.Sprintf("must be at least poll.interval (%s)", c.Poll.Interval))
	}
	if c.Poll.Tick <= 0 {
		return invalidField("poll.tick", "must be positive")
	}

	if c.Retry.MaxAttempts < 1 {
		return invalidField("retry.max_attempts", "must be at least 1")
	}
	if c.Retry.InitialDelay < 0 {
		return invalidField("retry.initial_delay", "must not be negative")
	}
	if c.Retry.BackoffFactor < 1 {
		return invalidField("retry.backoff_factor", "must be at least 1")
	}

	if c.Activity.Threshold < 1 {
		return invalidField("activity.threshold", "must be at least 1")
	}

	if c.Notifications.NATSURL != "" {
		if _, err := url.Parse(c.Notifications.NATSURL); err != nil {
			return invalidField("notifications.nats_url", err.Error())
		}
	}
	return nil
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return invalidField("api.endpoint", err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalidField("api.endpoint", "must be an http or https URL")
	}
	if u.Host == "" {
		return invalidField("api.endpoint", "must include a host")
	}
	return nil
}

func invalidField(field, reason string) error {
	return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("%s %s", field, reason)).
		WithDetail("field", field)
}
