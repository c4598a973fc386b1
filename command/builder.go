package command

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
	"time"
	"unicode"
)

const (
	// DefaultTimeout bounds helper programs such as notify-send or xdg-open.
	DefaultTimeout = 10 * time.Second

	// MaxTimeout is the maximum allowed timeout
	MaxTimeout = 2 * time.Minute

	maxMessageLength = 512
)

// SafeBuilder builds commands for external helpers after validating the
// arguments that come from the network or the user.
type SafeBuilder struct {
	defaultTimeout time.Duration
	validators     map[string]func(string) error
	executor       Executor
}

// NewSafeBuilder creates a new SafeBuilder instance with a RealExecutor
func NewSafeBuilder() *SafeBuilder {
	return NewSafeBuilderWithExecutor(&RealExecutor{})
}

// NewSafeBuilderWithExecutor creates a new SafeBuilder with a custom Executor
func NewSafeBuilderWithExecutor(exec Executor) *SafeBuilder {
	return &SafeBuilder{
		defaultTimeout: DefaultTimeout,
		validators: map[string]func(string) error{
			"url":     validateURL,
			"message": validateMessage,
			"program": validateProgram,
		},
		executor: exec,
	}
}

// validateURL accepts only absolute http, https and slack URLs, so a URL
// from config can never be interpreted as a flag or a local file by the opener.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "slack":
	default:
		return fmt.Errorf("invalid URL scheme %q: must be http, https or slack", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}
	return nil
}

// validateMessage rejects notification text that could break out of an
// argument or an AppleScript string literal.
func validateMessage(msg string) error {
	if strings.TrimSpace(msg) == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if len(msg) > maxMessageLength {
		return fmt.Errorf("message too long (%d > %d)", len(msg), maxMessageLength)
	}
	if strings.HasPrefix(msg, "-") {
		return fmt.Errorf("message cannot start with '-'")
	}
	for _, r := range msg {
		if unicode.IsControl(r) && r != '\n' {
			return fmt.Errorf("message contains control characters")
		}
	}
	return nil
}

var programPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// validateProgram ensures helper names are bare program names.
func validateProgram(name string) error {
	if !programPattern.MatchString(name) {
		return fmt.Errorf("invalid program name: %q", name)
	}
	return nil
}

// Command is a validated command bound to a timeout.
type Command struct {
	ctx      context.Context
	cancel   context.CancelFunc
	name     string
	args     []string
	executor Executor
}

// Build creates a new command with validation. Callers must Run it or call
// Close to release the timeout context.
func (sb *SafeBuilder) Build(ctx context.Context, name string, args ...string) (*Command, error) {
	if err := validateProgram(name); err != nil {
		return nil, err
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, sb.defaultTimeout)
	return &Command{
		ctx:      timeoutCtx,
		cancel:   cancel,
		name:     name,
		args:     args,
		executor: sb.executor,
	}, nil
}

// WithTimeout replaces the default timeout.
func (sb *SafeBuilder) WithTimeout(timeout time.Duration) *SafeBuilder {
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	if timeout > 0 {
		sb.defaultTimeout = timeout
	}
	return sb
}

// Validate validates specific arguments
func (sb *SafeBuilder) Validate(argType string, value string) error {
	validator, exists := sb.validators[argType]
	if !exists {
		return fmt.Errorf("no validator for argument type: %s", argType)
	}
	return validator(value)
}

// Exec creates and returns an exec.Cmd
func (c *Command) Exec() *exec.Cmd {
	return c.executor.CommandContext(c.ctx, c.name, c.args...) //nolint:gosec // SafeBuilder provides validation
}

// Run executes the command and returns its combined output.
func (c *Command) Run() ([]byte, error) {
	defer c.cancel()
	out, err := c.Exec().CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s failed: %w", c.name, err)
	}
	return out, nil
}

// Close releases the command's context without running it.
func (c *Command) Close() {
	c.cancel()
}

// String renders the command line for logs.
func (c *Command) String() string {
	return strings.TrimSpace(c.name + " " + strings.Join(c.args, " "))
}

// OpenURL opens target in the user's browser.
func (sb *SafeBuilder) OpenURL(ctx context.Context, target string) error {
	if err := sb.Validate("url", target); err != nil {
		return err
	}
	opener := "xdg-open"
	if runtime.GOOS == "darwin" {
		opener = "open"
	}
	cmd, err := sb.Build(ctx, opener, target)
	if err != nil {
		return err
	}
	_, err = cmd.Run()
	return err
}
