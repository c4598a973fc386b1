package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/grovetools/arcade/cli"
	"github.com/grovetools/arcade/config"
	"github.com/grovetools/arcade/credentials"
	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/internal/daemon/engine"
	"github.com/grovetools/arcade/logging"
	"github.com/grovetools/arcade/pkg/arcade"
	"github.com/grovetools/arcade/pkg/daemon"
	"github.com/grovetools/arcade/pkg/retry"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// sessionFetcher is the part of the service client init needs.
type sessionFetcher interface {
	FetchSession(ctx context.Context, cred arcade.Credential) (*arcade.Session, error)
}

// prompter reads the two init answers.
type prompter struct {
	in     *bufio.Reader
	out    io.Writer
	secret func() (string, error)
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.secret = func() (string, error) {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(out)
			return string(b), err
		}
	}
	return p
}

func (p *prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// askSecret reads without echo on a terminal.
func (p *prompter) askSecret(label string) (string, error) {
	if p.secret == nil {
		return p.ask(label)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	s, err := p.secret()
	return strings.TrimSpace(s), err
}

type initDeps struct {
	client  sessionFetcher
	store   *credentials.Store
	retry   retry.Options
	logger  *logrus.Entry
	refresh func(ctx context.Context)
}

func newInitCmd() *cobra.Command {
	var slackID string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Save your Slack ID and Arcade API key",
		Long: `Prompts for your Slack member ID and the API key from the Arcade
bot, checks them against the session service and saves them.`,
		Example: `  arcade init
  arcade init --slack-id U01ABCDEF`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			logger := cli.GetLogger(cmd)
			deps := initDeps{
				client:  engine.NewSessionClient(cfg, logger),
				store:   credentials.Default(),
				retry:   engine.RetryFrom(cfg),
				logger:  logger,
				refresh: refreshDaemon,
			}
			return runInit(cmd.Context(), newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()), slackID, deps)
		},
	}
	cmd.Flags().StringVar(&slackID, "slack-id", "", "Slack member ID (prompted when empty)")
	return cmd
}

func runInit(ctx context.Context, p *prompter, slackID string, deps initDeps) error {
	var err error
	if slackID == "" {
		if slackID, err = p.ask("Enter your Slack ID"); err != nil {
			return errors.InvalidInput("slack id", "no input")
		}
	}
	if err := credentials.ValidateID(slackID); err != nil {
		return err
	}

	key, err := p.askSecret("Enter your Arcade API key")
	if err != nil {
		return errors.InvalidInput("api key", "no input")
	}
	if err := credentials.ValidateAPIKey(key); err != nil {
		return err
	}

	cred := arcade.Credential{ID: slackID, APIKey: key}
	_, err = retry.Do(ctx, func(ctx context.Context) (*arcade.Session, error) {
		return deps.client.FetchSession(ctx, cred)
	},
		retry.WithOptions(deps.retry),
		retry.WithName("validate credentials"),
		retry.WithRetryable(engine.Retryable),
		retry.WithLogger(deps.logger),
	)
	if err != nil {
		return err
	}

	if err := deps.store.Save(cred); err != nil {
		return err
	}
	if deps.refresh != nil {
		deps.refresh(ctx)
	}

	pretty := logging.NewPrettyLogger().WithWriter(p.out)
	pretty.Success("Arcade is set up")
	pretty.Path("Credentials", deps.store.Path())
	return nil
}

// refreshDaemon asks a running daemon to pick up new credentials now.
func refreshDaemon(ctx context.Context) {
	client, err := daemon.Connect()
	if err != nil {
		return
	}
	defer client.Close()
	_, _ = client.Refresh(ctx)
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved Slack ID and API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credentials.Default().Clear(); err != nil {
				return err
			}
			refreshDaemon(cmd.Context())
			logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).Success("Credentials cleared")
			return nil
		},
	}
}

// loadConfigOrDefault is used by commands that only read optional settings.
func loadConfigOrDefault(cmd *cobra.Command) *config.Config {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		cli.GetLogger(cmd).WithError(err).Debug("Using default configuration")
		return config.Default()
	}
	return cfg
}
