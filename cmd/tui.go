package cmd

import (
	"context"

	"github.com/grovetools/arcade/tui/dashboard"
	"github.com/spf13/cobra"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:     "tui",
		Aliases: []string{"dashboard"},
		Short:   "Open the interactive session dashboard",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slackURL := loadConfigOrDefault(cmd).SlackURL
			client := newClient()
			defer client.Close()
			return dashboard.Run(dashboard.Options{
				Client: client,
				OpenURL: func(ctx context.Context) error {
					return urlOpener(ctx, slackURL)
				},
			})
		},
	}
}
