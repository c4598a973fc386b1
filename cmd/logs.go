package cmd

import (
	"bufio"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/logging"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	var (
		follow    bool
		component string
		lines     int
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the daemon log",
		Example: `  arcade logs
  arcade logs -f
  arcade logs --component cli -n 100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := logging.LogFilePath(component, logging.LoadConfig(), time.Now())
			if _, err := os.Stat(path); err != nil {
				return errors.Wrap(err, errors.ErrCodeInvalidInput, "no log file for today").WithDetail("path", path)
			}
			if !follow {
				return printTail(cmd.OutOrStdout(), path, lines)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			t, err := tail.TailFile(path, tail.Config{
				Follow:   true,
				ReOpen:   true,
				Location: &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
				Logger:   stdlog.New(io.Discard, "", 0),
			})
			if err != nil {
				return fmt.Errorf("failed to tail %s: %w", path, err)
			}
			defer t.Cleanup()

			if err := printTail(cmd.OutOrStdout(), path, lines); err != nil {
				return err
			}
			for {
				select {
				case <-ctx.Done():
					return t.Stop()
				case line, ok := <-t.Lines:
					if !ok {
						return t.Err()
					}
					if line.Err != nil {
						continue
					}
					fmt.Fprintln(cmd.OutOrStdout(), line.Text)
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&component, "component", "daemon", "Log component to read")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of existing lines to print")
	return cmd
}

// printTail prints the last n lines of path.
func printTail(w io.Writer, path string, n int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if n < 0 {
		n = 0
	}
	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if n <= 0 {
			continue
		}
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	for _, line := range ring {
		fmt.Fprintln(w, line)
	}
	return nil
}
