// ABOUTME: The logs subcommand: print a run's stored log tail, or follow the live stream
// ABOUTME: to stdout until the run finishes or the user interrupts.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/runboard/runboard/api"
	"github.com/runboard/runboard/stream"
)

var logsFollowFlag bool

var logsCmd = &cobra.Command{
	Use:   "logs <run-id>",
	Short: "Print or follow a run's logs",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollowFlag, "follow", "f", false, "Stream live output (active runs only)")
}

// printObserver writes feed events to stdout as they arrive.
type printObserver struct{}

func (printObserver) LogLine(line string) { fmt.Println(line) }
func (printObserver) MetricSample(s api.MetricSample) {
	fmt.Printf("%s cpu=%.1f%% ram=%.0fMB\n", s.Timestamp, s.CPUPercent, s.RAMMb)
}

func runLogs(cmd *cobra.Command, args []string) error {
	runID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := newClient(cfg)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	run, err := client.Run(ctx, runID)
	if err != nil {
		return err
	}

	if !logsFollowFlag || run.Status.IsTerminal() {
		lines, err := client.LogTail(ctx, runID, cfg.TailLines)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	}

	feed := stream.NewFeed()
	feed.SetObserver(printObserver{})
	session := stream.NewSession(stream.SessionConfig{
		Kind:  stream.KindLog,
		RunID: runID,
		Feed:  feed,
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			return client.OpenLogStream(ctx, runID)
		},
		RunActive: runLiveness(client, runID),
	})
	session.Start()

	select {
	case <-session.Done():
	case <-ctx.Done():
		session.Stop()
	}
	return nil
}

// runLiveness re-fetches the run to decide whether a reconnect is worth it.
// A fetch failure counts as still-active so transient API trouble doesn't
// end the follow early.
func runLiveness(client *api.Client, runID string) func() bool {
	return func() bool {
		run, err := client.Run(context.Background(), runID)
		if err != nil {
			return true
		}
		return run.Status.IsActive()
	}
}

// signalContext derives a context cancelled by SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
