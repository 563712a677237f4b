// ABOUTME: The metrics subcommand: print a run's stored metric samples, or follow the live
// ABOUTME: sample stream to stdout.
package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/runboard/runboard/stream"
)

var metricsFollowFlag bool

var metricsCmd = &cobra.Command{
	Use:   "metrics <run-id>",
	Short: "Print or follow a run's resource metrics",
	Args:  cobra.ExactArgs(1),
	RunE:  runMetrics,
}

func init() {
	metricsCmd.Flags().BoolVarP(&metricsFollowFlag, "follow", "f", false, "Stream live samples (active runs only)")
}

func runMetrics(cmd *cobra.Command, args []string) error {
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

	if !metricsFollowFlag || run.Status.IsTerminal() {
		samples, err := client.MetricHistory(ctx, runID)
		if err != nil {
			return err
		}
		for _, s := range samples {
			printObserver{}.MetricSample(s)
		}
		return nil
	}

	feed := stream.NewFeed()
	feed.SetObserver(printObserver{})
	session := stream.NewSession(stream.SessionConfig{
		Kind:  stream.KindMetric,
		RunID: runID,
		Feed:  feed,
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			return client.OpenMetricStream(ctx, runID)
		},
		RunActive: runLiveness(client, runID),
	})
	session.Start()

	select {
	case <-session.Done():
	case <-ctx.Done():
		session.Stop()
	}

	if session.Status() == stream.StatusDisconnected {
		fmt.Fprintln(cmd.ErrOrStderr(), "stream closed")
	}
	return nil
}
