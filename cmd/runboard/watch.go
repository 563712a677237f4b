// ABOUTME: The watch subcommand: full-screen dashboard for one run, with optional SQLite
// ABOUTME: recording of everything that streams in.
package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/runboard/runboard/store"
	"github.com/runboard/runboard/stream"
	"github.com/runboard/runboard/tui"
)

var recordFlag bool

var watchCmd = &cobra.Command{
	Use:   "watch <run-id>",
	Short: "Full-screen dashboard for a run",
	Long: `Watch a run in a full-screen terminal dashboard with log and metrics tabs.

Keys: tab switches tabs, l/m jump to a tab, up/down scroll, q quits.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&recordFlag, "record", false, "Record streamed events to the local SQLite database")
}

func runWatch(cmd *cobra.Command, args []string) error {
	runID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := newClient(cfg)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	opts := []stream.Option{stream.WithTailLines(cfg.TailLines)}
	if recordFlag {
		rec, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open recording db: %w", err)
		}
		defer func() { _ = rec.Close() }()
		rec.SetRun(runID)
		opts = append(opts, stream.WithObserver(rec))
	}

	// The error sink needs program.Send, but the program needs the model which
	// needs the coordinator. Late-bind the send function; no session runs
	// before the program's first tick, so program is set by then.
	var program *tea.Program
	bridge := tui.NewErrorBridge(func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	})
	opts = append(opts, stream.WithErrorSink(bridge))

	coord := stream.NewCoordinator(client, opts...)
	defer coord.Close()

	model := tui.NewWatchModel(ctx, client, coord, runID)
	program = tea.NewProgram(model, tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}
