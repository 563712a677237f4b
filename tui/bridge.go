// ABOUTME: Bridge between the stream layer and the Bubble Tea message loop: tea.Cmd
// ABOUTME: factories for ticks and run refreshes, and an ErrorSink that injects messages.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/runboard/runboard/api"
	"github.com/runboard/runboard/stream"
)

// RunFetcher is the slice of the API client the TUI needs for run refreshes.
type RunFetcher interface {
	Run(ctx context.Context, runID string) (*api.Run, error)
}

// TickCmd returns a tea.Cmd that sends a TickMsg after the given interval.
// Used for feed polling and spinner animation.
func TickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// FetchRunCmd returns a tea.Cmd that fetches the run snapshot after waiting
// the given delay. A zero delay fetches immediately.
func FetchRunCmd(ctx context.Context, fetcher RunFetcher, runID string, delay time.Duration) tea.Cmd {
	return func() tea.Msg {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
		}
		run, err := fetcher.Run(ctx, runID)
		return RunInfoMsg{Run: run, Err: err}
	}
}

// ErrorBridge adapts a tea.Program's Send method into a stream.ErrorSink so
// server-reported stream errors land in the message loop.
type ErrorBridge struct {
	send func(msg tea.Msg)
}

// NewErrorBridge creates an ErrorBridge. Typically called with program.Send.
func NewErrorBridge(send func(msg tea.Msg)) *ErrorBridge {
	return &ErrorBridge{send: send}
}

// ServerError implements stream.ErrorSink.
func (b *ErrorBridge) ServerError(kind stream.Kind, runID, msg string) {
	b.send(StreamErrorMsg{Kind: kind, Message: msg})
}
