// ABOUTME: Bubble Tea message types used in the TUI message loop.
// ABOUTME: Each type wraps domain events for the tea.Msg interface (which is interface{}).
package tui

import (
	"time"

	"github.com/runboard/runboard/api"
	"github.com/runboard/runboard/stream"
)

// TickMsg drives the render loop: coordinator reconciliation, feed polling,
// and spinner animation.
type TickMsg struct {
	Time time.Time
}

// RunInfoMsg carries a refreshed run snapshot from the orchestrator, or the
// error that prevented fetching one.
type RunInfoMsg struct {
	Run *api.Run
	Err error
}

// StreamErrorMsg surfaces a server-reported stream error for display in the
// status bar.
type StreamErrorMsg struct {
	Kind    stream.Kind
	Message string
}
